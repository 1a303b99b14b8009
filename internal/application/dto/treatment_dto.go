package dto

import "github.com/shopspring/decimal"

// ConsumeRequest body para POST /api/treatments/consume.
type ConsumeRequest struct {
	OrderID           string          `json:"order_id"`
	PatientID         string          `json:"patient_id"`
	TenantID          string          `json:"tenant_id"`
	SiteID            string          `json:"site_id"`
	Subtype           string          `json:"subtype"`
	DoseQuantity      decimal.Decimal `json:"dose_quantity"`
	FactorFrascoMadre decimal.Decimal `json:"factor_frasco_madre"`
	BottleType        string          `json:"bottle_type,omitempty"`
	Bottles           []string        `json:"bottles,omitempty"`
	Allergens         []string        `json:"allergens"`
}

// ReverseRequest body para POST /api/treatments/:id/reverse.
type ReverseRequest struct {
	TenantID string `json:"tenant_id"`
	SiteID   string `json:"site_id"`
}

// ComponentDTO volumen calculado de un componente.
type ComponentDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	VolumeML  decimal.Decimal `json:"volume_ml"`
}

// ShortageDTO faltante de stock.
type ShortageDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// ConsumeResponse resultado del consumo. Con ok=false trae reason y el detalle del rechazo.
type ConsumeResponse struct {
	OK            bool           `json:"ok"`
	Reason        string         `json:"reason,omitempty"`
	Message       string         `json:"message,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Movements     []MovementDTO  `json:"movements,omitempty"`
	Components    []ComponentDTO `json:"components,omitempty"`
	Shortages     []ShortageDTO  `json:"shortages,omitempty"`
	UnknownRefs   []string       `json:"unknown_refs,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
}

// ReverseResponse movimientos compensatorios creados.
type ReverseResponse struct {
	OrderID   string        `json:"order_id"`
	Movements []MovementDTO `json:"movements"`
}
