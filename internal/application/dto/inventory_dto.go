package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveStockRequest body para POST /api/inventory/entries.
type ReceiveStockRequest struct {
	TenantID  string          `json:"tenant_id"`
	SiteID    string          `json:"site_id"`
	Product   string          `json:"product"` // ID o nombre de catálogo
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// MovementDTO movimiento del libro.
type MovementDTO struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Direction     string          `json:"direction"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	CostPending   bool            `json:"cost_pending,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	ReversalOf    string          `json:"reversal_of,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockResponse respuesta de GET /api/inventory/stock/:product_id.
type StockResponse struct {
	ProductID   string          `json:"product_id"`
	SiteID      string          `json:"site_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	CostDefined bool            `json:"cost_defined"`
	Valuation   decimal.Decimal `json:"valuation"` // Quantity * AvgCost
	Movements   []MovementDTO   `json:"movements"`
	Page        PageResponse    `json:"page"`
}
