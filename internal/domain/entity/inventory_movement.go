package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dirección del movimiento de inventario.
const (
	DirectionEntry = "ENTRY"
	DirectionExit  = "EXIT"
)

// Movement es un registro inmutable del libro de movimientos.
// Quantity siempre es positiva; Direction indica si suma o resta.
type Movement struct {
	ID            string
	TransactionID string
	TenantID      string
	SiteID        string
	ProductID     string
	Direction     string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	TotalCost     decimal.Decimal
	CostPending   bool   // sin base de costo al momento del consumo; pendiente de conciliación
	OrderID       string // orden de tratamiento que originó la salida (vacío en entradas de compra)
	ReversalOf    string // movimiento EXIT que esta entrada revierte
	CreatedAt     time.Time
	CreatedBy     string
}
