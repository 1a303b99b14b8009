package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostEntry registra una adquisición de stock con el precio pagado. Solo se agrega, nunca se modifica.
type CostEntry struct {
	ID        string
	TenantID  string
	SiteID    string
	ProductID string
	Quantity  decimal.Decimal
	TotalCost decimal.Decimal
	CreatedAt time.Time
	CreatedBy string
}

// ProductCost es la base de costo promedio ponderado por (organización, producto).
// ValuedQuantity es la cantidad valorizada a AvgCost en todas las sedes.
type ProductCost struct {
	TenantID       string
	ProductID      string
	AvgCost        decimal.Decimal
	ValuedQuantity decimal.Decimal
	EntryCount     int
	UpdatedAt      time.Time
}

// HasBasis indica si existe al menos una entrada de costo.
func (c *ProductCost) HasBasis() bool {
	return c != nil && c.EntryCount > 0
}
