package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteStock es la cantidad disponible de un producto en una sede.
// Se crea en la primera entrada y nunca se elimina; Quantity >= 0 siempre.
type SiteStock struct {
	TenantID  string
	SiteID    string
	ProductID string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
