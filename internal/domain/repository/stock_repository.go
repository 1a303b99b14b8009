package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// StockRepository puerto de stock por (organización, sede, producto).
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve el stock o cantidad cero si la fila aún no existe (no la crea).
	Get(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); fila inexistente => cantidad cero sin crearla.
	GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error)
	// GetOrCreateForUpdate crea la fila en cero si no existe y la bloquea.
	GetOrCreateForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error)
	// SetQuantity escribe la cantidad de una fila ya bloqueada; rechaza cantidades negativas.
	SetQuantity(ctx context.Context, scope tenant.Scope, productID string, qty decimal.Decimal) error
}
