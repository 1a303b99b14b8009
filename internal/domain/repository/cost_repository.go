package repository

import (
	"context"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// CostRepository puerto del libro de costos (entradas + promedio por producto).
type CostRepository interface {
	AppendEntry(ctx context.Context, scope tenant.Scope, entry *entity.CostEntry) error
	// GetForUpdate bloquea la fila de costo; sin fila devuelve un ProductCost vacío (EntryCount 0).
	GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error)
	Get(ctx context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error)
	Save(ctx context.Context, scope tenant.Scope, cost *entity.ProductCost) error
	ListEntries(ctx context.Context, scope tenant.Scope, productID string) ([]*entity.CostEntry, error)
}
