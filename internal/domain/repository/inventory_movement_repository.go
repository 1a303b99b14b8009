package repository

import (
	"context"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// MovementRepository puerto del libro de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, scope tenant.Scope, movement *entity.Movement) error
	ListByOrder(ctx context.Context, scope tenant.Scope, orderID string) ([]*entity.Movement, error)
	ListByProduct(ctx context.Context, scope tenant.Scope, productID string, limit, offset int) ([]*entity.Movement, error)
}
