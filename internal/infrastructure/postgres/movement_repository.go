package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserta.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento. Una segunda reversión del mismo EXIT viola movements_reversal_of_uq.
func (r *MovementRepo) Create(ctx context.Context, scope tenant.Scope, m *entity.Movement) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.TenantID = scope.TenantID()
	m.SiteID = scope.SiteID()
	query := `
		INSERT INTO movements (id, transaction_id, tenant_id, site_id, product_id, direction, quantity,
			unit_cost, total_cost, cost_pending, order_id, reversal_of, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, m.TenantID, m.SiteID, m.ProductID, m.Direction, m.Quantity,
		m.UnitCost, m.TotalCost, m.CostPending, nullable(m.OrderID), nullable(m.ReversalOf),
		m.CreatedAt, nullable(m.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: movimiento %s ya revertido", domain.ErrConflict, m.ReversalOf)
		}
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

const movementColumns = `id, transaction_id, tenant_id, site_id, product_id, direction, quantity,
		unit_cost, total_cost, cost_pending, COALESCE(order_id, ''), COALESCE(reversal_of, ''),
		created_at, COALESCE(created_by, '')`

// ListByOrder movimientos de la orden en la sede del alcance (salidas y reversiones).
func (r *MovementRepo) ListByOrder(ctx context.Context, scope tenant.Scope, orderID string) ([]*entity.Movement, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + movementColumns + `
		FROM movements WHERE tenant_id = $1 AND site_id = $2 AND order_id = $3
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, scope.TenantID(), scope.SiteID(), orderID)
	if err != nil {
		return nil, fmt.Errorf("list movements by order: %w", err)
	}
	return scanMovements(rows)
}

// ListByProduct historial del producto en la sede, paginado.
func (r *MovementRepo) ListByProduct(ctx context.Context, scope tenant.Scope, productID string, limit, offset int) ([]*entity.Movement, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + movementColumns + `
		FROM movements WHERE tenant_id = $1 AND site_id = $2 AND product_id = $3
		ORDER BY created_at, id
		LIMIT $4 OFFSET $5`
	rows, err := r.q.Query(ctx, query, scope.TenantID(), scope.SiteID(), productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]*entity.Movement, error) {
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.TenantID, &m.SiteID, &m.ProductID, &m.Direction, &m.Quantity,
			&m.UnitCost, &m.TotalCost, &m.CostPending, &m.OrderID, &m.ReversalOf,
			&m.CreatedAt, &m.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
