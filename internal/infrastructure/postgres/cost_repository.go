package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

var _ repository.CostRepository = (*CostRepo)(nil)

// CostRepo libro de costos sobre PostgreSQL: cost_entries (append-only) y product_costs (promedio vigente).
type CostRepo struct {
	q Querier
}

// NewCostRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCostRepository(q Querier) *CostRepo {
	return &CostRepo{q: q}
}

// AppendEntry inserta una entrada de costo. Nunca actualiza ni borra.
func (r *CostRepo) AppendEntry(ctx context.Context, scope tenant.Scope, entry *entity.CostEntry) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.TenantID = scope.TenantID()
	query := `
		INSERT INTO cost_entries (id, tenant_id, site_id, product_id, quantity, total_cost, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.TenantID, entry.SiteID, entry.ProductID,
		entry.Quantity, entry.TotalCost, entry.CreatedAt, nullable(entry.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert cost entry: %w", err)
	}
	return nil
}

const costSelect = `
		SELECT tenant_id, product_id, avg_cost, valued_quantity, entry_count, updated_at
		FROM product_costs WHERE tenant_id = $1 AND product_id = $2`

// Get base de costo sin bloquear.
func (r *CostRepo) Get(ctx context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error) {
	c, err := r.get(ctx, scope, productID, costSelect)
	if err != nil {
		return nil, fmt.Errorf("get product cost: %w", err)
	}
	return c, nil
}

// GetForUpdate bloquea la fila de costo del producto (SELECT FOR UPDATE). La fila se crea
// vacía si no existe, así dos primeras entradas concurrentes también se serializan.
func (r *CostRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	insert := `
		INSERT INTO product_costs (tenant_id, product_id, avg_cost, valued_quantity, entry_count, updated_at)
		VALUES ($1, $2, 0, 0, 0, now())
		ON CONFLICT (tenant_id, product_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, scope.TenantID(), productID); err != nil {
		return nil, fmt.Errorf("create product cost row: %w", err)
	}
	c, err := r.get(ctx, scope, productID, costSelect+` FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("get product cost for update: %w", err)
	}
	return c, nil
}

// Save inserta o actualiza el promedio vigente.
func (r *CostRepo) Save(ctx context.Context, scope tenant.Scope, cost *entity.ProductCost) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO product_costs (tenant_id, product_id, avg_cost, valued_quantity, entry_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, product_id)
		DO UPDATE SET avg_cost = EXCLUDED.avg_cost, valued_quantity = EXCLUDED.valued_quantity,
			entry_count = EXCLUDED.entry_count, updated_at = now()`
	_, err := r.q.Exec(ctx, query, scope.TenantID(), cost.ProductID, cost.AvgCost, cost.ValuedQuantity, cost.EntryCount)
	if err != nil {
		return fmt.Errorf("save product cost: %w", err)
	}
	return nil
}

// ListEntries historial de entradas de costo del producto, más antiguas primero.
func (r *CostRepo) ListEntries(ctx context.Context, scope tenant.Scope, productID string) ([]*entity.CostEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query := `
		SELECT id, tenant_id, site_id, product_id, quantity, total_cost, created_at, COALESCE(created_by, '')
		FROM cost_entries WHERE tenant_id = $1 AND product_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, scope.TenantID(), productID)
	if err != nil {
		return nil, fmt.Errorf("list cost entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.CostEntry
	for rows.Next() {
		var e entity.CostEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.SiteID, &e.ProductID, &e.Quantity, &e.TotalCost, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan cost entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *CostRepo) get(ctx context.Context, scope tenant.Scope, productID, query string) (*entity.ProductCost, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var c entity.ProductCost
	err := r.q.QueryRow(ctx, query, scope.TenantID(), productID).Scan(
		&c.TenantID, &c.ProductID, &c.AvgCost, &c.ValuedQuantity, &c.EntryCount, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.ProductCost{TenantID: scope.TenantID(), ProductID: productID, AvgCost: decimal.Zero, ValuedQuantity: decimal.Zero}, nil
		}
		return nil, err
	}
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
