package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// errNegativeStock la fila violaría CHECK (quantity >= 0).
var errNegativeStock = errors.New("site_stock: quantity must be >= 0")

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockSelect = `
		SELECT tenant_id, site_id, product_id, quantity, updated_at
		FROM site_stock WHERE tenant_id = $1 AND site_id = $2 AND product_id = $3`

// Get obtiene el stock actual de un producto en la sede del alcance.
func (r *StockRepo) Get(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	s, err := r.get(ctx, scope, productID, stockSelect)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	s, err := r.get(ctx, scope, productID, stockSelect+` FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// GetOrCreateForUpdate inserta la fila en cero si no existe (sin tocar una existente) y luego la bloquea.
func (r *StockRepo) GetOrCreateForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	insert := `
		INSERT INTO site_stock (tenant_id, site_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (tenant_id, site_id, product_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, scope.TenantID(), scope.SiteID(), productID); err != nil {
		return nil, fmt.Errorf("create stock row: %w", err)
	}
	return r.GetForUpdate(ctx, scope, productID)
}

// SetQuantity escribe la cantidad de la fila (ya bloqueada por el caller).
func (r *StockRepo) SetQuantity(ctx context.Context, scope tenant.Scope, productID string, qty decimal.Decimal) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if qty.IsNegative() {
		return errNegativeStock
	}
	query := `
		INSERT INTO site_stock (tenant_id, site_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (tenant_id, site_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, scope.TenantID(), scope.SiteID(), productID, qty)
	if err != nil {
		if isCheckViolation(err) {
			return errNegativeStock
		}
		return fmt.Errorf("set stock quantity: %w", err)
	}
	return nil
}

func (r *StockRepo) get(ctx context.Context, scope tenant.Scope, productID, query string) (*entity.SiteStock, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var s entity.SiteStock
	err := r.q.QueryRow(ctx, query, scope.TenantID(), scope.SiteID(), productID).Scan(
		&s.TenantID, &s.SiteID, &s.ProductID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.SiteStock{TenantID: scope.TenantID(), SiteID: scope.SiteID(), ProductID: productID, Quantity: decimal.Zero}, nil
		}
		return nil, err
	}
	return &s, nil
}
