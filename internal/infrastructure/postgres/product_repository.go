package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, tenant_id, name, category, unit_measure, created_at, updated_at`

// GetByID obtiene un producto por ID dentro de la organización del alcance.
func (r *ProductRepo) GetByID(ctx context.Context, scope tenant.Scope, id string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, scope.TenantID(), id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByNormalizedName obtiene un producto por nombre normalizado (columna normalized_name).
func (r *ProductRepo) GetByNormalizedName(ctx context.Context, scope tenant.Scope, normalized string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND normalized_name = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, scope.TenantID(), normalized))
	if err != nil {
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Category, &p.UnitMeasure, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
