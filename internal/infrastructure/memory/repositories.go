package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

var (
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.SiteRepository     = (*SiteRepo)(nil)
	_ repository.StockRepository    = (*StockRepo)(nil)
	_ repository.CostRepository     = (*CostRepo)(nil)
	_ repository.MovementRepository = (*MovementRepo)(nil)
)

// errNegativeStock imita el CHECK (quantity >= 0) de la tabla site_stock.
var errNegativeStock = errors.New("site_stock: quantity must be >= 0")

// ProductRepo catálogo en memoria.
type ProductRepo struct{ v view }

func (r *ProductRepo) GetByID(_ context.Context, scope tenant.Scope, id string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *entity.Product
	err := r.v.read(func(st *state) error {
		row, ok := st.products[id]
		if ok && row.p.TenantID == scope.TenantID() {
			p := row.p
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByNormalizedName(_ context.Context, scope tenant.Scope, normalized string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *entity.Product
	err := r.v.read(func(st *state) error {
		for _, row := range st.products {
			if row.p.TenantID == scope.TenantID() && row.normalized == normalized {
				p := row.p
				out = &p
				return nil
			}
		}
		return nil
	})
	return out, err
}

// SiteRepo sedes en memoria.
type SiteRepo struct{ v view }

func (r *SiteRepo) GetByID(_ context.Context, id string) (*entity.Site, error) {
	var out *entity.Site
	err := r.v.read(func(st *state) error {
		if s, ok := st.sites[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

// StockRepo stock por sede en memoria.
type StockRepo struct{ v view }

func key(scope tenant.Scope, productID string) stockKey {
	return stockKey{tenant: scope.TenantID(), site: scope.SiteID(), product: productID}
}

func (r *StockRepo) Get(_ context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out entity.SiteStock
	err := r.v.read(func(st *state) error {
		s, ok := st.stock[key(scope, productID)]
		if !ok {
			s = entity.SiteStock{TenantID: scope.TenantID(), SiteID: scope.SiteID(), ProductID: productID, Quantity: decimal.Zero}
		}
		out = s
		return nil
	})
	return &out, err
}

// GetForUpdate dentro de una transacción el Store ya está bloqueado; equivale a Get.
func (r *StockRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	return r.Get(ctx, scope, productID)
}

func (r *StockRepo) GetOrCreateForUpdate(_ context.Context, scope tenant.Scope, productID string) (*entity.SiteStock, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out entity.SiteStock
	err := r.v.write(func(st *state) error {
		k := key(scope, productID)
		s, ok := st.stock[k]
		if !ok {
			s = entity.SiteStock{TenantID: scope.TenantID(), SiteID: scope.SiteID(), ProductID: productID, Quantity: decimal.Zero, UpdatedAt: r.v.now()}
			st.stock[k] = s
		}
		out = s
		return nil
	})
	return &out, err
}

func (r *StockRepo) SetQuantity(_ context.Context, scope tenant.Scope, productID string, qty decimal.Decimal) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if qty.IsNegative() {
		return errNegativeStock
	}
	return r.v.write(func(st *state) error {
		st.stock[key(scope, productID)] = entity.SiteStock{
			TenantID: scope.TenantID(), SiteID: scope.SiteID(), ProductID: productID,
			Quantity: qty, UpdatedAt: r.v.now(),
		}
		return nil
	})
}

// CostRepo libro de costos en memoria.
type CostRepo struct{ v view }

func (r *CostRepo) AppendEntry(_ context.Context, scope tenant.Scope, entry *entity.CostEntry) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.TenantID = scope.TenantID()
	return r.v.write(func(st *state) error {
		st.entries = append(st.entries, *entry)
		return nil
	})
}

func (r *CostRepo) Get(_ context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out entity.ProductCost
	err := r.v.read(func(st *state) error {
		c, ok := st.costs[costKey{scope.TenantID(), productID}]
		if !ok {
			c = entity.ProductCost{TenantID: scope.TenantID(), ProductID: productID}
		}
		out = c
		return nil
	})
	return &out, err
}

func (r *CostRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, productID string) (*entity.ProductCost, error) {
	return r.Get(ctx, scope, productID)
}

func (r *CostRepo) Save(_ context.Context, scope tenant.Scope, cost *entity.ProductCost) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	c := *cost
	c.TenantID = scope.TenantID()
	c.UpdatedAt = r.v.now()
	return r.v.write(func(st *state) error {
		st.costs[costKey{c.TenantID, c.ProductID}] = c
		return nil
	})
}

func (r *CostRepo) ListEntries(_ context.Context, scope tenant.Scope, productID string) ([]*entity.CostEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out []*entity.CostEntry
	err := r.v.read(func(st *state) error {
		for i := range st.entries {
			e := st.entries[i]
			if e.TenantID == scope.TenantID() && e.ProductID == productID {
				out = append(out, &e)
			}
		}
		return nil
	})
	return out, err
}

// MovementRepo libro de movimientos en memoria.
type MovementRepo struct{ v view }

func (r *MovementRepo) Create(_ context.Context, scope tenant.Scope, m *entity.Movement) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.TenantID = scope.TenantID()
	m.SiteID = scope.SiteID()
	return r.v.write(func(st *state) error {
		if m.ReversalOf != "" {
			for _, prev := range st.movements {
				if prev.ReversalOf == m.ReversalOf {
					return fmt.Errorf("%w: movimiento %s ya revertido", domain.ErrConflict, m.ReversalOf)
				}
			}
		}
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepo) ListByOrder(_ context.Context, scope tenant.Scope, orderID string) ([]*entity.Movement, error) {
	return r.filter(scope, func(m *entity.Movement) bool { return m.OrderID == orderID }, 0, 0)
}

func (r *MovementRepo) ListByProduct(_ context.Context, scope tenant.Scope, productID string, limit, offset int) ([]*entity.Movement, error) {
	return r.filter(scope, func(m *entity.Movement) bool { return m.ProductID == productID }, limit, offset)
}

// filter devuelve los movimientos de la sede del Scope en orden de inserción.
func (r *MovementRepo) filter(scope tenant.Scope, match func(*entity.Movement) bool, limit, offset int) ([]*entity.Movement, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out []*entity.Movement
	err := r.v.read(func(st *state) error {
		for i := range st.movements {
			m := st.movements[i]
			if m.TenantID != scope.TenantID() || m.SiteID != scope.SiteID() || !match(&m) {
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
