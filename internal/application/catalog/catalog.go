// Package catalog resuelve referencias de tratamiento (ID o nombre) a productos
// del catálogo de la organización.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// Catalog servicio de búsqueda de productos por organización.
type Catalog struct {
	products repository.ProductRepository
	cache    *Cache
	guard    *tenant.Guard
}

// New construye el catálogo. cache puede ser nil.
func New(products repository.ProductRepository, cache *Cache, guard *tenant.Guard) *Catalog {
	if guard == nil {
		guard = tenant.NewGuard(nil)
	}
	return &Catalog{products: products, cache: cache, guard: guard}
}

// ResolveProduct busca por ID y, si no existe, por nombre normalizado.
// Un producto de otra organización es indistinguible de uno inexistente.
func (c *Catalog) ResolveProduct(ctx context.Context, scope tenant.Scope, ref string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &domain.UnknownComponentError{Refs: []string{ref}, Reason: "referencia vacía"}
	}
	if p, ok := c.cache.Get(scope.TenantID(), ref); ok {
		return p, nil
	}

	p, err := c.products.GetByID(ctx, scope, ref)
	if err != nil {
		return nil, &domain.StorageFaultError{Op: "buscar producto", Err: err}
	}
	if p == nil {
		p, err = c.products.GetByNormalizedName(ctx, scope, Normalize(ref))
		if err != nil {
			return nil, &domain.StorageFaultError{Op: "buscar producto por nombre", Err: err}
		}
	}
	if p == nil {
		return nil, &domain.UnknownComponentError{Refs: []string{ref}, Reason: "no existe en el catálogo"}
	}
	if err := c.guard.CheckOwnership(scope, p.TenantID, "producto "+p.ID); err != nil {
		return nil, err
	}
	c.cache.Add(scope.TenantID(), ref, p)
	return p, nil
}

// ResolveComponent resuelve y exige la categoría dada (allergen o diluent).
func (c *Catalog) ResolveComponent(ctx context.Context, scope tenant.Scope, ref, category string) (*entity.Product, error) {
	p, err := c.ResolveProduct(ctx, scope, ref)
	if err != nil {
		return nil, err
	}
	if p.Category != category {
		return nil, &domain.UnknownComponentError{Refs: []string{ref}, Reason: "categoría " + p.Category + ", se esperaba " + category}
	}
	return p, nil
}

// ResolveAll resuelve todas las referencias y reporta juntas todas las que fallaron.
// Errores de almacenamiento o de aislamiento se devuelven de inmediato.
func (c *Catalog) ResolveAll(ctx context.Context, scope tenant.Scope, refs []string, category string) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(refs))
	var unknown []string
	reason := ""
	for _, ref := range refs {
		p, err := c.ResolveComponent(ctx, scope, ref, category)
		if err != nil {
			var uc *domain.UnknownComponentError
			if !errors.As(err, &uc) {
				return nil, err
			}
			unknown = append(unknown, ref)
			if reason == "" {
				reason = uc.Reason
			}
			continue
		}
		out = append(out, p)
	}
	if len(unknown) > 0 {
		if len(unknown) > 1 {
			reason = ""
		}
		return nil, &domain.UnknownComponentError{Refs: unknown, Reason: reason}
	}
	return out, nil
}

// Purge invalida la caché del catálogo.
func (c *Catalog) Purge() {
	c.cache.Purge()
}
