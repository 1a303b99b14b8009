package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// SiteAuthorizer valida organización y sede de una operación: primero contra el contexto
// autenticado (Guard) y luego que la sede pertenezca a la organización.
type SiteAuthorizer struct {
	guard *tenant.Guard
	sites repository.SiteRepository
}

// NewSiteAuthorizer construye el autorizador. sites puede ser nil (sin verificación de sede en BD).
func NewSiteAuthorizer(guard *tenant.Guard, sites repository.SiteRepository) *SiteAuthorizer {
	if guard == nil {
		guard = tenant.NewGuard(nil)
	}
	return &SiteAuthorizer{guard: guard, sites: sites}
}

// Guard devuelve el guard subyacente.
func (a *SiteAuthorizer) Guard() *tenant.Guard { return a.guard }

// Authorize retorna el Scope de la operación o *domain.TenantMismatchError.
func (a *SiteAuthorizer) Authorize(ctx context.Context, tenantID, siteID string) (tenant.Scope, error) {
	scope, err := a.guard.Authorize(ctx, tenantID, siteID)
	if err != nil {
		return tenant.Scope{}, err
	}
	if a.sites == nil {
		return scope, nil
	}
	site, err := a.sites.GetByID(ctx, siteID)
	if err != nil {
		return tenant.Scope{}, &domain.StorageFaultError{Op: "buscar sede", Err: err}
	}
	if site == nil {
		return tenant.Scope{}, a.guard.CheckOwnership(scope, "", "sede "+siteID)
	}
	if err := a.guard.CheckOwnership(scope, site.TenantID, "sede "+siteID); err != nil {
		return tenant.Scope{}, err
	}
	return scope, nil
}

// AsStorageFault conserva los errores de dominio y envuelve el resto como falla de almacenamiento.
func AsStorageFault(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		domain.ErrInvalidInput, domain.ErrUnknownComponent, domain.ErrInsufficientStock,
		domain.ErrTenantMismatch, domain.ErrStorage, domain.ErrNotFound, domain.ErrConflict,
		domain.ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &domain.StorageFaultError{Op: op, Err: err}
}
