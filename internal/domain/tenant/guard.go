package tenant

import (
	"context"
	"errors"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/pkg/logger"
)

// Guard verifica que cada operación apunte a la organización y sede del contexto autenticado.
// Nunca corrige el destino: una discrepancia siempre se rechaza.
type Guard struct {
	log *logger.Logger
}

// NewGuard construye el guard. log puede ser nil.
func NewGuard(log *logger.Logger) *Guard {
	if log == nil {
		log = logger.Nop()
	}
	return &Guard{log: log}
}

// Authorize compara la organización/sede pedidas con el alcance autenticado del contexto.
func (g *Guard) Authorize(ctx context.Context, tenantID, siteID string) (Scope, error) {
	auth, ok := FromContext(ctx)
	if !ok {
		return Scope{}, g.reject(&domain.TenantMismatchError{What: "contexto sin autenticación", Got: tenantID})
	}
	if tenantID != auth.tenantID {
		return Scope{}, g.reject(&domain.TenantMismatchError{What: "organización", Expected: auth.tenantID, Got: tenantID})
	}
	if siteID != auth.siteID {
		return Scope{}, g.reject(&domain.TenantMismatchError{What: "sede", Expected: auth.siteID, Got: siteID})
	}
	return auth, nil
}

// CheckOwnership rechaza un recurso cuya organización no coincide con el alcance.
func (g *Guard) CheckOwnership(s Scope, resourceTenantID, what string) error {
	if err := s.Validate(); err != nil {
		return g.reject(err)
	}
	if resourceTenantID != s.tenantID {
		return g.reject(&domain.TenantMismatchError{What: what, Expected: s.tenantID, Got: resourceTenantID})
	}
	return nil
}

// CheckSite rechaza un recurso de otra sede.
func (g *Guard) CheckSite(s Scope, resourceSiteID, what string) error {
	if resourceSiteID != s.siteID {
		return g.reject(&domain.TenantMismatchError{What: what, Expected: s.siteID, Got: resourceSiteID})
	}
	return nil
}

func (g *Guard) reject(err error) error {
	var tm *domain.TenantMismatchError
	ev := g.log.Security().Err(err)
	if errors.As(err, &tm) {
		ev = ev.Str("what", tm.What).Str("expected_tenant", tm.Expected).Str("got_tenant", tm.Got)
	}
	ev.Msg("violación de aislamiento de organización")
	return err
}
