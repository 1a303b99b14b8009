// Package tenant concentra el aislamiento por organización y sede.
// Todo acceso a catálogo, stock o costos recibe un Scope; no existe forma de
// construir uno sin organización ni sede.
package tenant

import (
	"context"
	"strings"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
)

// Scope identifica la organización, la sede y el usuario autenticado de una operación.
type Scope struct {
	tenantID string
	siteID   string
	userID   string
}

// NewScope valida y construye el alcance. Organización y sede son obligatorias.
func NewScope(tenantID, siteID, userID string) (Scope, error) {
	tenantID = strings.TrimSpace(tenantID)
	siteID = strings.TrimSpace(siteID)
	if tenantID == "" {
		return Scope{}, &domain.TenantMismatchError{What: "organización ausente"}
	}
	if siteID == "" {
		return Scope{}, &domain.TenantMismatchError{What: "sede ausente", Got: tenantID}
	}
	return Scope{tenantID: tenantID, siteID: siteID, userID: strings.TrimSpace(userID)}, nil
}

func (s Scope) TenantID() string { return s.tenantID }
func (s Scope) SiteID() string   { return s.siteID }
func (s Scope) UserID() string   { return s.userID }

// Validate rechaza el Scope cero (p. ej. un struct sin inicializar).
func (s Scope) Validate() error {
	if s.tenantID == "" || s.siteID == "" {
		return &domain.TenantMismatchError{What: "alcance sin organización o sede"}
	}
	return nil
}

type scopeKey struct{}

// WithScope adjunta el alcance autenticado al contexto (lo hace el middleware de auth).
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext devuelve el alcance autenticado, si existe.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || s.Validate() != nil {
		return Scope{}, false
	}
	return s, true
}
