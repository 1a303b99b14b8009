package tenant_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/pkg/logger"
)

func TestNewScope_RequiereOrganizacionYSede(t *testing.T) {
	_, err := tenant.NewScope("", "sede-1", "u")
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	_, err = tenant.NewScope("org-1", "  ", "u")
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	s, err := tenant.NewScope(" org-1 ", "sede-1", "u")
	require.NoError(t, err)
	assert.Equal(t, "org-1", s.TenantID())
	assert.NoError(t, s.Validate())

	assert.Error(t, tenant.Scope{}.Validate())
}

func TestFromContext_SinAlcance(t *testing.T) {
	_, ok := tenant.FromContext(context.Background())
	assert.False(t, ok)

	ctx := tenant.WithScope(context.Background(), tenant.Scope{})
	_, ok = tenant.FromContext(ctx)
	assert.False(t, ok)
}

func TestGuard_AuthorizeRechazaYRegistraEventoDeSeguridad(t *testing.T) {
	var buf bytes.Buffer
	g := tenant.NewGuard(logger.New(logger.Config{Env: "production", Level: "info", Output: &buf}))
	s, err := tenant.NewScope("org-1", "sede-1", "u-1")
	require.NoError(t, err)
	ctx := tenant.WithScope(context.Background(), s)

	got, err := g.Authorize(ctx, "org-1", "sede-1")
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Zero(t, buf.Len())

	_, err = g.Authorize(ctx, "org-2", "sede-1")
	var tm *domain.TenantMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "org-1", tm.Expected)
	assert.Equal(t, "org-2", tm.Got)
	assert.Contains(t, buf.String(), `"category":"security"`)
	assert.Contains(t, buf.String(), `"got_tenant":"org-2"`)

	_, err = g.Authorize(ctx, "org-1", "sede-2")
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	_, err = g.Authorize(context.Background(), "org-1", "sede-1")
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
}

func TestGuard_CheckOwnershipYSede(t *testing.T) {
	g := tenant.NewGuard(nil)
	s, err := tenant.NewScope("org-1", "sede-1", "u-1")
	require.NoError(t, err)

	assert.NoError(t, g.CheckOwnership(s, "org-1", "producto"))
	assert.ErrorIs(t, g.CheckOwnership(s, "org-2", "producto"), domain.ErrTenantMismatch)
	assert.ErrorIs(t, g.CheckOwnership(tenant.Scope{}, "org-1", "producto"), domain.ErrTenantMismatch)
	assert.NoError(t, g.CheckSite(s, "sede-1", "orden"))
	assert.ErrorIs(t, g.CheckSite(s, "sede-9", "orden"), domain.ErrTenantMismatch)
}
