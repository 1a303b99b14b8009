package repository

import (
	"context"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
)

// SiteRepository puerto de sedes. GetByID no filtra por organización: el caller compara
// Site.TenantID con el alcance autenticado y rechaza la discrepancia.
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Site, error)
}
