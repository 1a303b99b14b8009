package repository

import (
	"context"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// ProductRepository puerto de lectura del catálogo, siempre filtrado por organización.
// Retorna (nil, nil) si el producto no existe en la organización del Scope.
type ProductRepository interface {
	GetByID(ctx context.Context, scope tenant.Scope, id string) (*entity.Product, error)
	// GetByNormalizedName busca por nombre normalizado (minúsculas, sin tildes).
	GetByNormalizedName(ctx context.Context, scope tenant.Scope, normalized string) (*entity.Product, error)
}
