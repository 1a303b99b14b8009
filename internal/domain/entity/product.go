package entity

import "time"

// Categorías de producto del catálogo clínico.
const (
	CategoryAllergen       = "allergen"
	CategoryDiluent        = "diluent"
	CategoryMedication     = "medication"
	CategoryTreatmentLabel = "treatment-label" // ej. "Alxoid": se resuelve en componentes, nunca se descuenta
)

// Unidades de medida.
const (
	UnitML    = "ml"
	UnitCount = "unit"
)

// Product representa una entrada del catálogo de una organización (tenant).
// Category y UnitMeasure son inmutables después de la creación.
type Product struct {
	ID          string
	TenantID    string
	Name        string
	Category    string
	UnitMeasure string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsComponent indica si el producto puede consumirse como componente de un tratamiento.
func (p *Product) IsComponent() bool {
	return p.Category == CategoryAllergen || p.Category == CategoryDiluent
}
