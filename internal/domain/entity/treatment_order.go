package entity

import "github.com/shopspring/decimal"

// Tipos de frasco (etapas de dilución).
const (
	BottleMadre    = "MADRE"
	BottleAmarillo = "AMARILLO"
	BottleVerde    = "VERDE"
)

// TreatmentOrder es la unidad de consumo clínico. La crea el flujo clínico; este núcleo solo la lee.
// DoseQuantity es número de dosis (Alxoid, Sublingual) o unidades (Glicerinado por unidad).
// Bottles aplica a Glicerinado por frasco: cada nombre de frasco equivale a un número fijo de unidades.
type TreatmentOrder struct {
	ID                string
	PatientID         string
	TenantID          string
	SiteID            string
	Subtype           string
	DoseQuantity      decimal.Decimal
	FactorFrascoMadre decimal.Decimal // cero = 1
	Allergens         []string
	BottleType        string
	Bottles           []string
	CreatedBy         string
}
