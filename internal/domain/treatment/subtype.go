// Package treatment es el motor de fórmulas de inmunoterapia: traduce una orden
// de tratamiento en volúmenes (ml) por componente. Es cálculo puro, sin I/O.
package treatment

import (
	"fmt"
	"strings"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
)

// Subtype es el subtipo de tratamiento (enumeración cerrada).
type Subtype string

const (
	AlxoidA           Subtype = "ALXOID_A"
	AlxoidB           Subtype = "ALXOID_B"
	AlxoidB2          Subtype = "ALXOID_B2"
	GlicerinadoUnidad Subtype = "GLICERINADO_UNIDAD"
	GlicerinadoFrasco Subtype = "GLICERINADO_FRASCO"
	Sublingual        Subtype = "SUBLINGUAL"
)

var (
	ErrUnknownSubtype = fmt.Errorf("%w: subtipo de tratamiento desconocido", domain.ErrInvalidInput)
	ErrInvalidDose    = fmt.Errorf("%w: la dosis debe ser mayor que cero", domain.ErrInvalidInput)
	ErrNoAllergens    = fmt.Errorf("%w: la lista de alérgenos está vacía", domain.ErrInvalidInput)
	ErrDuplicate      = fmt.Errorf("%w: alérgeno repetido en la orden", domain.ErrInvalidInput)
	ErrBottleType     = fmt.Errorf("%w: tipo de frasco inválido", domain.ErrInvalidInput)
	ErrInvalidFactor  = fmt.Errorf("%w: factor de frasco madre inválido", domain.ErrInvalidInput)
)

var subtypeAliases = map[string]Subtype{
	"ALXOID_B.2": AlxoidB2,
	"ALXOID_B_2": AlxoidB2,
}

// ParseSubtype normaliza el nombre recibido del flujo clínico ("alxoid_a", "Alxoid B.2").
// No valida contra el motor: un subtipo sin esquema se rechaza en Compute.
func ParseSubtype(s string) Subtype {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if st, ok := subtypeAliases[key]; ok {
		return st
	}
	return Subtype(key)
}

// ReportingFamily agrupa subtipos para reportes de costo: B2 es una variante de dosificación de B.
func (s Subtype) ReportingFamily() Subtype {
	if s == AlxoidB2 {
		return AlxoidB
	}
	return s
}
