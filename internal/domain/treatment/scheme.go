package treatment

import (
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Basis define cómo se expresa la dosis de la orden.
type Basis int

const (
	BasisDose    Basis = iota + 1 // número de dosis; ml = AllergenRate * dosis
	BasisUnits                    // unidades; ml = unidades / 10000 * factorFrascoMadre
	BasisBottles                  // frascos con nombre, cada uno equivale a BottleUnits[nombre] unidades
)

// DiluentKind define la fórmula de un diluyente.
type DiluentKind int

const (
	DiluentByBottle  DiluentKind = iota + 1 // unidades / 10000 * BottleFactors[tipo de frasco]
	DiluentPerFactor                        // factorFrascoMadre * Rate, una vez por orden
	DiluentPerDose                          // dosis * Rate, una vez por orden
)

// DiluentRule asocia un diluyente del catálogo (por nombre) con su fórmula.
type DiluentRule struct {
	Name          string
	Kind          DiluentKind
	Rate          decimal.Decimal
	BottleFactors map[string]decimal.Decimal
}

// Scheme describe un subtipo como datos. Agregar un subtipo es agregar un Scheme.
type Scheme struct {
	Subtype      Subtype
	Basis        Basis
	AllergenRate decimal.Decimal
	BottleUnits  map[string]decimal.Decimal
	Diluents     []DiluentRule
}

// DiluentNames nombres de catálogo de los diluyentes (configurables por despliegue).
type DiluentNames struct {
	Evans      string
	Bacteriana string
}

// unitsPerML es la concentración del frasco madre: 10000 unidades por ml.
var unitsPerML = decimal.NewFromInt(10000)

// DefaultSchemes tabla base de subtipos.
func DefaultSchemes(names DiluentNames) []Scheme {
	if names.Evans == "" {
		names.Evans = "Evans"
	}
	if names.Bacteriana == "" {
		names.Bacteriana = "Bacteriana"
	}
	evans := DiluentRule{
		Name: names.Evans,
		Kind: DiluentByBottle,
		BottleFactors: map[string]decimal.Decimal{
			entity.BottleMadre:    decimal.Zero,
			entity.BottleAmarillo: decimal.NewFromInt(9),
			entity.BottleVerde:    decimal.NewFromInt(99),
		},
	}
	bacterianaGlicerinado := DiluentRule{
		Name: names.Bacteriana,
		Kind: DiluentPerFactor,
		Rate: decimal.RequireFromString("0.1"),
	}
	return []Scheme{
		{Subtype: AlxoidA, Basis: BasisDose, AllergenRate: decimal.RequireFromString("0.5")},
		{Subtype: AlxoidB, Basis: BasisDose, AllergenRate: decimal.RequireFromString("0.5")},
		{Subtype: AlxoidB2, Basis: BasisDose, AllergenRate: decimal.RequireFromString("0.2")},
		{
			Subtype:  GlicerinadoUnidad,
			Basis:    BasisUnits,
			Diluents: []DiluentRule{evans, bacterianaGlicerinado},
		},
		{
			Subtype: GlicerinadoFrasco,
			Basis:   BasisBottles,
			BottleUnits: map[string]decimal.Decimal{
				entity.BottleMadre:    decimal.NewFromInt(10000),
				entity.BottleAmarillo: decimal.NewFromInt(1000),
				entity.BottleVerde:    decimal.NewFromInt(100),
			},
			Diluents: []DiluentRule{evans, bacterianaGlicerinado},
		},
		{
			Subtype:      Sublingual,
			Basis:        BasisDose,
			AllergenRate: decimal.RequireFromString("0.1"),
			Diluents: []DiluentRule{{
				Name: names.Bacteriana,
				Kind: DiluentPerDose,
				Rate: decimal.RequireFromString("0.5"),
			}},
		},
	}
}
