package treatment

import (
	"fmt"
	"strings"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/shopspring/decimal"
)

// Tipos de componente.
const (
	KindAllergen = "ALLERGEN"
	KindDiluent  = "DILUENT"
)

// DefaultVolumeDecimals decimales a los que se redondea cada volumen antes de persistir.
const DefaultVolumeDecimals = 4

// Ref es un producto ya resuelto contra el catálogo.
type Ref struct {
	ProductID string
	Name      string
}

// Input es la orden con los identificadores resueltos.
// Diluents mapea nombre de diluyente (según DiluentNames) a su producto.
type Input struct {
	Subtype           Subtype
	Dose              decimal.Decimal
	FactorFrascoMadre decimal.Decimal
	BottleType        string
	Bottles           []string
	Allergens         []Ref
	Diluents          map[string]Ref
}

// Component es el consumo de un producto calculado para la orden.
type Component struct {
	ProductID string
	Name      string
	Kind      string
	VolumeML  decimal.Decimal
}

// Engine evalúa los esquemas de dosificación.
type Engine struct {
	schemes  map[Subtype]Scheme
	decimals int32
}

// Option configura el motor.
type Option func(*Engine)

// WithVolumeDecimals fija los decimales de redondeo de volumen.
func WithVolumeDecimals(n int32) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.decimals = n
		}
	}
}

// NewEngine construye el motor con la tabla de esquemas dada. Un esquema repetido reemplaza al anterior.
func NewEngine(schemes []Scheme, opts ...Option) (*Engine, error) {
	e := &Engine{schemes: make(map[Subtype]Scheme, len(schemes)), decimals: DefaultVolumeDecimals}
	for _, s := range schemes {
		if err := validateScheme(s); err != nil {
			return nil, err
		}
		e.schemes[s.Subtype] = s
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func validateScheme(s Scheme) error {
	if s.Subtype == "" {
		return fmt.Errorf("esquema sin subtipo")
	}
	switch s.Basis {
	case BasisDose:
		if !s.AllergenRate.IsPositive() {
			return fmt.Errorf("esquema %s: tasa de alérgeno debe ser positiva", s.Subtype)
		}
	case BasisUnits:
	case BasisBottles:
		if len(s.BottleUnits) == 0 {
			return fmt.Errorf("esquema %s: sin tabla de frascos", s.Subtype)
		}
	default:
		return fmt.Errorf("esquema %s: base de dosis desconocida", s.Subtype)
	}
	for _, d := range s.Diluents {
		if d.Name == "" {
			return fmt.Errorf("esquema %s: diluyente sin nombre", s.Subtype)
		}
		if d.Kind == DiluentByBottle && s.Basis == BasisDose {
			return fmt.Errorf("esquema %s: diluyente por frasco requiere dosis en unidades", s.Subtype)
		}
	}
	return nil
}

// Supports indica si el subtipo tiene esquema.
func (e *Engine) Supports(st Subtype) bool {
	_, ok := e.schemes[st]
	return ok
}

// DiluentNames devuelve los diluyentes que el subtipo necesita resolver en el catálogo.
func (e *Engine) DiluentNames(st Subtype) ([]string, error) {
	s, ok := e.schemes[st]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubtype, st)
	}
	names := make([]string, 0, len(s.Diluents))
	for _, d := range s.Diluents {
		names = append(names, d.Name)
	}
	return names, nil
}

// batch es una porción de la orden expresada en unidades con su tipo de frasco.
type batch struct {
	units  decimal.Decimal
	bottle string
}

// Compute calcula los componentes de la orden. Ante cualquier error no devuelve resultado parcial.
func (e *Engine) Compute(in Input) ([]Component, error) {
	s, ok := e.schemes[in.Subtype]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubtype, in.Subtype)
	}
	if len(in.Allergens) == 0 {
		return nil, ErrNoAllergens
	}
	seen := make(map[string]struct{}, len(in.Allergens))
	for _, a := range in.Allergens {
		if _, dup := seen[a.ProductID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, a.Name)
		}
		seen[a.ProductID] = struct{}{}
	}

	factor := in.FactorFrascoMadre
	if factor.IsZero() {
		factor = decimal.NewFromInt(1)
	}
	if factor.IsNegative() {
		return nil, ErrInvalidFactor
	}

	batches, err := e.batches(s, in)
	if err != nil {
		return nil, err
	}

	var allergenML decimal.Decimal
	if s.Basis == BasisDose {
		allergenML = s.AllergenRate.Mul(in.Dose)
	} else {
		for _, b := range batches {
			allergenML = allergenML.Add(b.units.Div(unitsPerML).Mul(factor))
		}
	}

	out := make([]Component, 0, len(in.Allergens)+len(s.Diluents))
	for _, a := range in.Allergens {
		out = append(out, Component{ProductID: a.ProductID, Name: a.Name, Kind: KindAllergen, VolumeML: allergenML})
	}

	for _, d := range s.Diluents {
		var ml decimal.Decimal
		switch d.Kind {
		case DiluentByBottle:
			for _, b := range batches {
				f, ok := d.BottleFactors[b.bottle]
				if !ok {
					return nil, fmt.Errorf("%w: %q", ErrBottleType, b.bottle)
				}
				ml = ml.Add(b.units.Div(unitsPerML).Mul(f))
			}
		case DiluentPerFactor:
			ml = factor.Mul(d.Rate)
		case DiluentPerDose:
			ml = in.Dose.Mul(d.Rate)
		}
		if ml.IsZero() {
			// frasco madre: no lleva Evans
			continue
		}
		ref, ok := in.Diluents[d.Name]
		if !ok || ref.ProductID == "" {
			return nil, &domain.UnknownComponentError{Refs: []string{d.Name}, Reason: "diluyente no resuelto"}
		}
		if ref.Name == "" {
			ref.Name = d.Name
		}
		out = append(out, Component{ProductID: ref.ProductID, Name: ref.Name, Kind: KindDiluent, VolumeML: ml})
	}

	return e.finish(out), nil
}

func (e *Engine) batches(s Scheme, in Input) ([]batch, error) {
	switch s.Basis {
	case BasisDose, BasisUnits:
		if !in.Dose.IsPositive() {
			return nil, ErrInvalidDose
		}
		if s.Basis == BasisDose {
			return nil, nil
		}
		bottle := strings.ToUpper(strings.TrimSpace(in.BottleType))
		if bottle == "" && needsBottle(s) {
			return nil, fmt.Errorf("%w: requerido para %s", ErrBottleType, s.Subtype)
		}
		return []batch{{units: in.Dose, bottle: bottle}}, nil
	case BasisBottles:
		if len(in.Bottles) == 0 {
			return nil, ErrInvalidDose
		}
		out := make([]batch, 0, len(in.Bottles))
		for _, name := range in.Bottles {
			key := strings.ToUpper(strings.TrimSpace(name))
			units, ok := s.BottleUnits[key]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrBottleType, name)
			}
			out = append(out, batch{units: units, bottle: key})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSubtype, s.Subtype)
}

func needsBottle(s Scheme) bool {
	for _, d := range s.Diluents {
		if d.Kind == DiluentByBottle {
			return true
		}
	}
	return false
}

// finish redondea y fusiona componentes del mismo producto conservando el orden de aparición.
func (e *Engine) finish(in []Component) []Component {
	idx := make(map[string]int, len(in))
	out := make([]Component, 0, len(in))
	for _, c := range in {
		if i, ok := idx[c.ProductID]; ok {
			out[i].VolumeML = out[i].VolumeML.Add(c.VolumeML)
			continue
		}
		idx[c.ProductID] = len(out)
		out = append(out, c)
	}
	for i := range out {
		out[i].VolumeML = out[i].VolumeML.Round(e.decimals)
	}
	return out
}

// TotalVolume suma los volúmenes de un tipo de componente.
func TotalVolume(cs []Component, kind string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		if c.Kind == kind {
			total = total.Add(c.VolumeML)
		}
	}
	return total
}
