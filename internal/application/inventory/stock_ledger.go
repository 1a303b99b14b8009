package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// Requirement cantidad requerida de un producto en la sede del Scope.
type Requirement struct {
	ProductID string
	Name      string
	Quantity  decimal.Decimal
}

// Applied resultado de un descuento aplicado.
type Applied struct {
	ProductID string
	Before    decimal.Decimal
	After     decimal.Decimal
}

// StockLedger libro de stock por sede. Las escrituras siempre ocurren dentro de la
// transacción del caller (stockRepo atado a la tx).
type StockLedger struct {
	committed repository.StockRepository
}

// NewStockLedger construye el libro. committed lee el estado confirmado (fuera de tx).
func NewStockLedger(committed repository.StockRepository) *StockLedger {
	return &StockLedger{committed: committed}
}

// GetQuantity cantidad confirmada del producto en la sede del Scope.
func (l *StockLedger) GetQuantity(ctx context.Context, scope tenant.Scope, productID string) (decimal.Decimal, error) {
	if err := scope.Validate(); err != nil {
		return decimal.Zero, err
	}
	s, err := l.committed.Get(ctx, scope, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get stock: %w", err)
	}
	return s.Quantity, nil
}

// TryDecrementAll descuenta todos los requerimientos o ninguno.
// Bloquea las filas en orden ascendente de producto (sin interbloqueos entre órdenes concurrentes),
// evalúa todas y, si alguna no alcanza, retorna *domain.ShortageError con la lista completa sin escribir.
func (l *StockLedger) TryDecrementAll(ctx context.Context, stockRepo repository.StockRepository, scope tenant.Scope, reqs []Requirement) ([]Applied, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	merged, err := mergeRequirements(reqs)
	if err != nil {
		return nil, err
	}

	applied := make([]Applied, 0, len(merged))
	var shortages []domain.Shortage
	for _, r := range merged {
		stock, err := stockRepo.GetForUpdate(ctx, scope, r.ProductID)
		if err != nil {
			return nil, err
		}
		if stock.Quantity.LessThan(r.Quantity) {
			shortages = append(shortages, domain.Shortage{
				ProductID: r.ProductID,
				Name:      r.Name,
				Required:  r.Quantity,
				Available: stock.Quantity,
			})
			continue
		}
		applied = append(applied, Applied{ProductID: r.ProductID, Before: stock.Quantity, After: stock.Quantity.Sub(r.Quantity)})
	}
	if len(shortages) > 0 {
		return nil, &domain.ShortageError{Shortages: shortages}
	}

	for _, a := range applied {
		if err := stockRepo.SetQuantity(ctx, scope, a.ProductID, a.After); err != nil {
			return nil, err
		}
	}
	return applied, nil
}

// Increment suma cantidad al stock creando la fila si no existe (get-or-create explícito).
func (l *StockLedger) Increment(ctx context.Context, stockRepo repository.StockRepository, scope tenant.Scope, productID string, qty decimal.Decimal) (Applied, error) {
	if err := scope.Validate(); err != nil {
		return Applied{}, err
	}
	if !qty.IsPositive() {
		return Applied{}, fmt.Errorf("%w: cantidad de entrada debe ser positiva", domain.ErrInvalidInput)
	}
	stock, err := stockRepo.GetOrCreateForUpdate(ctx, scope, productID)
	if err != nil {
		return Applied{}, err
	}
	after := stock.Quantity.Add(qty)
	if err := stockRepo.SetQuantity(ctx, scope, productID, after); err != nil {
		return Applied{}, err
	}
	return Applied{ProductID: productID, Before: stock.Quantity, After: after}, nil
}

// mergeRequirements suma requerimientos del mismo producto y los ordena por ID.
func mergeRequirements(reqs []Requirement) ([]Requirement, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: sin componentes a descontar", domain.ErrInvalidInput)
	}
	byID := make(map[string]int, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.ProductID == "" || !r.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: requerimiento inválido para %q", domain.ErrInvalidInput, r.ProductID)
		}
		if i, ok := byID[r.ProductID]; ok {
			out[i].Quantity = out[i].Quantity.Add(r.Quantity)
			continue
		}
		byID[r.ProductID] = len(out)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
