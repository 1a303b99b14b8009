package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-clinica/internal/domain/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
)

// Basis base de costo vigente de un producto. Defined es false si nunca hubo una entrada de costo.
type Basis struct {
	AvgCost decimal.Decimal
	Defined bool
}

// CostLedger libro de costos: promedio ponderado móvil por (organización, producto).
// Es la única fuente de verdad para valorizar consumos.
type CostLedger struct {
	committed repository.CostRepository
	nowFn     func() time.Time
}

// NewCostLedger construye el libro. committed lee el estado confirmado (fuera de tx).
func NewCostLedger(committed repository.CostRepository) *CostLedger {
	return &CostLedger{committed: committed, nowFn: time.Now}
}

// CurrentBasis base de costo confirmada (consulta, fuera de transacción).
func (l *CostLedger) CurrentBasis(ctx context.Context, scope tenant.Scope, productID string) (Basis, error) {
	if err := scope.Validate(); err != nil {
		return Basis{}, err
	}
	c, err := l.committed.Get(ctx, scope, productID)
	if err != nil {
		return Basis{}, fmt.Errorf("get product cost: %w", err)
	}
	return Basis{AvgCost: c.AvgCost, Defined: c.HasBasis()}, nil
}

// Basis bloquea y devuelve la base de costo dentro de la transacción del caller,
// de modo que ninguna entrada concurrente cambie el promedio entre la lectura y el consumo.
func (l *CostLedger) Basis(ctx context.Context, costRepo repository.CostRepository, scope tenant.Scope, productID string) (Basis, error) {
	c, err := costRepo.GetForUpdate(ctx, scope, productID)
	if err != nil {
		return Basis{}, err
	}
	return Basis{AvgCost: c.AvgCost, Defined: c.HasBasis()}, nil
}

// LockBases bloquea las filas de costo de los productos en orden ascendente de ID y devuelve sus bases.
// Toda transacción bloquea primero stock y después costo, ambos ordenados, para no cruzarse con otra.
func (l *CostLedger) LockBases(ctx context.Context, costRepo repository.CostRepository, scope tenant.Scope, productIDs []string) (map[string]Basis, error) {
	ids := make([]string, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]Basis, len(ids))
	for _, id := range ids {
		b, err := l.Basis(ctx, costRepo, scope, id)
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

// RecordEntry agrega una entrada de costo y recalcula el promedio:
// nuevo = (promedio * cantValorizada + costoTotal) / (cantValorizada + cantidad).
func (l *CostLedger) RecordEntry(ctx context.Context, costRepo repository.CostRepository, scope tenant.Scope, productID string, qty, totalCost decimal.Decimal) (*entity.CostEntry, *entity.ProductCost, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	if !qty.IsPositive() || totalCost.IsNegative() {
		return nil, nil, fmt.Errorf("%w: entrada de costo inválida", domain.ErrInvalidInput)
	}
	now := l.nowFn()
	entry := &entity.CostEntry{
		ID:        uuid.New().String(),
		TenantID:  scope.TenantID(),
		SiteID:    scope.SiteID(),
		ProductID: productID,
		Quantity:  qty,
		TotalCost: totalCost,
		CreatedAt: now,
		CreatedBy: scope.UserID(),
	}
	if err := costRepo.AppendEntry(ctx, scope, entry); err != nil {
		return nil, nil, err
	}

	cost, err := costRepo.GetForUpdate(ctx, scope, productID)
	if err != nil {
		return nil, nil, err
	}
	cost.AvgCost = domaininv.CostCalculator(cost.ValuedQuantity, cost.AvgCost, qty, totalCost)
	cost.ValuedQuantity = nonNegative(cost.ValuedQuantity).Add(qty)
	cost.EntryCount++
	cost.UpdatedAt = now
	if err := costRepo.Save(ctx, scope, cost); err != nil {
		return nil, nil, err
	}
	return entry, cost, nil
}

// Consume descuenta la cantidad valorizada tras una salida. Sin base de costo no hay nada que descontar.
func (l *CostLedger) Consume(ctx context.Context, costRepo repository.CostRepository, scope tenant.Scope, productID string, qty decimal.Decimal) error {
	cost, err := costRepo.GetForUpdate(ctx, scope, productID)
	if err != nil {
		return err
	}
	if !cost.HasBasis() {
		return nil
	}
	cost.ValuedQuantity = nonNegative(cost.ValuedQuantity.Sub(qty))
	cost.UpdatedAt = l.nowFn()
	return costRepo.Save(ctx, scope, cost)
}

// Restore revaloriza una reversión al costo unitario original de la salida.
// No es una adquisición: no agrega CostEntry ni incrementa EntryCount.
func (l *CostLedger) Restore(ctx context.Context, costRepo repository.CostRepository, scope tenant.Scope, productID string, qty, unitCost decimal.Decimal) error {
	cost, err := costRepo.GetForUpdate(ctx, scope, productID)
	if err != nil {
		return err
	}
	if !cost.HasBasis() {
		return nil
	}
	cost.AvgCost = domaininv.CostCalculator(cost.ValuedQuantity, cost.AvgCost, qty, domaininv.Valuation(unitCost, qty))
	cost.ValuedQuantity = nonNegative(cost.ValuedQuantity).Add(qty)
	cost.UpdatedAt = l.nowFn()
	return costRepo.Save(ctx, scope, cost)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
