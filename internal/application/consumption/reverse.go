package consumption

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
)

// Reverse anula el consumo de una orden: por cada salida crea una entrada compensatoria
// (ReversalOf) al mismo costo unitario y devuelve el stock a la sede. Los movimientos
// originales no se modifican. Una orden ya revertida devuelve domain.ErrConflict.
func (s *Service) Reverse(ctx context.Context, tenantID, siteID, orderID string) ([]*entity.Movement, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: orden sin identificador", domain.ErrInvalidInput)
	}
	scope, err := s.access.Authorize(ctx, tenantID, siteID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	txID := uuid.New().String()
	now := s.nowFn()
	var out []*entity.Movement
	err = s.txRunner.Run(txCtx, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		costRepo repository.CostRepository,
	) error {
		out = out[:0]
		existing, err := movRepo.ListByOrder(txCtx, scope, orderID)
		if err != nil {
			return err
		}
		var exits []*entity.Movement
		for _, m := range existing {
			if m.ReversalOf != "" {
				return fmt.Errorf("%w: la orden %s ya fue revertida", domain.ErrConflict, orderID)
			}
			if m.Direction == entity.DirectionExit {
				exits = append(exits, m)
			}
		}
		if len(exits) == 0 {
			return fmt.Errorf("%w: sin consumos para la orden %s", domain.ErrNotFound, orderID)
		}

		// stock y luego costo, cada uno en orden de producto
		byProduct := slices.Clone(exits)
		slices.SortStableFunc(byProduct, func(a, b *entity.Movement) int { return strings.Compare(a.ProductID, b.ProductID) })
		var valued []string
		for _, exit := range byProduct {
			if _, err := s.stock.Increment(txCtx, stockRepo, scope, exit.ProductID, exit.Quantity); err != nil {
				return err
			}
			if !exit.CostPending {
				valued = append(valued, exit.ProductID)
			}
		}
		if _, err := s.costs.LockBases(txCtx, costRepo, scope, valued); err != nil {
			return err
		}
		for _, exit := range byProduct {
			if exit.CostPending {
				continue
			}
			if err := s.costs.Restore(txCtx, costRepo, scope, exit.ProductID, exit.Quantity, exit.UnitCost); err != nil {
				return err
			}
		}

		for _, exit := range exits {
			m := &entity.Movement{
				ID:            uuid.New().String(),
				TransactionID: txID,
				TenantID:      scope.TenantID(),
				SiteID:        scope.SiteID(),
				ProductID:     exit.ProductID,
				Direction:     entity.DirectionEntry,
				Quantity:      exit.Quantity,
				UnitCost:      exit.UnitCost,
				TotalCost:     exit.TotalCost,
				CostPending:   exit.CostPending,
				OrderID:       orderID,
				ReversalOf:    exit.ID,
				CreatedAt:     now,
				CreatedBy:     scope.UserID(),
			}
			if err := movRepo.Create(txCtx, scope, m); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		err = inventory.AsStorageFault("revertir consumo", err)
		s.log.Business().Err(err).
			Str("tenant_id", scope.TenantID()).
			Str("site_id", scope.SiteID()).
			Str("order_id", orderID).
			Msg("reversión de consumo rechazada")
		return nil, err
	}

	s.log.Business().
		Str("tenant_id", scope.TenantID()).
		Str("site_id", scope.SiteID()).
		Str("order_id", orderID).
		Str("transaction_id", txID).
		Int("movements", len(out)).
		Msg("consumo de tratamiento revertido")
	return out, nil
}
