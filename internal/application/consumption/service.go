// Package consumption es el orquestador transaccional: convierte una orden de tratamiento
// en movimientos EXIT costeados y descuentos de stock por sede, todo o nada.
package consumption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-clinica/internal/domain/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
	"github.com/jhoicas/Inventario-clinica/pkg/logger"
)

// DefaultTxTimeout límite de la transacción de consumo si no se configura otro.
const DefaultTxTimeout = inventory.DefaultTxTimeout

// Recorder recibe métricas del orquestador.
type Recorder interface {
	ObserveConsumption(reason string, elapsed time.Duration)
	CostPending(count int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveConsumption(string, time.Duration) {}
func (nopRecorder) CostPending(int)                          {}

// Deps colaboradores del servicio.
type Deps struct {
	TxRunner inventory.TxRunner
	Access   *inventory.SiteAuthorizer
	Catalog  *catalog.Catalog
	Engine   *treatment.Engine
	Stock    *inventory.StockLedger
	Costs    *inventory.CostLedger
	Recorder Recorder
	Log      *logger.Logger
}

// Service orquestador de consumo.
type Service struct {
	txRunner  inventory.TxRunner
	access    *inventory.SiteAuthorizer
	catalog   *catalog.Catalog
	engine    *treatment.Engine
	stock     *inventory.StockLedger
	costs     *inventory.CostLedger
	recorder  Recorder
	log       *logger.Logger
	txTimeout time.Duration
	nowFn     func() time.Time
}

// NewService construye el orquestador. txTimeout <= 0 usa DefaultTxTimeout.
func NewService(d Deps, txTimeout time.Duration) *Service {
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return &Service{
		txRunner:  d.TxRunner,
		access:    d.Access,
		catalog:   d.Catalog,
		engine:    d.Engine,
		stock:     d.Stock,
		costs:     d.Costs,
		recorder:  d.Recorder,
		log:       d.Log.Component("consumption"),
		txTimeout: txTimeout,
		nowFn:     time.Now,
	}
}

// Consume es la única entrada externa: valida, calcula componentes y confirma la salida de stock
// en una transacción. Con error, el resultado trae Reason y detalle, y el error tipado correspondiente.
func (s *Service) Consume(ctx context.Context, tenantID, siteID string, order entity.TreatmentOrder) (ConsumptionResult, error) {
	start := s.nowFn()
	res, err := s.consume(ctx, tenantID, siteID, order)
	if err != nil {
		res = ResultFromError(err)
		s.logRejection(tenantID, siteID, order, res, err)
	}
	s.recorder.ObserveConsumption(string(resultReason(res)), s.nowFn().Sub(start))
	return res, err
}

func resultReason(r ConsumptionResult) Reason {
	if r.OK {
		return "OK"
	}
	return r.Reason
}

func (s *Service) consume(ctx context.Context, tenantID, siteID string, order entity.TreatmentOrder) (ConsumptionResult, error) {
	// 1. Aislamiento: contexto autenticado, sede de la organización y orden del mismo alcance.
	scope, err := s.access.Authorize(ctx, tenantID, siteID)
	if err != nil {
		return ConsumptionResult{}, err
	}
	guard := s.access.Guard()
	if order.TenantID != "" {
		if err := guard.CheckOwnership(scope, order.TenantID, "orden "+order.ID); err != nil {
			return ConsumptionResult{}, err
		}
	}
	if order.SiteID != "" {
		if err := guard.CheckSite(scope, order.SiteID, "orden "+order.ID); err != nil {
			return ConsumptionResult{}, err
		}
	}

	subtype := treatment.ParseSubtype(order.Subtype)
	if !s.engine.Supports(subtype) {
		return ConsumptionResult{}, fmt.Errorf("%w: %q", treatment.ErrUnknownSubtype, order.Subtype)
	}
	if len(order.Allergens) == 0 {
		return ConsumptionResult{}, treatment.ErrNoAllergens
	}

	// 2. Catálogo: todos los alérgenos de la organización; diluyentes del subtipo.
	allergens, err := s.catalog.ResolveAll(ctx, scope, order.Allergens, entity.CategoryAllergen)
	if err != nil {
		return ConsumptionResult{}, err
	}
	diluents, err := s.resolveDiluents(ctx, scope, subtype)
	if err != nil {
		return ConsumptionResult{}, err
	}

	// 3. Fórmula.
	refs := make([]treatment.Ref, 0, len(allergens))
	for _, p := range allergens {
		refs = append(refs, treatment.Ref{ProductID: p.ID, Name: p.Name})
	}
	components, err := s.engine.Compute(treatment.Input{
		Subtype:           subtype,
		Dose:              order.DoseQuantity,
		FactorFrascoMadre: order.FactorFrascoMadre,
		BottleType:        order.BottleType,
		Bottles:           order.Bottles,
		Allergens:         refs,
		Diluents:          diluents,
	})
	if err != nil {
		return ConsumptionResult{}, err
	}

	reqs := make([]inventory.Requirement, 0, len(components))
	for _, c := range components {
		reqs = append(reqs, inventory.Requirement{ProductID: c.ProductID, Name: c.Name, Quantity: c.VolumeML})
	}

	// 4-5. Descuento + valorización + movimientos, en una sola transacción con límite de tiempo.
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	txID := uuid.New().String()
	now := s.nowFn()
	var movements []*entity.Movement
	pending := 0
	err = s.txRunner.Run(txCtx, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		costRepo repository.CostRepository,
	) error {
		movements = movements[:0]
		pending = 0
		if _, err := s.stock.TryDecrementAll(txCtx, stockRepo, scope, reqs); err != nil {
			return err
		}
		productIDs := make([]string, 0, len(components))
		for _, c := range components {
			productIDs = append(productIDs, c.ProductID)
		}
		bases, err := s.costs.LockBases(txCtx, costRepo, scope, productIDs)
		if err != nil {
			return err
		}
		for _, c := range components {
			basis := bases[c.ProductID]
			m := &entity.Movement{
				ID:            uuid.New().String(),
				TransactionID: txID,
				TenantID:      scope.TenantID(),
				SiteID:        scope.SiteID(),
				ProductID:     c.ProductID,
				Direction:     entity.DirectionExit,
				Quantity:      c.VolumeML,
				OrderID:       order.ID,
				CreatedAt:     now,
				CreatedBy:     scope.UserID(),
			}
			if basis.Defined {
				m.UnitCost = basis.AvgCost
				m.TotalCost = domaininv.Valuation(basis.AvgCost, c.VolumeML)
			} else {
				m.CostPending = true
				pending++
			}
			if err := movRepo.Create(txCtx, scope, m); err != nil {
				return err
			}
			if err := s.costs.Consume(txCtx, costRepo, scope, c.ProductID, c.VolumeML); err != nil {
				return err
			}
			movements = append(movements, m)
		}
		return nil
	})
	if err != nil {
		return ConsumptionResult{}, inventory.AsStorageFault("confirmar consumo", err)
	}

	if pending > 0 {
		s.recorder.CostPending(pending)
		for _, m := range movements {
			if m.CostPending {
				s.log.Warn().
					Str("tenant_id", scope.TenantID()).
					Str("product_id", m.ProductID).
					Str("transaction_id", txID).
					Msg("costo pendiente de conciliación: producto sin entradas de costo")
			}
		}
	}
	s.log.Info().
		Str("tenant_id", scope.TenantID()).
		Str("site_id", scope.SiteID()).
		Str("order_id", order.ID).
		Str("subtype", string(subtype)).
		Str("family", string(subtype.ReportingFamily())).
		Str("transaction_id", txID).
		Int("movements", len(movements)).
		Msg("consumo de tratamiento confirmado")

	return ConsumptionResult{OK: true, TransactionID: txID, Movements: movements, Components: components}, nil
}

// resolveDiluents resuelve los diluyentes del subtipo. Uno ausente del catálogo no es error aquí:
// el motor lo rechaza solo si la orden realmente lo consume (p. ej. frasco madre no lleva Evans).
func (s *Service) resolveDiluents(ctx context.Context, scope tenant.Scope, subtype treatment.Subtype) (map[string]treatment.Ref, error) {
	names, err := s.engine.DiluentNames(subtype)
	if err != nil {
		return nil, err
	}
	out := make(map[string]treatment.Ref, len(names))
	for _, name := range names {
		p, err := s.catalog.ResolveComponent(ctx, scope, name, entity.CategoryDiluent)
		if err != nil {
			var uc *domain.UnknownComponentError
			if errors.As(err, &uc) {
				continue
			}
			return nil, err
		}
		out[name] = treatment.Ref{ProductID: p.ID, Name: p.Name}
	}
	return out, nil
}

func (s *Service) logRejection(tenantID, siteID string, order entity.TreatmentOrder, res ConsumptionResult, err error) {
	switch res.Reason {
	case ReasonTenantMismatch:
		// el Guard ya registró el evento de seguridad
		return
	case ReasonStorageFault:
		s.log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("site_id", siteID).
			Str("order_id", order.ID).
			Msg("falla de almacenamiento, consumo revertido")
	default:
		s.log.Business().Err(err).
			Str("tenant_id", tenantID).
			Str("site_id", siteID).
			Str("order_id", order.ID).
			Str("reason", string(res.Reason)).
			Msg("orden de tratamiento rechazada")
	}
}
