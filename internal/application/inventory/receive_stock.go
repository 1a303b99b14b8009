package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-clinica/internal/domain/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/pkg/logger"
)

// ReceiveInput entrada de stock comprado (flujo de recepción).
type ReceiveInput struct {
	ProductRef string // ID o nombre de catálogo
	Quantity   decimal.Decimal
	TotalCost  decimal.Decimal
}

// DefaultTxTimeout límite de la transacción de recepción si no se configura otro.
const DefaultTxTimeout = 5 * time.Second

// ReceiveStockUseCase registra entradas de stock de forma transaccional:
// CostEntry + recálculo del promedio + incremento de stock + movimiento ENTRY.
type ReceiveStockUseCase struct {
	txRunner  TxRunner
	access    *SiteAuthorizer
	catalog   *catalog.Catalog
	stock     *StockLedger
	costs     *CostLedger
	log       *logger.Logger
	txTimeout time.Duration
}

// NewReceiveStockUseCase construye el caso de uso. txTimeout <= 0 usa DefaultTxTimeout.
func NewReceiveStockUseCase(
	txRunner TxRunner,
	access *SiteAuthorizer,
	cat *catalog.Catalog,
	stock *StockLedger,
	costs *CostLedger,
	log *logger.Logger,
	txTimeout time.Duration,
) *ReceiveStockUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	return &ReceiveStockUseCase{
		txRunner:  txRunner,
		access:    access,
		catalog:   cat,
		stock:     stock,
		costs:     costs,
		log:       log.Component("receive_stock"),
		txTimeout: txTimeout,
	}
}

// Receive valida, y en una sola transacción registra costo, stock y movimiento.
func (uc *ReceiveStockUseCase) Receive(ctx context.Context, tenantID, siteID string, in ReceiveInput) (*entity.Movement, error) {
	if !in.Quantity.IsPositive() || in.TotalCost.IsNegative() {
		return nil, fmt.Errorf("%w: cantidad debe ser positiva y costo no negativo", domain.ErrInvalidInput)
	}
	scope, err := uc.access.Authorize(ctx, tenantID, siteID)
	if err != nil {
		return nil, err
	}
	product, err := uc.catalog.ResolveProduct(ctx, scope, in.ProductRef)
	if err != nil {
		return nil, err
	}
	if product.Category == entity.CategoryTreatmentLabel {
		return nil, &domain.UnknownComponentError{Refs: []string{in.ProductRef}, Reason: "una etiqueta de tratamiento no se almacena"}
	}

	now := time.Now()
	unitCost := in.TotalCost.Div(in.Quantity).Round(domaininv.CostDecimals)
	mov := &entity.Movement{
		ID:            uuid.New().String(),
		TransactionID: uuid.New().String(),
		TenantID:      scope.TenantID(),
		SiteID:        scope.SiteID(),
		ProductID:     product.ID,
		Direction:     entity.DirectionEntry,
		Quantity:      in.Quantity,
		UnitCost:      unitCost,
		TotalCost:     in.TotalCost,
		CreatedAt:     now,
		CreatedBy:     scope.UserID(),
	}

	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	// mismo orden de bloqueo que el consumo: stock antes que costo
	err = uc.txRunner.Run(txCtx, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		costRepo repository.CostRepository,
	) error {
		if _, err := uc.stock.Increment(txCtx, stockRepo, scope, product.ID, in.Quantity); err != nil {
			return err
		}
		if _, _, err := uc.costs.RecordEntry(txCtx, costRepo, scope, product.ID, in.Quantity, in.TotalCost); err != nil {
			return err
		}
		return movRepo.Create(txCtx, scope, mov)
	})
	if err != nil {
		return nil, AsStorageFault("registrar entrada", err)
	}

	uc.log.Info().
		Str("tenant_id", scope.TenantID()).
		Str("site_id", scope.SiteID()).
		Str("product_id", product.ID).
		Str("quantity", in.Quantity.String()).
		Str("total_cost", in.TotalCost.String()).
		Msg("entrada de stock registrada")
	return mov, nil
}
