package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-clinica/internal/domain/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
)

// StockView stock de un producto en la sede con su valorización y movimientos recientes.
type StockView struct {
	Product   *entity.Product
	SiteID    string
	Quantity  decimal.Decimal
	Basis     Basis
	Valuation decimal.Decimal
	Movements []*entity.Movement
}

// StockQuery consulta de solo lectura sobre el estado confirmado.
type StockQuery struct {
	access    *SiteAuthorizer
	catalog   *catalog.Catalog
	stock     *StockLedger
	costs     *CostLedger
	movements repository.MovementRepository
}

// NewStockQuery construye la consulta. movements lee el libro confirmado.
func NewStockQuery(access *SiteAuthorizer, cat *catalog.Catalog, stock *StockLedger, costs *CostLedger, movements repository.MovementRepository) *StockQuery {
	return &StockQuery{access: access, catalog: cat, stock: stock, costs: costs, movements: movements}
}

// Get devuelve la vista de stock del producto (ID o nombre) en la sede.
func (q *StockQuery) Get(ctx context.Context, tenantID, siteID, productRef string, limit, offset int) (*StockView, error) {
	scope, err := q.access.Authorize(ctx, tenantID, siteID)
	if err != nil {
		return nil, err
	}
	product, err := q.catalog.ResolveProduct(ctx, scope, productRef)
	if err != nil {
		return nil, err
	}
	qty, err := q.stock.GetQuantity(ctx, scope, product.ID)
	if err != nil {
		return nil, AsStorageFault("consultar stock", err)
	}
	basis, err := q.costs.CurrentBasis(ctx, scope, product.ID)
	if err != nil {
		return nil, AsStorageFault("consultar costo", err)
	}
	movs, err := q.movements.ListByProduct(ctx, scope, product.ID, limit, offset)
	if err != nil {
		return nil, AsStorageFault("listar movimientos", err)
	}
	view := &StockView{
		Product:   product,
		SiteID:    scope.SiteID(),
		Quantity:  qty,
		Basis:     basis,
		Movements: movs,
	}
	if basis.Defined {
		view.Valuation = domaininv.Valuation(basis.AvgCost, qty)
	}
	return view, nil
}
