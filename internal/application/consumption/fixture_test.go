package consumption_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/memory"
)

const (
	tenantID    = "org-1"
	siteID      = "sede-norte"
	otherSiteID = "sede-sur"
	userID      = "user-1"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeRecorder struct {
	mu      sync.Mutex
	reasons []string
	pending int
}

func (r *fakeRecorder) ObserveConsumption(reason string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *fakeRecorder) CostPending(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending += n
}

type fixture struct {
	store    *memory.Store
	svc      *consumption.Service
	receive  *inventory.ReceiveStockUseCase
	stock    *inventory.StockLedger
	costs    *inventory.CostLedger
	recorder *fakeRecorder
	scope    tenant.Scope
	ctx      context.Context
}

type fixtureOpts struct {
	runner    func(*memory.Store) inventory.TxRunner
	txTimeout time.Duration
}

var catalogProducts = []entity.Product{
	{ID: "p-encino-a", Name: "Encino A", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
	{ID: "p-encino", Name: "Encino", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
	{ID: "p-graminea", Name: "Gramínea con sinodon", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
	{ID: "p-abedul", Name: "Abedul", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
	{ID: "p-evans", Name: "Evans", Category: entity.CategoryDiluent, UnitMeasure: entity.UnitML},
	{ID: "p-bacteriana", Name: "Bacteriana", Category: entity.CategoryDiluent, UnitMeasure: entity.UnitML},
	{ID: "p-alxoid", Name: "Alxoid", Category: entity.CategoryTreatmentLabel, UnitMeasure: entity.UnitCount},
}

func newFixture(t *testing.T, opts ...fixtureOpts) *fixture {
	t.Helper()
	var o fixtureOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	store := memory.NewStore()
	store.AddSite(entity.Site{ID: siteID, TenantID: tenantID, Name: "Sede Norte"})
	store.AddSite(entity.Site{ID: otherSiteID, TenantID: tenantID, Name: "Sede Sur"})
	store.AddSite(entity.Site{ID: "sede-ajena", TenantID: "org-2", Name: "Otra organización"})
	for _, p := range catalogProducts {
		p.TenantID = tenantID
		store.AddProduct(p)
	}
	store.AddProduct(entity.Product{ID: "p-ajeno", TenantID: "org-2", Name: "Ácaro", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML})

	engine, err := treatment.NewEngine(treatment.DefaultSchemes(treatment.DiluentNames{}))
	require.NoError(t, err)

	guard := tenant.NewGuard(nil)
	access := inventory.NewSiteAuthorizer(guard, store.Sites())
	cat := catalog.New(store.Products(), catalog.NewCache(64, time.Minute), guard)
	stock := inventory.NewStockLedger(store.Stock())
	costs := inventory.NewCostLedger(store.Costs())

	var runner inventory.TxRunner = store
	if o.runner != nil {
		runner = o.runner(store)
	}
	rec := &fakeRecorder{}
	svc := consumption.NewService(consumption.Deps{
		TxRunner: runner,
		Access:   access,
		Catalog:  cat,
		Engine:   engine,
		Stock:    stock,
		Costs:    costs,
		Recorder: rec,
	}, o.txTimeout)

	scope, err := tenant.NewScope(tenantID, siteID, userID)
	require.NoError(t, err)

	return &fixture{
		store:    store,
		svc:      svc,
		receive:  inventory.NewReceiveStockUseCase(store, access, cat, stock, costs, nil, 0),
		stock:    stock,
		costs:    costs,
		recorder: rec,
		scope:    scope,
		ctx:      tenant.WithScope(context.Background(), scope),
	}
}

// stockUp registra una entrada con costo para el producto.
func (f *fixture) stockUp(t *testing.T, productID, qty, totalCost string) {
	t.Helper()
	_, err := f.receive.Receive(f.ctx, tenantID, siteID, inventory.ReceiveInput{
		ProductRef: productID,
		Quantity:   dec(qty),
		TotalCost:  dec(totalCost),
	})
	require.NoError(t, err)
}

// stockWithoutCost deja stock sin ninguna entrada de costo (carga histórica).
func (f *fixture) stockWithoutCost(t *testing.T, productID, qty string) {
	t.Helper()
	err := f.store.Run(context.Background(), func(_ repository.MovementRepository, s repository.StockRepository, _ repository.CostRepository) error {
		return s.SetQuantity(context.Background(), f.scope, productID, dec(qty))
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	q, err := f.stock.GetQuantity(context.Background(), f.scope, productID)
	require.NoError(t, err)
	return q
}

func (f *fixture) exits(t *testing.T, productID string) []*entity.Movement {
	t.Helper()
	all, err := f.store.Movements().ListByProduct(context.Background(), f.scope, productID, 0, 0)
	require.NoError(t, err)
	var out []*entity.Movement
	for _, m := range all {
		if m.Direction == entity.DirectionExit {
			out = append(out, m)
		}
	}
	return out
}

func alxoidOrder(id string, dose string, allergens ...string) entity.TreatmentOrder {
	return entity.TreatmentOrder{
		ID:           id,
		PatientID:    "pac-1",
		Subtype:      string(treatment.AlxoidA),
		DoseQuantity: dec(dose),
		Allergens:    allergens,
		CreatedBy:    userID,
	}
}
