package consumption_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/memory"
)

func TestConsume_AlxoidATresAlergenosSinDiluyente(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"p-encino-a", "p-graminea", "p-abedul"} {
		f.stockUp(t, id, "10", "100")
	}

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-1", "2", "Encino A", "Gramínea con sinodon", "Abedul"))
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Len(t, res.Movements, 3)

	for _, m := range res.Movements {
		assert.Equal(t, entity.DirectionExit, m.Direction)
		assert.True(t, m.Quantity.Equal(dec("1")), "cantidad %s", m.Quantity)
		assert.Equal(t, res.TransactionID, m.TransactionID)
		assert.Equal(t, "ord-1", m.OrderID)
		assert.True(t, m.TotalCost.Equal(dec("10")), "costo %s", m.TotalCost)
		assert.False(t, m.CostPending)
	}
	assert.Empty(t, f.exits(t, "p-evans"))
	assert.Empty(t, f.exits(t, "p-bacteriana"))
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("9")))
	assert.Equal(t, []string{"OK"}, f.recorder.reasons)
}

func TestConsume_GlicerinadoUnidadAmarillo(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"p-abedul", "p-encino", "p-evans", "p-bacteriana"} {
		f.stockUp(t, id, "5", "50")
	}

	order := entity.TreatmentOrder{
		ID:                "ord-gli",
		Subtype:           string(treatment.GlicerinadoUnidad),
		DoseQuantity:      dec("1000"),
		FactorFrascoMadre: dec("1"),
		BottleType:        entity.BottleAmarillo,
		Allergens:         []string{"Abedul", "Encino"},
	}
	res, err := f.svc.Consume(f.ctx, tenantID, siteID, order)
	require.NoError(t, err)
	require.Len(t, res.Movements, 4)

	got := map[string]string{}
	for _, m := range res.Movements {
		got[m.ProductID] = m.Quantity.String()
	}
	assert.Equal(t, map[string]string{
		"p-abedul":     "0.1",
		"p-encino":     "0.1",
		"p-evans":      "0.9",
		"p-bacteriana": "0.1",
	}, got)
	assert.True(t, f.quantity(t, "p-evans").Equal(dec("4.1")))
}

func TestConsume_StockInsuficienteReportaFaltanteSinTocarNada(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "0.05", "1")
	f.stockUp(t, "p-encino-a", "10", "100")

	order := alxoidOrder("ord-2", "1", "Encino A", "Abedul")
	order.Subtype = string(treatment.AlxoidB)
	res, err := f.svc.Consume(f.ctx, tenantID, siteID, order)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, res.OK)
	assert.Equal(t, consumption.ReasonInsufficientStock, res.Reason)
	require.Len(t, res.Shortages, 1)
	assert.Equal(t, "p-abedul", res.Shortages[0].ProductID)
	assert.True(t, res.Shortages[0].Required.Equal(dec("0.5")))
	assert.True(t, res.Shortages[0].Available.Equal(dec("0.05")))
	assert.False(t, res.Retryable)

	assert.True(t, f.quantity(t, "p-encino-a").Equal(dec("10")))
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("0.05")))
	assert.Empty(t, f.exits(t, "p-encino-a"))
}

func TestConsume_RechazoRepetidoEsIdempotente(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "0.2", "2")
	order := alxoidOrder("ord-3", "1", "Abedul")

	first, err1 := f.svc.Consume(f.ctx, tenantID, siteID, order)
	second, err2 := f.svc.Consume(f.ctx, tenantID, siteID, order)

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.Shortages, second.Shortages)
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("0.2")))
}

func TestConsume_ComponenteDesconocidoListaTodasLasReferencias(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "10", "10")

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-4", "1", "Abedul", "Ciprés", "Evans", "p-ajeno"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownComponent)
	assert.Equal(t, consumption.ReasonUnknownComponent, res.Reason)
	// Evans existe pero es diluyente; p-ajeno pertenece a otra organización
	assert.ElementsMatch(t, []string{"Ciprés", "Evans", "p-ajeno"}, res.UnknownRefs)
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("10")))
}

func TestConsume_EntradaInvalida(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "10", "10")

	cases := map[string]entity.TreatmentOrder{
		"subtipo desconocido": {ID: "x", Subtype: "INYECTABLE_Z", DoseQuantity: dec("1"), Allergens: []string{"Abedul"}},
		"sin alérgenos":       {ID: "x", Subtype: string(treatment.AlxoidA), DoseQuantity: dec("1")},
		"dosis cero":          {ID: "x", Subtype: string(treatment.AlxoidA), Allergens: []string{"Abedul"}},
		"alérgeno repetido":   {ID: "x", Subtype: string(treatment.AlxoidA), DoseQuantity: dec("1"), Allergens: []string{"Abedul", "abedul"}},
	}
	for name, order := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := f.svc.Consume(f.ctx, tenantID, siteID, order)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, consumption.ReasonInvalidInput, res.Reason)
		})
	}
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("10")))
}

func TestConsume_FrascoMadreNoRequiereEvans(t *testing.T) {
	f := newFixture(t)
	// sin Evans en stock: el frasco madre no lo consume
	f.stockUp(t, "p-abedul", "5", "50")
	f.stockUp(t, "p-bacteriana", "5", "50")

	order := entity.TreatmentOrder{
		ID:           "ord-madre",
		Subtype:      string(treatment.GlicerinadoFrasco),
		DoseQuantity: dec("1"),
		Bottles:      []string{entity.BottleMadre},
		Allergens:    []string{"Abedul"},
	}
	res, err := f.svc.Consume(f.ctx, tenantID, siteID, order)
	require.NoError(t, err)
	for _, m := range res.Movements {
		assert.NotEqual(t, "p-evans", m.ProductID)
	}
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("4")))
}

func TestConsume_ValorizaConPromedioPonderado(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "10", "100")
	f.stockUp(t, "p-abedul", "10", "300")

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-5", "1", "Abedul"))
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	m := res.Movements[0]
	assert.True(t, m.UnitCost.Equal(dec("20")), "promedio %s", m.UnitCost)
	// dosis 1 de ALXOID_A son 0.5 ml por alérgeno
	assert.True(t, m.TotalCost.Equal(dec("10")), "valor %s", m.TotalCost)

	basis, err := f.costs.CurrentBasis(context.Background(), f.scope, "p-abedul")
	require.NoError(t, err)
	assert.True(t, basis.AvgCost.Equal(dec("20")))

	// costo total de entradas = costo consumido + valor del stock remanente
	remaining := f.quantity(t, "p-abedul").Mul(basis.AvgCost)
	assert.True(t, dec("400").Equal(m.TotalCost.Add(remaining)))
}

func TestConsume_ValorSinRedondeoAdicional(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "3", "1")

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-5b", "1", "Abedul"))
	require.NoError(t, err)
	m := res.Movements[0]
	assert.True(t, m.UnitCost.Equal(dec("0.333333")))
	assert.True(t, m.TotalCost.Equal(dec("0.1666665")), "valor %s", m.TotalCost)
	assert.True(t, m.TotalCost.Equal(m.UnitCost.Mul(m.Quantity)))

	stored := f.exits(t, "p-abedul")
	require.Len(t, stored, 1)
	assert.True(t, stored[0].TotalCost.Equal(m.TotalCost), "persistido %s", stored[0].TotalCost)
}

func TestConsume_SinBaseDeCostoMarcaPendiente(t *testing.T) {
	f := newFixture(t)
	f.stockWithoutCost(t, "p-abedul", "3")

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-6", "1", "Abedul"))
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.True(t, res.Movements[0].CostPending)
	assert.True(t, res.Movements[0].TotalCost.IsZero())
	assert.Equal(t, 1, f.recorder.pending)
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("2.5")))
}

func TestConsume_OrganizacionDistintaAlContexto(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "10", "10")

	res, err := f.svc.Consume(f.ctx, "org-2", siteID, alxoidOrder("ord-7", "1", "Abedul"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	assert.Equal(t, consumption.ReasonTenantMismatch, res.Reason)

	_, err = f.svc.Consume(context.Background(), tenantID, siteID, alxoidOrder("ord-7", "1", "Abedul"))
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	order := alxoidOrder("ord-7", "1", "Abedul")
	order.TenantID = "org-2"
	_, err = f.svc.Consume(f.ctx, tenantID, siteID, order)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("10")))
}

func TestConsume_SedeDeOtraOrganizacion(t *testing.T) {
	f := newFixture(t)
	scope, err := tenant.NewScope(tenantID, "sede-ajena", userID)
	require.NoError(t, err)
	ctx := tenant.WithScope(context.Background(), scope)

	res, err := f.svc.Consume(ctx, tenantID, "sede-ajena", alxoidOrder("ord-8", "1", "Abedul"))
	require.Error(t, err)
	assert.Equal(t, consumption.ReasonTenantMismatch, res.Reason)
}

// failingMovements falla el Create número n (0 = el primero).
type failingMovements struct {
	repository.MovementRepository
	left int
}

func (m *failingMovements) Create(ctx context.Context, scope tenant.Scope, mov *entity.Movement) error {
	if m.left == 0 {
		return errors.New("disk full")
	}
	m.left--
	return m.MovementRepository.Create(ctx, scope, mov)
}

type failingRunner struct {
	store     *memory.Store
	failAfter int
}

func (r failingRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.StockRepository, repository.CostRepository) error) error {
	return r.store.Run(ctx, func(m repository.MovementRepository, s repository.StockRepository, c repository.CostRepository) error {
		return fn(&failingMovements{MovementRepository: m, left: r.failAfter}, s, c)
	})
}

func TestConsume_FallaAMitadRevierteTodo(t *testing.T) {
	f := newFixture(t, fixtureOpts{runner: func(s *memory.Store) inventory.TxRunner {
		return failingRunner{store: s, failAfter: 2}
	}})
	for _, id := range []string{"p-encino-a", "p-graminea", "p-abedul"} {
		f.stockUp(t, id, "10", "100")
	}

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-9", "2", "Encino A", "Gramínea con sinodon", "Abedul"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, consumption.ReasonStorageFault, res.Reason)
	assert.True(t, res.Retryable)

	for _, id := range []string{"p-encino-a", "p-graminea", "p-abedul"} {
		assert.True(t, f.quantity(t, id).Equal(dec("10")), id)
		assert.Empty(t, f.exits(t, id), id)
	}
	basis, err := f.costs.CurrentBasis(context.Background(), f.scope, "p-abedul")
	require.NoError(t, err)
	assert.True(t, basis.AvgCost.Equal(dec("10")))
}

type slowRunner struct{ store *memory.Store }

func (r slowRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.StockRepository, repository.CostRepository) error) error {
	return r.store.Run(ctx, func(m repository.MovementRepository, s repository.StockRepository, c repository.CostRepository) error {
		if err := fn(m, s, c); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
}

func TestConsume_TimeoutDeTransaccionRevierte(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		runner:    func(s *memory.Store) inventory.TxRunner { return slowRunner{store: s} },
		txTimeout: 20 * time.Millisecond,
	})
	f.stockUp(t, "p-abedul", "10", "10")

	res, err := f.svc.Consume(f.ctx, tenantID, siteID, alxoidOrder("ord-10", "1", "Abedul"))
	require.Error(t, err)
	assert.Equal(t, consumption.ReasonStorageFault, res.Reason)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, f.quantity(t, "p-abedul").Equal(dec("10")))
}

func TestConsume_ConcurrenciaNuncaDejaStockNegativo(t *testing.T) {
	f := newFixture(t)
	f.stockUp(t, "p-abedul", "10", "100")

	const workers = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		shorted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := alxoidOrder("ord-c", "1", "Abedul")
			order.Subtype = string(treatment.AlxoidB)
			res, err := f.svc.Consume(f.ctx, tenantID, siteID, order)
			mu.Lock()
			defer mu.Unlock()
			if err == nil && res.OK {
				ok++
			} else if res.Reason == consumption.ReasonInsufficientStock {
				shorted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, ok)
	assert.Equal(t, 10, shorted)
	assert.True(t, f.quantity(t, "p-abedul").IsZero())
	assert.Len(t, f.exits(t, "p-abedul"), 20)
}

func TestResultFromError_ClasificaErrores(t *testing.T) {
	cases := []struct {
		err  error
		want consumption.Reason
	}{
		{&domain.TenantMismatchError{What: "sede"}, consumption.ReasonTenantMismatch},
		{&domain.UnknownComponentError{Refs: []string{"x"}}, consumption.ReasonUnknownComponent},
		{&domain.ShortageError{}, consumption.ReasonInsufficientStock},
		{treatment.ErrInvalidDose, consumption.ReasonInvalidInput},
		{&domain.StorageFaultError{Op: "commit", Err: errors.New("boom")}, consumption.ReasonStorageFault},
	}
	for _, c := range cases {
		res := consumption.ResultFromError(c.err)
		assert.Equal(t, c.want, res.Reason, c.err.Error())
		assert.False(t, res.OK)
		assert.Equal(t, c.want == consumption.ReasonStorageFault, res.Retryable)
	}
}
