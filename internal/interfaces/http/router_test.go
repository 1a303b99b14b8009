package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/dto"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/Inventario-clinica/internal/interfaces/http"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newAPI arma la API completa sobre el store en memoria con productos de org-1/sede-norte.
func newAPI(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddSite(entity.Site{ID: testSiteID, TenantID: testTenantID, Name: "Sede Norte"})
	store.AddSite(entity.Site{ID: "sede-ajena", TenantID: "org-2", Name: "Otra"})
	for _, p := range []entity.Product{
		{ID: "p-encino", Name: "Encino", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
		{ID: "p-abedul", Name: "Abedul", Category: entity.CategoryAllergen, UnitMeasure: entity.UnitML},
		{ID: "p-evans", Name: "Evans", Category: entity.CategoryDiluent, UnitMeasure: entity.UnitML},
	} {
		p.TenantID = testTenantID
		store.AddProduct(p)
	}

	engine, err := treatment.NewEngine(treatment.DefaultSchemes(treatment.DiluentNames{}))
	require.NoError(t, err)
	guard := tenant.NewGuard(nil)
	access := inventory.NewSiteAuthorizer(guard, store.Sites())
	cat := catalog.New(store.Products(), catalog.NewCache(16, time.Minute), guard)
	stock := inventory.NewStockLedger(store.Stock())
	costs := inventory.NewCostLedger(store.Costs())
	rec := metrics.NewRecorder("test")

	svc := consumption.NewService(consumption.Deps{
		TxRunner: store,
		Access:   access,
		Catalog:  cat,
		Engine:   engine,
		Stock:    stock,
		Costs:    costs,
		Recorder: rec,
	}, time.Second)
	receive := inventory.NewReceiveStockUseCase(store, access, cat, stock, costs, nil, 0)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Treatments: apphttp.NewTreatmentHandler(svc),
		Inventory:  apphttp.NewInventoryHandler(receive, inventory.NewStockQuery(access, cat, stock, costs, store.Movements())),
		Metrics:    rec,
		AppName:    "test",
		JWTSecret:  testJWTSecret,
	})
	return app, store
}

func send(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func receiveStock(t *testing.T, app *fiber.App, product, qty, cost string) {
	t.Helper()
	resp, body := send(t, app, http.MethodPost, "/api/inventory/entries", tokenForRole(t, "bodega"), dto.ReceiveStockRequest{
		Product:   product,
		Quantity:  dec(qty),
		TotalCost: dec(cost),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func alxoidRequest(orderID string, allergens ...string) dto.ConsumeRequest {
	return dto.ConsumeRequest{
		OrderID:      orderID,
		PatientID:    "pac-1",
		Subtype:      string(treatment.AlxoidA),
		DoseQuantity: dec("2"),
		Allergens:    allergens,
	}
}

func TestHealth(t *testing.T) {
	app, _ := newAPI(t)
	resp, body := send(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestConsume_CreaSalidasYDescuentaStock(t *testing.T) {
	app, _ := newAPI(t)
	receiveStock(t, app, "Encino", "10", "100")
	receiveStock(t, app, "p-abedul", "10", "100")

	resp, body := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), alxoidRequest("ord-1", "Encino", "Abedul"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out dto.ConsumeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.OK)
	assert.NotEmpty(t, out.TransactionID)
	require.Len(t, out.Movements, 2)
	for _, m := range out.Movements {
		assert.Equal(t, entity.DirectionExit, m.Direction)
		assert.Equal(t, "ord-1", m.OrderID)
	}

	resp, body = send(t, app, http.MethodGet, "/api/inventory/stock/abedul", tokenForRole(t, "enfermeria"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var st dto.StockResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "p-abedul", st.ProductID)
	assert.True(t, st.CostDefined)
	assert.True(t, st.AvgCost.Equal(dec("10")))
	assert.True(t, st.Valuation.Equal(st.Quantity.Mul(dec("10"))))
	assert.Len(t, st.Movements, 2)
}

func TestConsume_FaltanteRetorna409ConDetalle(t *testing.T) {
	app, store := newAPI(t)
	receiveStock(t, app, "Encino", "0.1", "1")

	resp, body := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), alxoidRequest("ord-2", "Encino"))
	require.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	var out dto.ConsumeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.OK)
	assert.Equal(t, string(consumption.ReasonInsufficientStock), out.Reason)
	require.Len(t, out.Shortages, 1)
	assert.Equal(t, "p-encino", out.Shortages[0].ProductID)

	scope, err := tenant.NewScope(testTenantID, testSiteID, testUserID)
	require.NoError(t, err)
	q, err := store.Stock().Get(context.Background(), scope, "p-encino")
	require.NoError(t, err)
	assert.True(t, q.Quantity.Equal(dec("0.1")))
}

func TestConsume_ComponenteDesconocidoRetorna422(t *testing.T) {
	app, _ := newAPI(t)
	resp, body := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), alxoidRequest("ord-3", "Ciprés"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var out dto.ConsumeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, string(consumption.ReasonUnknownComponent), out.Reason)
	assert.Equal(t, []string{"Ciprés"}, out.UnknownRefs)
}

func TestConsume_OtraOrganizacionRetorna403SinDetalle(t *testing.T) {
	app, _ := newAPI(t)
	req := alxoidRequest("ord-4", "Encino")
	req.TenantID = "org-2"
	req.SiteID = "sede-ajena"

	resp, body := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))
	assert.NotContains(t, string(body), "org-2")
}

func TestConsume_RolBodegaNoPuedeConsumir(t *testing.T) {
	app, _ := newAPI(t)
	resp, _ := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "bodega"), alxoidRequest("ord-5", "Encino"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReverse_RevierteUnaSolaVez(t *testing.T) {
	app, _ := newAPI(t)
	receiveStock(t, app, "Encino", "10", "100")
	resp, body := send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), alxoidRequest("ord-6", "Encino"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	// solo admin revierte
	resp, _ = send(t, app, http.MethodPost, "/api/treatments/ord-6/reverse", tokenForRole(t, "enfermeria"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = send(t, app, http.MethodPost, "/api/treatments/ord-6/reverse", tokenForRole(t, "admin"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out dto.ReverseResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Movements, 1)
	assert.Equal(t, entity.DirectionEntry, out.Movements[0].Direction)
	assert.NotEmpty(t, out.Movements[0].ReversalOf)

	resp, _ = send(t, app, http.MethodPost, "/api/treatments/ord-6/reverse", tokenForRole(t, "admin"), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/api/treatments/ord-inexistente/reverse", tokenForRole(t, "admin"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceive_EntradaInvalidaRetorna422(t *testing.T) {
	app, _ := newAPI(t)
	resp, body := send(t, app, http.MethodPost, "/api/inventory/entries", tokenForRole(t, "bodega"), dto.ReceiveStockRequest{
		Product:   "Evans",
		Quantity:  dec("0"),
		TotalCost: dec("1"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	assert.Contains(t, string(body), string(consumption.ReasonInvalidInput))
}

func TestMetrics_ExponeContadoresDeConsumo(t *testing.T) {
	app, _ := newAPI(t)
	send(t, app, http.MethodPost, "/api/treatments/consume", tokenForRole(t, "enfermeria"), alxoidRequest("ord-7", "Ciprés"))

	resp, body := send(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_consumption_orders_total{reason="UNKNOWN_COMPONENT"} 1`)
}
