package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
	"github.com/jhoicas/Inventario-clinica/internal/domain/tenant"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/metrics"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/seed"
	httpRouter "github.com/jhoicas/Inventario-clinica/internal/interfaces/http"
	"github.com/jhoicas/Inventario-clinica/pkg/config"
	"github.com/jhoicas/Inventario-clinica/pkg/logger"
)

// backend repositorios confirmados y TxRunner de un store.
type backend struct {
	runner    inventory.TxRunner
	products  repository.ProductRepository
	sites     repository.SiteRepository
	stock     repository.StockRepository
	costs     repository.CostRepository
	movements repository.MovementRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()
	var store backend
	switch cfg.App.Store {
	case config.StoreMemory:
		store, err = memoryBackend(cfg.Seed)
	default:
		store, err = postgresBackend(ctx, cfg.DB)
	}
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.App.Store).Msg("inicializar almacenamiento")
	}
	defer store.close()

	guard := tenant.NewGuard(log)
	access := inventory.NewSiteAuthorizer(guard, store.sites)
	cat := catalog.New(store.products, catalog.NewCache(cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL), guard)
	stockLedger := inventory.NewStockLedger(store.stock)
	costLedger := inventory.NewCostLedger(store.costs)

	engine, err := treatment.NewEngine(
		treatment.DefaultSchemes(treatment.DiluentNames{
			Evans:      cfg.Consumption.EvansName,
			Bacteriana: cfg.Consumption.BacterianaName,
		}),
		treatment.WithVolumeDecimals(int32(cfg.Consumption.VolumeDecimals)),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("esquemas de tratamiento")
	}

	recorder := metrics.NewRecorder("clinica")
	consumptionSvc := consumption.NewService(consumption.Deps{
		TxRunner: store.runner,
		Access:   access,
		Catalog:  cat,
		Engine:   engine,
		Stock:    stockLedger,
		Costs:    costLedger,
		Recorder: recorder,
		Log:      log,
	}, cfg.Consumption.TxTimeout)
	receiveUC := inventory.NewReceiveStockUseCase(store.runner, access, cat, stockLedger, costLedger, log, cfg.Consumption.TxTimeout)
	stockQuery := inventory.NewStockQuery(access, cat, stockLedger, costLedger, store.movements)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Clínica API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Treatments: httpRouter.NewTreatmentHandler(consumptionSvc),
		Inventory:  httpRouter.NewInventoryHandler(receiveUC, stockQuery),
		Metrics:    recorder,
		AppName:    cfg.App.Name,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func postgresBackend(ctx context.Context, db config.DBConfig) (backend, error) {
	pool, err := postgres.NewPool(ctx, db)
	if err != nil {
		return backend{}, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return backend{}, err
	}
	return backend{
		runner:    postgres.NewTxRunner(pool),
		products:  postgres.NewProductRepository(pool),
		sites:     postgres.NewSiteRepository(pool),
		stock:     postgres.NewStockRepository(pool),
		costs:     postgres.NewCostRepository(pool),
		movements: postgres.NewMovementRepository(pool),
		close:     pool.Close,
	}, nil
}

// memoryBackend store en proceso; con SEED_CATALOG_FILE carga el catálogo y la sede indicados.
func memoryBackend(sc config.SeedConfig) (backend, error) {
	store := memory.NewStore()
	if sc.CatalogFile != "" {
		f, err := os.Open(sc.CatalogFile)
		if err != nil {
			return backend{}, fmt.Errorf("abrir catálogo: %w", err)
		}
		defer f.Close()
		rows, err := seed.ReadCatalog(f)
		if err != nil {
			return backend{}, err
		}
		store.AddSite(entity.Site{ID: sc.SiteID, TenantID: sc.TenantID, Name: sc.SiteName})
		for _, p := range seed.Products(sc.TenantID, rows) {
			store.AddProduct(p)
		}
	}
	return backend{
		runner:    store,
		products:  store.Products(),
		sites:     store.Sites(),
		stock:     store.Stock(),
		costs:     store.Costs(),
		movements: store.Movements(),
		close:     func() {},
	}, nil
}
