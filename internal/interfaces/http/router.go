package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/metrics"
)

// Roles del token.
const (
	RoleAdmin   = "admin"
	RoleNursing = "enfermeria"
	RoleStock   = "bodega"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Treatments *TreatmentHandler
	Inventory  *InventoryHandler
	Metrics    *metrics.Recorder
	AppName    string
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token con organización y sede)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	treatments := protected.Group("/treatments", RequireRole(RoleAdmin, RoleNursing))
	treatments.Post("/consume", deps.Treatments.Consume)
	treatments.Post("/:id/reverse", RequireRole(RoleAdmin), deps.Treatments.Reverse)

	inv := protected.Group("/inventory")
	inv.Post("/entries", RequireRole(RoleAdmin, RoleStock), deps.Inventory.Receive)
	inv.Get("/stock/:product_id", RequireRole(RoleAdmin, RoleStock, RoleNursing), deps.Inventory.GetStock)
}
