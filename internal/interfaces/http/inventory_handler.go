package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-clinica/internal/application/dto"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
)

// InventoryHandler maneja entradas de stock y consultas por sede (protegido).
type InventoryHandler struct {
	receive *inventory.ReceiveStockUseCase
	query   *inventory.StockQuery
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(receive *inventory.ReceiveStockUseCase, query *inventory.StockQuery) *InventoryHandler {
	return &InventoryHandler{receive: receive, query: query}
}

// Receive godoc
// @Summary      Registrar entrada de stock
// @Description  Agrega una entrada de costo, recalcula el costo promedio y suma el stock de la sede.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveStockRequest  true  "product (ID o nombre), quantity, total_cost"
// @Success      201   {object}  dto.MovementDTO
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/entries [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tenantID, siteID := targetOrToken(c, in.TenantID, in.SiteID)
	mov, err := h.receive.Receive(c.UserContext(), tenantID, siteID, inventory.ReceiveInput{
		ProductRef: in.Product,
		Quantity:   in.Quantity,
		TotalCost:  in.TotalCost,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementDTOs([]*entity.Movement{mov})[0])
}

// GetStock godoc
// @Summary      Stock de un producto en la sede
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "ID o nombre del producto"
// @Param        site_id     query  string  false  "sede (por defecto la del token)"
// @Param        limit       query  int     false  "movimientos por página"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {object}  dto.StockResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	tenantID, siteID := targetOrToken(c, c.Query("tenant_id"), c.Query("site_id"))

	view, err := h.query.Get(c.UserContext(), tenantID, siteID, c.Params("product_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{
		ProductID:   view.Product.ID,
		SiteID:      view.SiteID,
		Quantity:    view.Quantity,
		AvgCost:     view.Basis.AvgCost,
		CostDefined: view.Basis.Defined,
		Valuation:   view.Valuation,
		Movements:   toMovementDTOs(view.Movements),
		Page:        dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}
