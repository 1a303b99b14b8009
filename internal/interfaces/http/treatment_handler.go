package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/dto"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
)

// TreatmentHandler expone el consumo de órdenes de tratamiento (protegido).
type TreatmentHandler struct {
	svc *consumption.Service
}

// NewTreatmentHandler construye el handler.
func NewTreatmentHandler(svc *consumption.Service) *TreatmentHandler {
	return &TreatmentHandler{svc: svc}
}

// Consume godoc
// @Summary      Consumir orden de tratamiento
// @Description  Calcula los componentes de la orden y registra las salidas de stock costeadas en una transacción.
// @Tags         treatments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeRequest  true  "orden; tenant_id/site_id vacíos toman los del token"
// @Success      201   {object}  dto.ConsumeResponse
// @Failure      403   {object}  dto.ConsumeResponse
// @Failure      409   {object}  dto.ConsumeResponse
// @Failure      422   {object}  dto.ConsumeResponse
// @Failure      503   {object}  dto.ConsumeResponse
// @Router       /api/treatments/consume [post]
func (h *TreatmentHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tenantID, siteID := targetOrToken(c, in.TenantID, in.SiteID)

	order := entity.TreatmentOrder{
		ID:                in.OrderID,
		PatientID:         in.PatientID,
		TenantID:          tenantID,
		SiteID:            siteID,
		Subtype:           in.Subtype,
		DoseQuantity:      in.DoseQuantity,
		FactorFrascoMadre: in.FactorFrascoMadre,
		Allergens:         in.Allergens,
		BottleType:        in.BottleType,
		Bottles:           in.Bottles,
		CreatedBy:         GetUserID(c),
	}
	res, err := h.svc.Consume(c.UserContext(), tenantID, siteID, order)
	out := toConsumeResponse(res)
	if err != nil {
		if res.Reason == consumption.ReasonTenantMismatch {
			out.Message = "organización o sede no coincide con el token"
		}
		return c.Status(statusFor(res.Reason)).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Reverse godoc
// @Summary      Revertir consumo de una orden
// @Tags         treatments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true   "ID de la orden"
// @Param        body  body  dto.ReverseRequest  false  "tenant_id/site_id (opcional)"
// @Success      201   {object}  dto.ReverseResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/treatments/{id}/reverse [post]
func (h *TreatmentHandler) Reverse(c *fiber.Ctx) error {
	var in dto.ReverseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	tenantID, siteID := targetOrToken(c, in.TenantID, in.SiteID)
	orderID := c.Params("id")

	movs, err := h.svc.Reverse(c.UserContext(), tenantID, siteID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReverseResponse{OrderID: orderID, Movements: toMovementDTOs(movs)})
}

// targetOrToken usa la organización/sede pedidas o, si vienen vacías, las del token.
func targetOrToken(c *fiber.Ctx, tenantID, siteID string) (string, string) {
	if tenantID == "" {
		tenantID = GetTenantID(c)
	}
	if siteID == "" {
		siteID = GetSiteID(c)
	}
	return tenantID, siteID
}

func toConsumeResponse(res consumption.ConsumptionResult) dto.ConsumeResponse {
	out := dto.ConsumeResponse{
		OK:            res.OK,
		Reason:        string(res.Reason),
		Message:       res.Message,
		TransactionID: res.TransactionID,
		Movements:     toMovementDTOs(res.Movements),
		UnknownRefs:   res.UnknownRefs,
		Retryable:     res.Retryable,
	}
	for _, cmp := range res.Components {
		out.Components = append(out.Components, dto.ComponentDTO{ProductID: cmp.ProductID, Name: cmp.Name, Kind: cmp.Kind, VolumeML: cmp.VolumeML})
	}
	for _, s := range res.Shortages {
		out.Shortages = append(out.Shortages, dto.ShortageDTO{ProductID: s.ProductID, Name: s.Name, Required: s.Required, Available: s.Available})
	}
	return out
}

func toMovementDTOs(movs []*entity.Movement) []dto.MovementDTO {
	if len(movs) == 0 {
		return nil
	}
	out := make([]dto.MovementDTO, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.MovementDTO{
			ID:            m.ID,
			TransactionID: m.TransactionID,
			ProductID:     m.ProductID,
			Direction:     m.Direction,
			Quantity:      m.Quantity,
			UnitCost:      m.UnitCost,
			TotalCost:     m.TotalCost,
			CostPending:   m.CostPending,
			OrderID:       m.OrderID,
			ReversalOf:    m.ReversalOf,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out
}
