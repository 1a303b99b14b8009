package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-clinica/internal/application/consumption"
	"github.com/jhoicas/Inventario-clinica/internal/application/dto"
	"github.com/jhoicas/Inventario-clinica/internal/domain"
)

// statusFor traduce un motivo de rechazo a código HTTP.
func statusFor(reason consumption.Reason) int {
	switch reason {
	case consumption.ReasonUnknownComponent, consumption.ReasonInvalidInput:
		return fiber.StatusUnprocessableEntity
	case consumption.ReasonInsufficientStock:
		return fiber.StatusConflict
	case consumption.ReasonTenantMismatch:
		return fiber.StatusForbidden
	default:
		return fiber.StatusServiceUnavailable
	}
}

// writeError responde con dto.ErrorResponse según el error de dominio.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	}
	reason := consumption.ReasonOf(err)
	msg := err.Error()
	if reason == consumption.ReasonTenantMismatch {
		// sin detalle de la otra organización
		msg = "organización o sede no coincide con el token"
	}
	if reason == consumption.ReasonStorageFault {
		msg = "falla de almacenamiento, reintente"
	}
	return c.Status(statusFor(reason)).JSON(dto.ErrorResponse{Code: string(reason), Message: msg})
}
