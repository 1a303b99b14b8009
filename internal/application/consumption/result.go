package consumption

import (
	"errors"

	"github.com/jhoicas/Inventario-clinica/internal/domain"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/treatment"
)

// Reason motivo de rechazo de una orden.
type Reason string

const (
	ReasonUnknownComponent  Reason = "UNKNOWN_COMPONENT"
	ReasonInsufficientStock Reason = "INSUFFICIENT_STOCK"
	ReasonTenantMismatch    Reason = "TENANT_MISMATCH"
	ReasonInvalidInput      Reason = "INVALID_INPUT"
	ReasonStorageFault      Reason = "STORAGE_FAULT"
)

// ConsumptionResult resultado de Consume. Con OK=false trae el detalle estructurado del rechazo.
type ConsumptionResult struct {
	OK            bool
	Reason        Reason
	Message       string
	TransactionID string
	Movements     []*entity.Movement
	Components    []treatment.Component
	Shortages     []domain.Shortage
	UnknownRefs   []string
	Retryable     bool
}

// ResultFromError traduce un error de Consume a su resultado estructurado.
func ResultFromError(err error) ConsumptionResult {
	res := ConsumptionResult{Reason: ReasonOf(err), Message: err.Error(), Retryable: domain.IsRetryable(err)}
	var se *domain.ShortageError
	if errors.As(err, &se) {
		res.Shortages = se.Shortages
	}
	var ue *domain.UnknownComponentError
	if errors.As(err, &ue) {
		res.UnknownRefs = ue.Refs
	}
	return res
}

// ReasonOf clasifica el error según la taxonomía de rechazos.
func ReasonOf(err error) Reason {
	switch {
	case errors.Is(err, domain.ErrTenantMismatch):
		return ReasonTenantMismatch
	case errors.Is(err, domain.ErrUnknownComponent):
		return ReasonUnknownComponent
	case errors.Is(err, domain.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, domain.ErrInvalidInput):
		return ReasonInvalidInput
	default:
		return ReasonStorageFault
	}
}
