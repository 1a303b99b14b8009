package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrUnknownComponent  = errors.New("componente desconocido")
	ErrTenantMismatch    = errors.New("organización o sede no coincide con el contexto")
	ErrStorage           = errors.New("falla de almacenamiento")
)

// Shortage describe un componente sin cantidad suficiente en la sede.
type Shortage struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// ShortageError agrupa todos los faltantes de una orden (no solo el primero).
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s requiere %s, disponible %s", s.ProductID, s.Required, s.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// UnknownComponentError lista las referencias que no resolvieron contra el catálogo de la organización.
type UnknownComponentError struct {
	Refs   []string
	Reason string
}

func (e *UnknownComponentError) Error() string {
	msg := ErrUnknownComponent.Error() + ": " + strings.Join(e.Refs, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *UnknownComponentError) Unwrap() error { return ErrUnknownComponent }

// TenantMismatchError es una falla de aislamiento entre organizaciones; se registra como evento de seguridad.
type TenantMismatchError struct {
	Expected string
	Got      string
	What     string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s: %s (esperado %q, recibido %q)", ErrTenantMismatch, e.What, e.Expected, e.Got)
}

func (e *TenantMismatchError) Unwrap() error { return ErrTenantMismatch }

// StorageFaultError envuelve fallas de transacción o commit. Es la única categoría reintentable.
type StorageFaultError struct {
	Op  string
	Err error
}

func (e *StorageFaultError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageFaultError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// IsRetryable indica si el caller puede reenviar la misma orden.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
