package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrAlreadyConsumed     = errors.New("lote ya consumido")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
)

// ValidationError entrada mal formada o incompleta. Nada se persiste; el caller corrige y reintenta.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError atajo para construir el error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientStockError la cantidad solicitada supera el disponible de la variante.
// La operación completa se aborta; Shortfall es lo que faltó para completar la línea.
type InsufficientStockError struct {
	VariantKey string
	Requested  int64
	Available  int64
	Shortfall  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: faltan %d unidades (solicitado %d, disponible %d)",
		e.VariantKey, e.Shortfall, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// AlreadyConsumedError intento de editar o anular un lote tocado (o anulado). Permanente para ese lote.
type AlreadyConsumedError struct {
	LotID  string
	Voided bool
}

func (e *AlreadyConsumedError) Error() string {
	if e.Voided {
		return fmt.Sprintf("lote %s anulado: no admite cambios", e.LotID)
	}
	return fmt.Sprintf("lote %s ya consumido: no admite cambios", e.LotID)
}

func (e *AlreadyConsumedError) Is(target error) bool { return target == ErrAlreadyConsumed }

// ConcurrencyConflictError contención de bloqueos o serialización. Transitorio: reintentar la
// misma petición (misma Idempotency-Key) es seguro.
type ConcurrencyConflictError struct {
	Op  string
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: conflicto de concurrencia", e.Op)
	}
	return fmt.Sprintf("%s: conflicto de concurrencia: %v", e.Op, e.Err)
}

func (e *ConcurrencyConflictError) Unwrap() error { return e.Err }

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// TenantMismatchError la entidad referenciada pertenece a otra empresa. Siempre es un fallo
// de autorización: se registra y nunca se corrige en silencio.
type TenantMismatchError struct {
	Entity string
	ID     string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s %s no pertenece a la empresa", e.Entity, e.ID)
}

func (e *TenantMismatchError) Is(target error) bool { return target == ErrForbidden }
