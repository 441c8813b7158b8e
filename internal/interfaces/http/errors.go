package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// Códigos de error del ledger expuestos al cliente.
const (
	CodeValidation          = "validation_error"
	CodeInsufficientStock   = "insufficient_stock"
	CodeAlreadyConsumed     = "already_consumed"
	CodeConcurrencyConflict = "concurrency_conflict"
	CodeTenantMismatch      = "tenant_mismatch"
	CodeIdempotencyConflict = "idempotency_conflict"
)

// HeaderIdempotencyKey encabezado con la clave de idempotencia de entregas y traslados.
const HeaderIdempotencyKey = "Idempotency-Key"

// writeError traduce errores de dominio a HTTP. Lo no clasificado es 500 y se registra.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var (
		validation *domain.ValidationError
		shortage   *domain.InsufficientStockError
		consumed   *domain.AlreadyConsumedError
		conflict   *domain.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: CodeValidation, Message: validation.Error(), Field: validation.Field,
		})
	case errors.As(err, &shortage):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:      CodeInsufficientStock,
			Message:   "stock insuficiente: faltan " + strconv.FormatInt(shortage.Shortfall, 10) + " unidades",
			Variant:   shortage.VariantKey,
			Shortfall: shortage.Shortfall,
		})
	case errors.As(err, &consumed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: CodeAlreadyConsumed, Message: "no se puede modificar: " + consumed.Error(),
		})
	case errors.As(err, &conflict):
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: CodeConcurrencyConflict, Message: "conflicto de concurrencia: reintente con la misma Idempotency-Key",
		})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: CodeIdempotencyConflict, Message: err.Error(), Field: HeaderIdempotencyKey,
		})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: CodeTenantMismatch, Message: "acceso denegado"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no clasificado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: msg})
}

func itoa(i int) string { return strconv.Itoa(i) }
