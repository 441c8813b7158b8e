package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// RequestLogger registra método, ruta, status y latencia de cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		reqLog := log.Tenant(GetCompanyID(c))
		ev := reqLog.Info
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = reqLog.Error
		case status == fiber.StatusConflict || status == fiber.StatusServiceUnavailable:
			ev = reqLog.Warn
		}
		ev().Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("role", GetRole(c)).
			Msg("http")
		return err
	}
}
