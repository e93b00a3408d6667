package serverutils

import (
	"errors"
	"time"

	"agentic-rag-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger writes one API entry per request. Paths in skip are not logged.
func RequestLogger(log logger.ILogger, skip ...string) fiber.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(ctx *fiber.Ctx) error {
		if _, ok := skipped[ctx.Path()]; ok {
			return ctx.Next()
		}

		start := time.Now()
		err := ctx.Next()
		status := statusOf(ctx, err)

		details := map[string]interface{}{
			"method":     ctx.Method(),
			"path":       ctx.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_id":  ClientID(ctx),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("API", "Request failed", details)
		case status >= fiber.StatusBadRequest:
			log.Warn("API", "Request rejected", details)
		default:
			log.Info("API", "Request served", details)
		}
		return err
	}
}

// statusOf reports the status ErrorHandlerMiddleware will write for err.
func statusOf(ctx *fiber.Ctx, err error) int {
	if err == nil {
		return ctx.Response().StatusCode()
	}
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
