// Package middleware provides Fiber middleware for request context, logging,
// metrics, and tracing.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"minitweet/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware copies the request id and trace id from Fiber locals into
// the request context so the context-aware logger picks them up in services.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; report the status it will write.
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}

		switch {
		case err != nil:
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		case status >= fiber.StatusInternalServerError:
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		case status >= fiber.StatusBadRequest:
			observability.Logger.WarnContext(c.UserContext(), "request rejected", fields...)
		default:
			observability.Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
