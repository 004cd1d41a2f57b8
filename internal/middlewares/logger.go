package middlewares

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/handlers"
)

// RequestLogger writes one line per request. Failures are logged with the
// status and error kind the error handler will answer with, since the
// response is not written yet when the chain returns.
func RequestLogger(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"latency", time.Since(start),
		}
		if uid := handlers.UserID(c); uid != "" {
			fields = append(fields, "user_id", uid)
		}
		if err == nil {
			logger.Infow("request", append(fields, "status", c.Response().StatusCode())...)
			return nil
		}

		status, kind := errorStatus(err)
		fields = append(fields, "status", status, "kind", kind, "error", err)
		if status >= fiber.StatusInternalServerError {
			logger.Errorw("request failed", fields...)
		} else {
			logger.Warnw("request rejected", fields...)
		}
		return err
	}
}

func errorStatus(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "http"
	}
	return apperr.HTTPStatus(err), apperr.KindOf(err).String()
}
