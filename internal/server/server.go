package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/middlewares"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// New returns the fiber app with the shared error mapping installed.
func New(logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat-hub",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(middlewares.RequestLogger(logger.Sugar()))
	return app
}

// ErrorHandler renders every failure as {"error": message}.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status := apperr.HTTPStatus(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
	}
}
