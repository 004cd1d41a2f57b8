package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/auth"
	"github.com/fathima-sithara/chat-hub/internal/handlers"
)

// JWTAuth requires a bearer token and stores its subject for the handlers.
func JWTAuth(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return apperr.Unauthenticated(err.Error())
		}
		userID, err := tokens.Validate(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return apperr.Unauthenticated("token expired")
			}
			return apperr.Unauthenticated("invalid token")
		}
		handlers.SetUserID(c, userID)
		return c.Next()
	}
}
