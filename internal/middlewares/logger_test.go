package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/handlers"
	"github.com/fathima-sithara/chat-hub/internal/middlewares"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middlewares.RequestLogger(zap.New(core).Sugar()))
	app.Get("/ok", func(c *fiber.Ctx) error {
		handlers.SetUserID(c, "u1")
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		handlers.SetUserID(c, "u2")
		return apperr.NotFound("message not found")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperr.Unexpected(nil, "store exploded")
	})

	cases := []struct {
		path   string
		level  zapcore.Level
		status int64
		kind   string
		user   string
	}{
		{"/ok", zapcore.InfoLevel, http.StatusNoContent, "", "u1"},
		{"/missing", zapcore.WarnLevel, http.StatusNotFound, "not_found", "u2"},
		{"/boom", zapcore.ErrorLevel, http.StatusInternalServerError, "unexpected", ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			if _, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1); err != nil {
				t.Fatal(err)
			}
			entries := logs.TakeAll()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries", len(entries))
			}
			e := entries[0]
			if e.Level != tc.level {
				t.Fatalf("level = %s, want %s", e.Level, tc.level)
			}
			fields := e.ContextMap()
			if fields["status"] != tc.status {
				t.Fatalf("status = %v, want %d", fields["status"], tc.status)
			}
			if kind, _ := fields["kind"].(string); kind != tc.kind {
				t.Fatalf("kind = %q, want %q", kind, tc.kind)
			}
			if user, _ := fields["user_id"].(string); user != tc.user {
				t.Fatalf("user_id = %q, want %q", user, tc.user)
			}
		})
	}
}
