package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
)

type stubOnline struct {
	online bool
	err    error
}

func (s stubOnline) Online(context.Context, string) (bool, error) { return s.online, s.err }

func presenceApp(online OnlineChecker, log *zap.Logger) *fiber.App {
	h := NewHandler(HandlerDeps{Online: online, Log: log})
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
		},
	})
	app.Get("/presence/:userId", h.Presence)
	return app
}

func TestPresenceLookup(t *testing.T) {
	cases := []struct {
		name     string
		online   stubOnline
		status   int
		body     string
		warnings int
	}{
		{"online", stubOnline{online: true}, http.StatusOK, `{"online":true,"userId":"bob"}`, 0},
		{"offline", stubOnline{}, http.StatusOK, `{"online":false,"userId":"bob"}`, 0},
		{"cluster down", stubOnline{err: errors.New("dial tcp: connection refused")},
			http.StatusServiceUnavailable, `{"error":"store temporarily unavailable"}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			app := presenceApp(tc.online, zap.New(core))
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/presence/bob", nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tc.status || string(body) != tc.body {
				t.Fatalf("got %d %s, want %d %s", resp.StatusCode, body, tc.status, tc.body)
			}
			if n := logs.FilterMessage("presence lookup").Len(); n != tc.warnings {
				t.Fatalf("presence warnings = %d, want %d", n, tc.warnings)
			}
		})
	}
}
