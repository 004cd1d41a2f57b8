package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/testutil"
)

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", apperr.NotFound("message not found"), http.StatusNotFound, `{"error":"message not found"}`},
		{"conflict", apperr.Conflict("already friends"), http.StatusConflict, `{"error":"already friends"}`},
		{"forbidden", apperr.Forbidden("nope"), http.StatusForbidden, `{"error":"nope"}`},
		{"unexpected", apperr.Unexpected(errors.New("disk on fire"), "store user"), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"fiber", fiber.ErrUpgradeRequired, http.StatusUpgradeRequired, `{"error":"Upgrade Required"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := New(testutil.NewTestLogger(t))
			app.Get("/", func(*fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tc.status || string(body) != tc.body {
				t.Fatalf("got %d %s", resp.StatusCode, body)
			}
		})
	}
}

func TestRecoversPanics(t *testing.T) {
	app := New(testutil.NewTestLogger(t))
	app.Get("/", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
