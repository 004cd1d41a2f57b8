package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/auth"
	"github.com/fathima-sithara/chat-hub/internal/calls"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/friends"
	"github.com/fathima-sithara/chat-hub/internal/messaging"
)

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type OnlineChecker interface {
	Online(ctx context.Context, userID string) (bool, error)
}

// Handler serves the HTTP API. It drives the same coordinators as the
// socket, so both surfaces emit the same events.
type Handler struct {
	accounts     *auth.Accounts
	users        UserLookup
	online       OnlineChecker
	friends      *friends.Service
	messaging    *messaging.Service
	calls        *calls.Service
	historyLimit int
	log          *zap.Logger
}

type HandlerDeps struct {
	Accounts     *auth.Accounts
	Users        UserLookup
	Online       OnlineChecker
	Friends      *friends.Service
	Messaging    *messaging.Service
	Calls        *calls.Service
	HistoryLimit int
	Log          *zap.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 50
	}
	return &Handler{
		accounts:     d.Accounts,
		users:        d.Users,
		online:       d.Online,
		friends:      d.Friends,
		messaging:    d.Messaging,
		calls:        d.Calls,
		historyLimit: d.HistoryLimit,
		log:          d.Log,
	}
}

// UserID returns the authenticated user set by the auth middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// SetUserID is used by the auth middleware.
func SetUserID(c *fiber.Ctx, id string) {
	c.Locals(localUserID, id)
}

func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.Invalid("invalid body")
	}
	return events.Validate(v)
}

func queryLimit(c *fiber.Ctx, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
