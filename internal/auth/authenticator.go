package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	SetUserOnline(ctx context.Context, id string, online bool) error
}

// Authenticator gates new connections: a credential must resolve to an
// existing user before any event handler runs.
type Authenticator struct {
	tokens *TokenService
	users  UserStore
	log    *zap.Logger
}

func NewAuthenticator(tokens *TokenService, users UserStore, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// Authenticate resolves credential to a user and marks it online.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*domain.User, error) {
	userID, err := a.tokens.Validate(credential)
	switch {
	case errors.Is(err, ErrMissingToken):
		return nil, apperr.Unauthenticated("authentication token required")
	case errors.Is(err, ErrTokenExpired):
		return nil, apperr.Unauthenticated("authentication token expired")
	case err != nil:
		return nil, apperr.Unauthenticated("invalid authentication token")
	}

	user, err := a.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("user not found")
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "load user")
	}

	if err := a.users.SetUserOnline(ctx, user.ID, true); err != nil {
		// presence is advisory; a failed write must not refuse a valid session
		a.log.Warn("mark user online", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.Online = true
	}
	return user, nil
}
