package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

type AccountStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Session is what register and login hand back to the client.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Accounts registers users and logs them in with email and password.
type Accounts struct {
	store  AccountStore
	tokens *TokenService
	log    *zap.Logger
	now    func() time.Time
}

func NewAccounts(store AccountStore, tokens *TokenService, log *zap.Logger) *Accounts {
	return &Accounts{store: store, tokens: tokens, log: log, now: time.Now}
}

func (a *Accounts) Register(ctx context.Context, name, email, password, profilePic string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if name == "" || email == "" {
		return nil, apperr.Invalid("name and email are required")
	}
	if len(password) < 6 {
		return nil, apperr.Invalid("password must be at least 6 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Unexpected(err, "hash password")
	}
	now := a.now().UTC()
	u := &domain.User{
		Name:         name,
		Email:        email,
		ProfilePic:   profilePic,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Unexpected(err, "create user")
	}
	a.log.Info("user registered", zap.String("user_id", u.ID))
	return a.session(u)
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "load user")
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return a.session(u)
}

func (a *Accounts) session(u *domain.User) (*Session, error) {
	token, exp, err := a.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Unexpected(err, "issue token")
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}
