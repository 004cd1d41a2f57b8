package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness invariant would be broken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStateChanged is returned when a compare-and-set transition finds the
	// record in a status other than the expected one.
	ErrStateChanged = errors.New("record state changed")
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetUserOnline(ctx context.Context, id string, online bool) error
}

type FriendRequestRepository interface {
	// CreateFriendRequest fails with ErrDuplicate while another pending
	// request exists for the pair, in either orientation.
	CreateFriendRequest(ctx context.Context, r *domain.FriendRequest) error
	GetFriendRequest(ctx context.Context, id string) (*domain.FriendRequest, error)
	FindPendingRequest(ctx context.Context, a, b string) (*domain.FriendRequest, error)
	ListFriendRequests(ctx context.Context, userID string, status domain.FriendRequestStatus) ([]domain.FriendRequest, error)
	UpdateFriendRequestStatus(ctx context.Context, id string, from, to domain.FriendRequestStatus, at time.Time) (*domain.FriendRequest, error)
	// AcceptFriendRequest moves a pending request to accepted and creates the
	// friendship in one transaction.
	AcceptFriendRequest(ctx context.Context, id string, at time.Time) (*domain.FriendRequest, *domain.Friendship, error)
}

type FriendshipRepository interface {
	GetFriendship(ctx context.Context, a, b string) (*domain.Friendship, error)
	DeleteFriendship(ctx context.Context, a, b string) error
	ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, m *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	// ListThread returns both directions of a conversation, oldest first.
	ListThread(ctx context.Context, a, b string) ([]domain.Message, error)
	// MarkThreadRead marks unread messages from senderID to receiverID and
	// returns the ids it changed.
	MarkThreadRead(ctx context.Context, senderID, receiverID string, at time.Time) ([]string, error)
	// MarkMessagesRead marks those of ids addressed to receiverID that are
	// still unread and returns the ids it changed.
	MarkMessagesRead(ctx context.Context, ids []string, receiverID string, at time.Time) ([]string, error)
	UpdateMessageContent(ctx context.Context, id, content string, at time.Time) (*domain.Message, error)
	// DeleteMessage removes the message and its reactions.
	DeleteMessage(ctx context.Context, id string) error
}

type ReactionRepository interface {
	// UpsertReaction keeps a single reaction per (message, user).
	UpsertReaction(ctx context.Context, r *domain.MessageReaction) (*domain.MessageReaction, error)
	DeleteReaction(ctx context.Context, messageID, userID string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []string) ([]domain.MessageReaction, error)
}

type CallRepository interface {
	// SaveActiveCall updates the pair's non-terminal call in place, or
	// inserts c when there is none.
	SaveActiveCall(ctx context.Context, c *domain.Call) (*domain.Call, error)
	GetCall(ctx context.Context, id string) (*domain.Call, error)
	FindActiveCall(ctx context.Context, a, b string) (*domain.Call, error)
	// LatestCall returns the newest call with this exact orientation and status.
	LatestCall(ctx context.Context, callerID, receiverID string, status domain.CallStatus) (*domain.Call, error)
	TransitionCall(ctx context.Context, id string, from []domain.CallStatus, upd domain.CallUpdate) (*domain.Call, error)
	MissStaleCalls(ctx context.Context, createdBefore, at time.Time) ([]domain.Call, error)
	MissActiveCallsFor(ctx context.Context, userID string, at time.Time) ([]domain.Call, error)
	ListCalls(ctx context.Context, userID string, limit int) ([]domain.Call, error)
}

// Store is the full persistence surface of the hub.
type Store interface {
	UserRepository
	FriendRequestRepository
	FriendshipRepository
	MessageRepository
	ReactionRepository
	CallRepository
	Close(ctx context.Context) error
}

// AppError translates a store error into the application taxonomy. what
// names the record in the client-facing message.
func AppError(err error, what string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrStateChanged):
		return apperr.Wrap(apperr.KindConflict, err, what+" was changed concurrently")
	default:
		return apperr.Unexpected(err, "store "+what)
	}
}
