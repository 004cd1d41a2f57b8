package friends

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/kafka"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

type Router interface {
	Deliver(ctx context.Context, room string, p events.Payload)
}

type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	repository.FriendRequestRepository
	repository.FriendshipRepository
}

// Service owns friend requests and friendships. Every mutation checks the
// acting user against the stored parties before touching state.
type Service struct {
	store  Store
	router Router
	pub    kafka.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, router Router, pub kafka.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = kafka.Nop{}
	}
	return &Service{store: store, router: router, pub: pub, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*domain.FriendRequest, error) {
	if senderID == receiverID {
		return nil, apperr.Invalid("cannot send a friend request to yourself")
	}
	sender, receiver, err := s.parties(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetFriendship(ctx, senderID, receiverID); err == nil {
		return nil, apperr.Conflict("already friends")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, repository.AppError(err, "friendship")
	}
	if _, err := s.store.FindPendingRequest(ctx, senderID, receiverID); err == nil {
		return nil, apperr.Conflict("friend request already pending")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, repository.AppError(err, "friend request")
	}

	now := s.now().UTC()
	req := &domain.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.FriendRequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateFriendRequest(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("friend request already pending")
		}
		return nil, repository.AppError(err, "friend request")
	}

	ev := events.FriendRequestEvent{Request: *req, Sender: sender.Summary(), Receiver: receiver.Summary()}
	s.router.Deliver(ctx, receiverID, events.FriendRequestReceivedEvent{FriendRequestEvent: ev})
	s.router.Deliver(ctx, senderID, events.FriendRequestSentEvent{FriendRequestEvent: ev})
	kafka.PublishAsync(s.pub, s.log, kafka.Event{
		Type:    kafka.TypeFriendRequestSent,
		Key:     domain.PairKey(senderID, receiverID),
		At:      now,
		Payload: req,
	})
	return req, nil
}

func (s *Service) Accept(ctx context.Context, actorID, requestID string) (*domain.FriendRequest, *domain.Friendship, error) {
	req, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if actorID != req.ReceiverID {
		return nil, nil, apperr.Forbidden("only the receiver can accept this friend request")
	}

	accepted, friendship, err := s.store.AcceptFriendRequest(ctx, requestID, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrStateChanged):
		return nil, nil, apperr.Conflict("friend request is no longer pending")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, nil, apperr.Conflict("already friends")
	case err != nil:
		return nil, nil, repository.AppError(err, "friend request")
	}

	ev := events.FriendRequestAcceptedEvent{
		FriendRequestEvent: s.requestEvent(ctx, accepted),
		Friendship:         *friendship,
	}
	s.router.Deliver(ctx, accepted.SenderID, ev)
	s.router.Deliver(ctx, accepted.ReceiverID, ev)
	kafka.PublishAsync(s.pub, s.log, kafka.Event{
		Type:    kafka.TypeFriendRequestAccepted,
		Key:     domain.PairKey(accepted.SenderID, accepted.ReceiverID),
		At:      friendship.CreatedAt,
		Payload: friendship,
	})
	return accepted, friendship, nil
}

func (s *Service) Reject(ctx context.Context, actorID, requestID string) (*domain.FriendRequest, error) {
	req, err := s.transition(ctx, requestID, domain.FriendRequestRejected, func(r *domain.FriendRequest) error {
		if actorID != r.ReceiverID {
			return apperr.Forbidden("only the receiver can reject this friend request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := events.FriendRequestRejectedEvent{FriendRequestEvent: s.requestEvent(ctx, req)}
	s.router.Deliver(ctx, req.SenderID, ev)
	s.router.Deliver(ctx, req.ReceiverID, ev)
	return req, nil
}

// Cancel withdraws a pending request. The row stays with status canceled.
func (s *Service) Cancel(ctx context.Context, actorID, requestID string) (*domain.FriendRequest, error) {
	req, err := s.transition(ctx, requestID, domain.FriendRequestCanceled, func(r *domain.FriendRequest) error {
		if actorID != r.SenderID {
			return apperr.Forbidden("only the sender can cancel this friend request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := events.FriendRequestCancelledEvent{FriendRequestEvent: s.requestEvent(ctx, req)}
	s.router.Deliver(ctx, req.SenderID, ev)
	s.router.Deliver(ctx, req.ReceiverID, ev)
	return req, nil
}

func (s *Service) Unfriend(ctx context.Context, actorID, friendID string) error {
	if _, err := s.store.GetFriendship(ctx, actorID, friendID); err != nil {
		return repository.AppError(err, "friendship")
	}
	if err := s.store.DeleteFriendship(ctx, actorID, friendID); err != nil {
		return repository.AppError(err, "friendship")
	}
	ev := events.UnfriendedEvent{UserID: actorID, FriendID: friendID}
	s.router.Deliver(ctx, actorID, ev)
	s.router.Deliver(ctx, friendID, ev)
	return nil
}

// Requests lists the pending requests sent or received by userID.
func (s *Service) Requests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	reqs, err := s.store.ListFriendRequests(ctx, userID, domain.FriendRequestPending)
	if err != nil {
		return nil, repository.AppError(err, "friend requests")
	}
	return reqs, nil
}

// Friends lists the summaries of userID's friends. Friends whose account
// has vanished are skipped.
func (s *Service) Friends(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	ships, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, repository.AppError(err, "friendships")
	}
	out := make([]domain.UserSummary, 0, len(ships))
	for i := range ships {
		u, err := s.store.GetUser(ctx, ships[i].Other(userID))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, repository.AppError(err, "user")
		}
		out = append(out, *u.Summary())
	}
	return out, nil
}

func (s *Service) parties(ctx context.Context, a, b string) (*domain.User, *domain.User, error) {
	ua, err := s.store.GetUser(ctx, a)
	if err != nil {
		return nil, nil, repository.AppError(err, "user")
	}
	ub, err := s.store.GetUser(ctx, b)
	if err != nil {
		return nil, nil, repository.AppError(err, "user")
	}
	return ua, ub, nil
}

func (s *Service) pending(ctx context.Context, requestID string) (*domain.FriendRequest, error) {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return nil, repository.AppError(err, "friend request")
	}
	if req.Status != domain.FriendRequestPending {
		return nil, apperr.Conflict("friend request is no longer pending")
	}
	return req, nil
}

func (s *Service) transition(ctx context.Context, requestID string, to domain.FriendRequestStatus, authorize func(*domain.FriendRequest) error) (*domain.FriendRequest, error) {
	req, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(req); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateFriendRequestStatus(ctx, requestID, domain.FriendRequestPending, to, s.now().UTC())
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, apperr.Conflict("friend request is no longer pending")
	}
	if err != nil {
		return nil, repository.AppError(err, "friend request")
	}
	return updated, nil
}

// requestEvent attaches party summaries when they can be loaded. A missing
// summary never blocks a notification.
func (s *Service) requestEvent(ctx context.Context, r *domain.FriendRequest) events.FriendRequestEvent {
	ev := events.FriendRequestEvent{Request: *r}
	if u, err := s.store.GetUser(ctx, r.SenderID); err == nil {
		ev.Sender = u.Summary()
	}
	if u, err := s.store.GetUser(ctx, r.ReceiverID); err == nil {
		ev.Receiver = u.Summary()
	}
	return ev
}
