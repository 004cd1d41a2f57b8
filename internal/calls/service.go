package calls

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/callindex"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/kafka"
	"github.com/fathima-sithara/chat-hub/internal/metrics"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

const DefaultStaleAfter = 2 * time.Minute

type Router interface {
	Deliver(ctx context.Context, room string, p events.Payload)
}

type Presence interface {
	Online(ctx context.Context, userID string) (bool, error)
}

type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	repository.CallRepository
}

// Signal is one call-signaling request. CallID is optional for every
// operation but CallUser, which never takes one.
type Signal struct {
	From     string
	To       string
	Signal   json.RawMessage
	CallType domain.CallType
	CallID   string
}

// Service drives calls through outgoing, incoming and one of the terminal
// states. The store decides every transition; the index only helps resolve
// requests that arrive without a call id.
type Service struct {
	store      Store
	router     Router
	presence   Presence
	index      callindex.Index
	pub        kafka.Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
	staleAfter time.Duration
}

type Option func(*Service)

func WithPublisher(p kafka.Publisher) Option { return func(s *Service) { s.pub = p } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithStaleAfter sets how old a non-terminal call must be before the
// reaper marks it missed.
func WithStaleAfter(d time.Duration) Option { return func(s *Service) { s.staleAfter = d } }

func NewService(store Store, router Router, presence Presence, index callindex.Index, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		router:     router,
		presence:   presence,
		index:      index,
		pub:        kafka.Nop{},
		log:        log,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkActor(actorID, from string) error {
	if actorID != from {
		return apperr.Forbidden("cannot signal on behalf of another user")
	}
	return nil
}

// CallUser starts a call from in.From to in.To, or restarts the pair's
// unfinished one.
func (s *Service) CallUser(ctx context.Context, actorID string, in Signal) (*domain.Call, error) {
	if err := checkActor(actorID, in.From); err != nil {
		return nil, err
	}
	if in.From == in.To {
		return nil, apperr.Invalid("cannot call yourself")
	}
	if !in.CallType.Valid() {
		return nil, apperr.Invalid("call type must be audio or video")
	}
	caller, err := s.store.GetUser(ctx, in.From)
	if err != nil {
		return nil, repository.AppError(err, "user")
	}
	if _, err := s.store.GetUser(ctx, in.To); err != nil {
		return nil, repository.AppError(err, "user")
	}
	online, err := s.presence.Online(ctx, in.To)
	if err != nil {
		return nil, apperr.Unexpected(err, "presence lookup")
	}
	if !online {
		return nil, apperr.NotFound("user is offline")
	}

	now := s.now().UTC()
	start := now
	call, err := s.store.SaveActiveCall(ctx, &domain.Call{
		CallerID:   in.From,
		ReceiverID: in.To,
		CallType:   in.CallType,
		Status:     domain.CallOutgoing,
		StartTime:  &start,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, repository.AppError(err, "call")
	}

	s.indexRemove(ctx, in.To, in.From)
	if err := s.index.Put(ctx, in.From, in.To, call.ID); err != nil {
		s.log.Warn("call index put", zap.String("call_id", call.ID), zap.Error(err))
	}

	s.router.Deliver(ctx, in.To, events.IncomingCallEvent{
		CallID:    call.ID,
		From:      in.From,
		Signal:    in.Signal,
		CallType:  call.CallType,
		Timestamp: now,
		Caller:    caller.Summary(),
	})
	s.log.Info("call started", zap.String("call_id", call.ID), zap.String("from", in.From), zap.String("to", in.To))
	return call, nil
}

// Accept is sent by the receiver (in.From) of a call placed by in.To.
func (s *Service) Accept(ctx context.Context, actorID string, in Signal) (*domain.Call, error) {
	if err := checkActor(actorID, in.From); err != nil {
		return nil, err
	}
	callID, err := s.resolveForAccept(ctx, in)
	if err != nil {
		return nil, err
	}
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, repository.AppError(err, "call")
	}
	if call.ReceiverID != in.From {
		return nil, apperr.Forbidden("only the receiver can accept this call")
	}
	if call.Status.Terminal() {
		return nil, apperr.Conflict("call has already finished")
	}

	now := s.now().UTC()
	call, err = s.store.TransitionCall(ctx, callID, domain.ActiveCallStatuses, domain.CallUpdate{
		Status:    domain.CallIncoming,
		StartTime: &now,
		At:        now,
	})
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, apperr.Conflict("call has already finished")
	}
	if err != nil {
		return nil, repository.AppError(err, "call")
	}

	s.router.Deliver(ctx, call.CallerID, events.AcceptCallEvent{CallID: call.ID, From: in.From, Signal: in.Signal})
	s.updated(ctx, call)
	return call, nil
}

// resolveForAccept finds the call in.To placed to in.From: the index first,
// then the newest outgoing row with that orientation.
func (s *Service) resolveForAccept(ctx context.Context, in Signal) (string, error) {
	if in.CallID != "" {
		return in.CallID, nil
	}
	if id, ok := s.indexLookup(ctx, in.To, in.From); ok {
		return id, nil
	}
	call, err := s.store.LatestCall(ctx, in.To, in.From, domain.CallOutgoing)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.NotFound("invalid call id")
	}
	if err != nil {
		return "", repository.AppError(err, "call")
	}
	return call.ID, nil
}

// resolvePair finds the pair's call in either orientation, first in the
// index and then in the store. It returns "" when there is none.
func (s *Service) resolvePair(ctx context.Context, in Signal) (string, error) {
	if in.CallID != "" {
		return in.CallID, nil
	}
	if id, ok := s.indexLookup(ctx, in.From, in.To); ok {
		return id, nil
	}
	if id, ok := s.indexLookup(ctx, in.To, in.From); ok {
		return id, nil
	}
	call, err := s.store.FindActiveCall(ctx, in.From, in.To)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", repository.AppError(err, "call")
	}
	return call.ID, nil
}

// Reject declines or abandons a call before it has ended. Either party may
// send it; the call becomes missed.
func (s *Service) Reject(ctx context.Context, actorID string, in Signal) (*domain.Call, error) {
	if err := checkActor(actorID, in.From); err != nil {
		return nil, err
	}
	callID, err := s.resolvePair(ctx, in)
	if err != nil {
		return nil, err
	}
	if callID == "" {
		return nil, apperr.NotFound("invalid call id")
	}
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, repository.AppError(err, "call")
	}
	if !call.Involves(in.From) || !call.Involves(in.To) {
		return nil, apperr.Forbidden("call does not belong to these users")
	}
	if call.Status.Terminal() {
		return nil, apperr.Conflict("call has already finished")
	}

	now := s.now().UTC()
	call, err = s.store.TransitionCall(ctx, callID, domain.ActiveCallStatuses, domain.CallUpdate{
		Status:  domain.CallMissed,
		EndedAt: &now,
		At:      now,
	})
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, apperr.Conflict("call has already finished")
	}
	if err != nil {
		return nil, repository.AppError(err, "call")
	}

	s.indexRemovePair(ctx, call.CallerID, call.ReceiverID)
	s.router.Deliver(ctx, in.To, events.RejectCallEvent{CallID: call.ID, From: in.From})
	s.updated(ctx, call)
	return call, nil
}

// End hangs up. When no call can be resolved the peer still receives an
// end-call with a null id and no error is returned. Ending a finished call
// repeats the notifications for the stored record.
func (s *Service) End(ctx context.Context, actorID string, in Signal) (*domain.Call, error) {
	if err := checkActor(actorID, in.From); err != nil {
		return nil, err
	}
	callID, err := s.resolvePair(ctx, in)
	if err != nil {
		return nil, err
	}
	if callID == "" {
		s.router.Deliver(ctx, in.To, events.EndCallEvent{From: in.From})
		return nil, nil
	}
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, repository.AppError(err, "call")
	}
	if !call.Involves(in.From) || !call.Involves(in.To) {
		return nil, apperr.Forbidden("call does not belong to these users")
	}

	if !call.Status.Terminal() {
		now := s.now().UTC()
		upd := domain.CallUpdate{Status: domain.CallEnded, EndedAt: &now, At: now}
		if call.StartTime != nil {
			d := int64(now.Sub(*call.StartTime) / time.Second)
			if d < 0 {
				d = 0
			}
			upd.Duration = &d
		}
		ended, err := s.store.TransitionCall(ctx, callID, domain.ActiveCallStatuses, upd)
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			// lost a race with another terminal transition
			if call, err = s.store.GetCall(ctx, callID); err != nil {
				return nil, repository.AppError(err, "call")
			}
		case err != nil:
			return nil, repository.AppError(err, "call")
		default:
			call = ended
		}
	}

	s.indexRemovePair(ctx, call.CallerID, call.ReceiverID)
	id := call.ID
	s.router.Deliver(ctx, in.To, events.EndCallEvent{CallID: &id, From: in.From, Duration: call.Duration})
	s.updated(ctx, call)
	return call, nil
}

// ReapStale marks missed every non-terminal call created more than the
// staleness threshold ago and returns how many it changed.
func (s *Service) ReapStale(ctx context.Context) (int, error) {
	now := s.now().UTC()
	reaped, err := s.store.MissStaleCalls(ctx, now.Add(-s.staleAfter), now)
	if err != nil {
		return 0, repository.AppError(err, "calls")
	}
	for i := range reaped {
		call := &reaped[i]
		s.indexRemovePair(ctx, call.CallerID, call.ReceiverID)
		s.updated(ctx, call)
		s.publishMissed(call, "stale")
	}
	if len(reaped) > 0 {
		if s.metrics != nil {
			s.metrics.CallsReaped.Add(float64(len(reaped)))
		}
		s.log.Info("reaped stale calls", zap.Int("count", len(reaped)))
	}
	return len(reaped), nil
}

// RunReaper calls ReapStale every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapStale(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("reap stale calls", zap.Error(err))
			}
		}
	}
}

// HandleDisconnect marks missed every unfinished call of a user who has no
// connection left.
func (s *Service) HandleDisconnect(ctx context.Context, userID string) {
	missed, err := s.store.MissActiveCallsFor(ctx, userID, s.now().UTC())
	if err != nil {
		s.log.Error("miss calls on disconnect", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.index.RemoveUser(ctx, userID); err != nil {
		s.log.Warn("call index purge", zap.String("user_id", userID), zap.Error(err))
	}
	for i := range missed {
		s.updated(ctx, &missed[i])
		s.publishMissed(&missed[i], "disconnect")
	}
}

// History returns userID's most recent calls, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.Call, error) {
	calls, err := s.store.ListCalls(ctx, userID, limit)
	if err != nil {
		return nil, repository.AppError(err, "calls")
	}
	return calls, nil
}

func (s *Service) updated(ctx context.Context, call *domain.Call) {
	ev := events.CallUpdatedEvent{Call: *call}
	s.router.Deliver(ctx, call.CallerID, ev)
	s.router.Deliver(ctx, call.ReceiverID, ev)
}

func (s *Service) publishMissed(call *domain.Call, reason string) {
	kafka.PublishAsync(s.pub, s.log, kafka.Event{
		Type: kafka.TypeCallMissed,
		Key:  domain.PairKey(call.CallerID, call.ReceiverID),
		At:   call.UpdatedAt,
		Payload: map[string]any{
			"call":   call,
			"reason": reason,
		},
	})
}

// index failures are logged and never fail a request

func (s *Service) indexLookup(ctx context.Context, callerID, receiverID string) (string, bool) {
	id, ok, err := s.index.Lookup(ctx, callerID, receiverID)
	if err != nil {
		s.log.Warn("call index lookup", zap.Error(err))
		return "", false
	}
	return id, ok
}

func (s *Service) indexRemove(ctx context.Context, callerID, receiverID string) {
	if err := s.index.Remove(ctx, callerID, receiverID); err != nil {
		s.log.Warn("call index remove", zap.Error(err))
	}
}

func (s *Service) indexRemovePair(ctx context.Context, a, b string) {
	if err := callindex.RemovePair(ctx, s.index, a, b); err != nil {
		s.log.Warn("call index remove", zap.Error(err))
	}
}
