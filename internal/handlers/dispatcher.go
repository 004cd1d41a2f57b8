package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/calls"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/friends"
	"github.com/fathima-sithara/chat-hub/internal/hub"
	"github.com/fathima-sithara/chat-hub/internal/messaging"
	"github.com/fathima-sithara/chat-hub/internal/metrics"
)

const DefaultHandlerTimeout = 10 * time.Second

// Replier queues a payload on a single connection.
type Replier interface {
	Send(c *hub.Client, p events.Payload)
}

type RoomJoiner interface {
	Join(c *hub.Client, room string) bool
}

type handlerFunc func(ctx context.Context, c *hub.Client, env events.Envelope) error

type route struct {
	scope string
	fn    handlerFunc
}

// Dispatcher routes inbound socket events to the coordinators and turns
// their failures into scoped error events for the invoking connection.
type Dispatcher struct {
	rooms     RoomJoiner
	friends   *friends.Service
	messaging *messaging.Service
	calls     *calls.Service
	reply     Replier
	metrics   *metrics.Metrics
	log       *zap.Logger
	timeout   time.Duration
	now       func() time.Time
	routes    map[string]route
}

type DispatcherConfig struct {
	Rooms     RoomJoiner
	Friends   *friends.Service
	Messaging *messaging.Service
	Calls     *calls.Service
	Reply     Replier
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	Timeout   time.Duration
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		rooms:     cfg.Rooms,
		friends:   cfg.Friends,
		messaging: cfg.Messaging,
		calls:     cfg.Calls,
		reply:     cfg.Reply,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
		timeout:   cfg.Timeout,
		now:       time.Now,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultHandlerTimeout
	}
	d.routes = map[string]route{
		events.InJoin: {events.ScopeGeneral, d.join},

		events.InSendFriendRequest:   {events.ScopeFriendRequest, d.sendFriendRequest},
		events.InAcceptFriendRequest: {events.ScopeFriendRequest, d.acceptFriendRequest},
		events.InRejectFriendRequest: {events.ScopeFriendRequest, d.rejectFriendRequest},
		events.InCancelFriendRequest: {events.ScopeFriendRequest, d.cancelFriendRequest},
		events.InUnfriend:            {events.ScopeFriendRequest, d.unfriend},

		events.InSendMessage:      {events.ScopeGeneral, d.sendMessage},
		events.InFetchMessages:    {events.ScopeGeneral, d.fetchMessages},
		events.InMarkMessagesRead: {events.ScopeGeneral, d.markMessagesRead},
		events.InEditMessage:      {events.ScopeGeneral, d.editMessage},
		events.InDeleteMessage:    {events.ScopeGeneral, d.deleteMessage},
		events.InAddReaction:      {events.ScopeGeneral, d.addReaction},
		events.InRemoveReaction:   {events.ScopeGeneral, d.removeReaction},
		events.InTyping:           {events.ScopeGeneral, d.typing(true)},
		events.InStopTyping:       {events.ScopeGeneral, d.typing(false)},

		events.InCallUser:   {events.ScopeCall, d.callUser},
		events.InAcceptCall: {events.ScopeCall, d.acceptCall},
		events.InRejectCall: {events.ScopeCall, d.rejectCall},
		events.InEndCall:    {events.ScopeCall, d.endCall},
	}
	return d
}

// Dispatch handles one inbound frame. The handler runs under its own
// timeout, detached from the connection, so a disconnect never aborts a
// mutation halfway.
func (d *Dispatcher) Dispatch(c *hub.Client, frame []byte) {
	env, err := events.Decode(frame)
	if err != nil {
		d.fail(c, events.ScopeGeneral, "decode", err)
		return
	}
	r, ok := d.routes[env.Event]
	if !ok {
		d.fail(c, events.ScopeGeneral, env.Event, apperr.Invalid("unknown event "+env.Event))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	err = r.fn(ctx, c, env)
	d.metrics.Event(env.Event, err)
	if err != nil {
		d.fail(c, r.scope, env.Event, err)
	}
}

// RateLimited tells c that a frame was dropped by the inbound limiter.
func (d *Dispatcher) RateLimited(c *hub.Client) {
	d.metrics.Event("rate_limited", apperr.Invalid("rate limited"))
	d.reply.Send(c, events.NewError(events.ScopeGeneral, "rateLimit", apperr.Invalid("rate limit exceeded")))
}

func (d *Dispatcher) fail(c *hub.Client, scope, op string, err error) {
	fields := []zap.Field{zap.String("event", op), zap.String("user_id", c.UserID), zap.Error(err)}
	if apperr.Is(err, apperr.KindUnexpected) {
		d.log.Error("socket handler failed", fields...)
	} else {
		d.log.Debug("socket handler rejected", fields...)
	}
	d.reply.Send(c, events.NewError(scope, op, err))
}

func (d *Dispatcher) join(_ context.Context, c *hub.Client, env events.Envelope) error {
	var req events.JoinRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	d.rooms.Join(c, req.Room)
	return nil
}

// friends

func (d *Dispatcher) sendFriendRequest(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.SendFriendRequestRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.friends.SendRequest(ctx, c.UserID, req.ReceiverID)
	return err
}

func (d *Dispatcher) acceptFriendRequest(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.FriendRequestActionRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, _, err := d.friends.Accept(ctx, c.UserID, req.RequestID)
	return err
}

func (d *Dispatcher) rejectFriendRequest(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.FriendRequestActionRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.friends.Reject(ctx, c.UserID, req.RequestID)
	return err
}

func (d *Dispatcher) cancelFriendRequest(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.FriendRequestActionRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.friends.Cancel(ctx, c.UserID, req.RequestID)
	return err
}

func (d *Dispatcher) unfriend(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.UnfriendRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	return d.friends.Unfriend(ctx, c.UserID, req.FriendID)
}

// messaging

func (d *Dispatcher) sendMessage(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.SendMessageRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.messaging.Send(ctx, c.UserID, req.ReceiverID, req.Content)
	return err
}

func (d *Dispatcher) fetchMessages(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.FetchMessagesRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	msgs, err := d.messaging.Thread(ctx, c.UserID, req.FriendID)
	if err != nil {
		return err
	}
	d.reply.Send(c, events.MessageThreadEvent{FriendID: req.FriendID, Messages: msgs})
	return nil
}

func (d *Dispatcher) markMessagesRead(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.MarkReadRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.messaging.MarkRead(ctx, c.UserID, req.SenderID)
	return err
}

func (d *Dispatcher) editMessage(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.EditMessageRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.messaging.Edit(ctx, c.UserID, req.MessageID, req.Content)
	return err
}

func (d *Dispatcher) deleteMessage(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.MessageRefRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	return d.messaging.Delete(ctx, c.UserID, req.MessageID)
}

func (d *Dispatcher) addReaction(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.AddReactionRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.messaging.React(ctx, c.UserID, req.MessageID, req.Emoji)
	return err
}

func (d *Dispatcher) removeReaction(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.MessageRefRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.messaging.Unreact(ctx, c.UserID, req.MessageID)
	return err
}

func (d *Dispatcher) typing(on bool) handlerFunc {
	return func(ctx context.Context, c *hub.Client, env events.Envelope) error {
		var req events.TypingRequest
		if err := events.Bind(env, &req); err != nil {
			return err
		}
		d.messaging.Typing(ctx, c.UserID, req.ReceiverID, on)
		return nil
	}
}

// calls

func (d *Dispatcher) callUser(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.CallUserRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	call, err := d.calls.CallUser(ctx, c.UserID, calls.Signal{
		From:     req.From,
		To:       req.To,
		Signal:   req.Signal,
		CallType: domain.CallType(req.CallType),
	})
	if err != nil {
		return err
	}
	d.reply.Send(c, events.CallInitiatedEvent{
		CallID:    call.ID,
		To:        req.To,
		CallType:  call.CallType,
		Timestamp: d.now().UTC(),
	})
	return nil
}

func (d *Dispatcher) acceptCall(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.AcceptCallRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.calls.Accept(ctx, c.UserID, calls.Signal{From: req.From, To: req.To, Signal: req.Signal, CallID: req.CallID})
	return err
}

func (d *Dispatcher) rejectCall(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.CallRefRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.calls.Reject(ctx, c.UserID, calls.Signal{From: req.From, To: req.To, CallID: req.CallID})
	return err
}

func (d *Dispatcher) endCall(ctx context.Context, c *hub.Client, env events.Envelope) error {
	var req events.CallRefRequest
	if err := events.Bind(env, &req); err != nil {
		return err
	}
	_, err := d.calls.End(ctx, c.UserID, calls.Signal{From: req.From, To: req.To, CallID: req.CallID})
	return err
}
