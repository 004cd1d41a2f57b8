package handlers

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fathima-sithara/chat-hub/internal/callindex"
	"github.com/fathima-sithara/chat-hub/internal/calls"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/friends"
	"github.com/fathima-sithara/chat-hub/internal/hub"
	"github.com/fathima-sithara/chat-hub/internal/messaging"
	"github.com/fathima-sithara/chat-hub/internal/metrics"
	"github.com/fathima-sithara/chat-hub/internal/presence"
	"github.com/fathima-sithara/chat-hub/internal/repository"
	"github.com/fathima-sithara/chat-hub/internal/testutil"
)

type dispatchFixture struct {
	d       *Dispatcher
	hub     *hub.Hub
	reg     *presence.Registry
	store   *repository.MemoryStore
	metrics *metrics.Metrics
	clients []*hub.Client
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	ctx := context.Background()
	log := testutil.NewTestLogger(t)
	store := repository.NewMemoryStore()
	for _, id := range []string{"alice", "bob"} {
		if err := store.CreateUser(ctx, &domain.User{ID: id, Name: id, Email: id + "@example.com"}); err != nil {
			t.Fatal(err)
		}
	}
	h := hub.New(log)
	reg := presence.NewRegistry(h, store, log)
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(DispatcherConfig{
		Rooms:     reg,
		Friends:   friends.NewService(store, h, nil, log),
		Messaging: messaging.NewService(store, h, nil, log),
		Calls:     calls.NewService(store, h, reg, callindex.NewMemory(), log),
		Reply:     h,
		Metrics:   m,
		Log:       log,
	})
	return &dispatchFixture{d: d, hub: h, reg: reg, store: store, metrics: m}
}

func (f *dispatchFixture) connect(t *testing.T, userID string) *hub.Client {
	t.Helper()
	c := hub.NewClient(userID, 64)
	f.reg.Connect(context.Background(), c)
	f.clients = append(f.clients, c)
	for _, other := range f.clients {
		testutil.Drain(t, other)
	}
	return c
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	b, err := jsoniter.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func errorEvent(t *testing.T, envs []events.Envelope, scope string) events.ErrorEvent {
	t.Helper()
	var e events.ErrorEvent
	testutil.DecodeData(t, testutil.Find(t, envs, scope), &e)
	return e
}

func TestDispatchRejectsBadFrames(t *testing.T) {
	f := newDispatchFixture(t)
	alice := f.connect(t, "alice")

	t.Run("malformed", func(t *testing.T) {
		f.d.Dispatch(alice, []byte(`{not json`))
		e := errorEvent(t, testutil.Drain(t, alice), events.ScopeGeneral)
		if e.Operation != "decode" || e.Code != "invalid" {
			t.Fatalf("error = %+v", e)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		f.d.Dispatch(alice, frame(t, "teleport", map[string]string{}))
		e := errorEvent(t, testutil.Drain(t, alice), events.ScopeGeneral)
		if e.Operation != "teleport" || e.Message != "unknown event teleport" {
			t.Fatalf("error = %+v", e)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		f.d.Dispatch(alice, frame(t, events.InSendMessage, map[string]string{"content": "hi"}))
		e := errorEvent(t, testutil.Drain(t, alice), events.ScopeGeneral)
		if e.Operation != events.InSendMessage || e.Code != "invalid" {
			t.Fatalf("error = %+v", e)
		}
	})
}

func TestDispatchScopesErrors(t *testing.T) {
	f := newDispatchFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.d.Dispatch(alice, frame(t, events.InSendFriendRequest, map[string]string{"receiverId": "alice"}))
	envs := testutil.Drain(t, alice)
	if e := errorEvent(t, envs, events.ScopeFriendRequest); e.Operation != events.InSendFriendRequest {
		t.Fatalf("friend error = %+v", e)
	}

	f.d.Dispatch(alice, frame(t, events.InCallUser, map[string]string{
		"from": "alice", "to": "nobody", "callType": "audio",
	}))
	envs = testutil.Drain(t, alice)
	if e := errorEvent(t, envs, events.ScopeCall); e.Code != "not_found" {
		t.Fatalf("call error = %+v", e)
	}

	f.d.Dispatch(alice, frame(t, events.InEditMessage, map[string]string{"messageId": "missing", "content": "x"}))
	envs = testutil.Drain(t, alice)
	if e := errorEvent(t, envs, events.ScopeGeneral); e.Code != "not_found" {
		t.Fatalf("message error = %+v", e)
	}

	if got := testutil.Drain(t, bob); len(got) != 0 {
		t.Fatalf("bob saw %v", testutil.Names(got))
	}
	if got := promtest.ToFloat64(f.metrics.Events.WithLabelValues(events.InCallUser, "error")); got != 1 {
		t.Fatalf("call-user error count = %v", got)
	}
}

func TestDispatchFetchMessagesReplies(t *testing.T) {
	f := newDispatchFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.d.Dispatch(alice, frame(t, events.InSendMessage, map[string]string{"receiverId": "bob", "content": "hello"}))
	testutil.Find(t, testutil.Drain(t, bob), events.ReceiveMessage)
	testutil.Drain(t, alice)

	f.d.Dispatch(bob, frame(t, events.InFetchMessages, map[string]string{"friendId": "alice"}))
	var thread events.MessageThreadEvent
	testutil.DecodeData(t, testutil.Find(t, testutil.Drain(t, bob), events.MessageThread), &thread)
	if thread.FriendID != "alice" || len(thread.Messages) != 1 || !thread.Messages[0].IsRead {
		t.Fatalf("thread = %+v", thread)
	}
	testutil.Find(t, testutil.Drain(t, alice), events.MessagesRead)
}

func TestDispatchCallInitiatedGoesToInvokingConnection(t *testing.T) {
	f := newDispatchFixture(t)
	phone := f.connect(t, "alice")
	laptop := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.d.Dispatch(phone, frame(t, events.InCallUser, map[string]any{
		"from": "alice", "to": "bob", "callType": "video", "signal": map[string]string{"sdp": "offer"},
	}))

	var initiated events.CallInitiatedEvent
	testutil.DecodeData(t, testutil.Find(t, testutil.Drain(t, phone), events.CallInitiated), &initiated)
	if initiated.To != "bob" || initiated.CallID == "" {
		t.Fatalf("initiated = %+v", initiated)
	}
	if n := testutil.Count(testutil.Drain(t, laptop), events.CallInitiated); n != 0 {
		t.Fatalf("second connection got %d call-initiated", n)
	}
	var incoming events.IncomingCallEvent
	testutil.DecodeData(t, testutil.Find(t, testutil.Drain(t, bob), events.IncomingCall), &incoming)
	if incoming.CallID != initiated.CallID || incoming.From != "alice" {
		t.Fatalf("incoming = %+v", incoming)
	}
}

func TestDispatchJoinOnlyOwnRoom(t *testing.T) {
	f := newDispatchFixture(t)
	alice := f.connect(t, "alice")
	f.connect(t, "bob")

	f.d.Dispatch(alice, frame(t, events.InJoin, map[string]string{"room": "bob"}))
	if got := testutil.Drain(t, alice); len(got) != 0 {
		t.Fatalf("join replied %v", testutil.Names(got))
	}
	if n := f.hub.Count("bob"); n != 1 {
		t.Fatalf("bob room has %d connections", n)
	}

	f.d.Dispatch(alice, frame(t, events.InTyping, map[string]string{"receiverId": "bob"}))
	if got := testutil.Drain(t, alice); len(got) != 0 {
		t.Fatalf("alice received %v after typing to bob", testutil.Names(got))
	}
}

func TestRateLimitedReply(t *testing.T) {
	f := newDispatchFixture(t)
	alice := f.connect(t, "alice")

	f.d.RateLimited(alice)
	e := errorEvent(t, testutil.Drain(t, alice), events.ScopeGeneral)
	if e.Operation != "rateLimit" || e.Code != "invalid" {
		t.Fatalf("error = %+v", e)
	}
}
