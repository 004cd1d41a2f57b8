package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/hub"
	"github.com/fathima-sithara/chat-hub/internal/repository"
	"github.com/fathima-sithara/chat-hub/internal/testutil"
)

type fixture struct {
	svc   *Service
	store *repository.MemoryStore
	hub   *hub.Hub
	clock *testutil.Clock
	conns map[string]*hub.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := testutil.NewTestLogger(t)
	store := repository.NewMemoryStore()
	h := hub.New(log)
	f := &fixture{
		store: store,
		hub:   h,
		clock: testutil.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		conns: map[string]*hub.Client{},
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		if err := store.CreateUser(ctx, &domain.User{ID: id, Name: id, Email: id + "@example.com"}); err != nil {
			t.Fatal(err)
		}
		f.conns[id] = testutil.Connect(h, id)
	}
	f.svc = NewService(store, h, nil, log)
	f.svc.SetClock(f.clock.Now)
	return f
}

func (f *fixture) drain(t *testing.T, user string) []events.Envelope {
	t.Helper()
	return testutil.Drain(t, f.conns[user])
}

func (f *fixture) send(t *testing.T, from, to, content string) *domain.Message {
	t.Helper()
	m, err := f.svc.Send(context.Background(), from, to, content)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Second)
	return m
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("err = %v, want %s", err, kind)
	}
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.send(t, "alice", "bob", "hi")
	if m.IsRead || m.ID == "" {
		t.Fatalf("message = %+v", m)
	}
	for _, user := range []string{"alice", "bob"} {
		var ev events.ReceiveMessageEvent
		testutil.DecodeData(t, testutil.Find(t, f.drain(t, user), events.ReceiveMessage), &ev)
		if ev.Message.ID != m.ID || ev.Message.Content != "hi" {
			t.Fatalf("%s got %+v", user, ev.Message)
		}
	}
	if n := len(f.drain(t, "carol")); n != 0 {
		t.Fatalf("bystander got %d frames", n)
	}

	_, err := f.svc.Send(ctx, "alice", "bob", "   ")
	wantKind(t, err, apperr.KindInvalid)
	_, err = f.svc.Send(ctx, "alice", "ghost", "hi")
	wantKind(t, err, apperr.KindNotFound)
}

func TestThreadMarksRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.send(t, "alice", "bob", "one")
	reply := f.send(t, "bob", "alice", "two")
	third := f.send(t, "alice", "bob", "three")
	f.drain(t, "alice")
	f.drain(t, "bob")

	thread, err := f.svc.Thread(ctx, "bob", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 3 || thread[0].ID != first.ID || thread[1].ID != reply.ID || thread[2].ID != third.ID {
		t.Fatalf("thread order = %+v", thread)
	}
	if !thread[0].IsRead || !thread[2].IsRead || thread[1].IsRead {
		t.Fatalf("read flags = %v %v %v", thread[0].IsRead, thread[1].IsRead, thread[2].IsRead)
	}

	var ev events.MessagesReadEvent
	testutil.DecodeData(t, testutil.Find(t, f.drain(t, "alice"), events.MessagesRead), &ev)
	if ev.ReaderID != "bob" || len(ev.MessageIDs) != 2 {
		t.Fatalf("messagesRead = %+v", ev)
	}

	// nothing left to mark, so no second notification
	if _, err := f.svc.Thread(ctx, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if n := testutil.Count(f.drain(t, "alice"), events.MessagesRead); n != 0 {
		t.Fatalf("got %d messagesRead on a read thread", n)
	}
}

// lateWriteStore stores one more message right after a thread is listed.
type lateWriteStore struct {
	*repository.MemoryStore
	late *domain.Message
}

func (s *lateWriteStore) ListThread(ctx context.Context, a, b string) ([]domain.Message, error) {
	msgs, err := s.MemoryStore.ListThread(ctx, a, b)
	if err != nil || s.late == nil {
		return msgs, err
	}
	late := s.late
	s.late = nil
	if err := s.MemoryStore.CreateMessage(ctx, late); err != nil {
		return nil, err
	}
	return msgs, nil
}

func TestThreadMarksOnlyReturnedMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.send(t, "alice", "bob", "one")
	f.drain(t, "alice")
	f.drain(t, "bob")

	late := &domain.Message{SenderID: "alice", ReceiverID: "bob", Content: "two", CreatedAt: f.clock.Now()}
	svc := NewService(&lateWriteStore{MemoryStore: f.store, late: late}, f.hub, nil, testutil.NewTestLogger(t))
	svc.SetClock(f.clock.Now)

	thread, err := svc.Thread(ctx, "bob", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || thread[0].ID != first.ID || !thread[0].IsRead {
		t.Fatalf("thread = %+v", thread)
	}

	stored, err := f.store.GetMessage(ctx, late.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsRead {
		t.Fatal("message stored after the listing was marked read")
	}

	var ev events.MessagesReadEvent
	testutil.DecodeData(t, testutil.Find(t, f.drain(t, "alice"), events.MessagesRead), &ev)
	if len(ev.MessageIDs) != 1 || ev.MessageIDs[0] != first.ID {
		t.Fatalf("messagesRead ids = %v", ev.MessageIDs)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, "alice", "bob", "one")
	f.send(t, "alice", "bob", "two")
	f.drain(t, "alice")

	ids, err := f.svc.MarkRead(ctx, "bob", "alice")
	if err != nil || len(ids) != 2 {
		t.Fatalf("MarkRead() = %v, %v", ids, err)
	}
	testutil.Find(t, f.drain(t, "alice"), events.MessagesRead)

	ids, _ = f.svc.MarkRead(ctx, "bob", "alice")
	if len(ids) != 0 {
		t.Fatalf("second MarkRead changed %v", ids)
	}
	if n := len(f.drain(t, "alice")); n != 0 {
		t.Fatalf("no-op MarkRead delivered %d frames", n)
	}
}

func TestEditAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.send(t, "alice", "bob", "helo")

	_, err := f.svc.Edit(ctx, "bob", m.ID, "hijack")
	wantKind(t, err, apperr.KindAuthorization)
	edited, err := f.svc.Edit(ctx, "alice", m.ID, "hello")
	if err != nil || !edited.IsEdited || edited.Content != "hello" {
		t.Fatalf("Edit() = %+v, %v", edited, err)
	}
	testutil.Find(t, f.drain(t, "bob"), events.MessageUpdated)

	if _, err := f.svc.React(ctx, "bob", m.ID, "👍"); err != nil {
		t.Fatal(err)
	}
	wantKind(t, f.svc.Delete(ctx, "bob", m.ID), apperr.KindAuthorization)
	if err := f.svc.Delete(ctx, "alice", m.ID); err != nil {
		t.Fatal(err)
	}
	testutil.Find(t, f.drain(t, "bob"), events.MessageDeleted)
	if rs, _ := f.store.ListReactions(ctx, []string{m.ID}); len(rs) != 0 {
		t.Fatalf("reactions survived delete: %+v", rs)
	}
	wantKind(t, f.svc.Delete(ctx, "alice", m.ID), apperr.KindNotFound)
	_, err = f.svc.Edit(ctx, "alice", m.ID, "x")
	wantKind(t, err, apperr.KindNotFound)
}

func TestReactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.send(t, "alice", "bob", "hi")
	f.drain(t, "alice")

	t.Run("replace keeps one reaction per user", func(t *testing.T) {
		first, err := f.svc.React(ctx, "bob", m.ID, "👍")
		if err != nil {
			t.Fatal(err)
		}
		second, err := f.svc.React(ctx, "bob", m.ID, "❤️")
		if err != nil {
			t.Fatal(err)
		}
		if second.ID != first.ID || second.Emoji != "❤️" {
			t.Fatalf("replace = %+v, first = %+v", second, first)
		}
		thread, _ := f.svc.Thread(ctx, "alice", "bob")
		if len(thread) != 1 || len(thread[0].Reactions) != 1 || thread[0].Reactions[0].Emoji != "❤️" {
			t.Fatalf("thread reactions = %+v", thread)
		}
		if n := testutil.Count(f.drain(t, "alice"), events.MessageReaction); n != 2 {
			t.Fatalf("messageReaction events = %d, want 2", n)
		}
	})

	t.Run("outsider cannot react", func(t *testing.T) {
		_, err := f.svc.React(ctx, "carol", m.ID, "👀")
		wantKind(t, err, apperr.KindAuthorization)
	})

	t.Run("remove", func(t *testing.T) {
		removed, err := f.svc.Unreact(ctx, "bob", m.ID)
		if err != nil || !removed {
			t.Fatalf("Unreact() = %v, %v", removed, err)
		}
		var ev events.MessageReactionRemovedEvent
		testutil.DecodeData(t, testutil.Find(t, f.drain(t, "alice"), events.MessageReactionRemoved), &ev)
		if ev.UserID != "bob" || ev.MessageID != m.ID {
			t.Fatalf("removed = %+v", ev)
		}
	})

	t.Run("remove without reaction is a silent no-op", func(t *testing.T) {
		f.drain(t, "bob")
		removed, err := f.svc.Unreact(ctx, "bob", m.ID)
		if err != nil || removed {
			t.Fatalf("Unreact() = %v, %v", removed, err)
		}
		if n := len(f.drain(t, "alice")) + len(f.drain(t, "bob")); n != 0 {
			t.Fatalf("no-op unreact delivered %d frames", n)
		}
	})

	t.Run("remove on missing message", func(t *testing.T) {
		_, err := f.svc.Unreact(ctx, "bob", "missing")
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestTyping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Typing(ctx, "alice", "bob", true)
	f.svc.Typing(ctx, "alice", "bob", false)

	names := testutil.Names(f.drain(t, "bob"))
	if len(names) != 2 || names[0] != events.UserTyping || names[1] != events.UserStoppedTyping {
		t.Fatalf("bob got %v", names)
	}
	if n := len(f.drain(t, "alice")); n != 0 {
		t.Fatalf("sender got %d typing frames", n)
	}
}
