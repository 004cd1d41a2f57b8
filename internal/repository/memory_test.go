package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/chat-hub/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, s Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := s.CreateUser(context.Background(), &domain.User{ID: id, Name: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("CreateUser(%s): %v", id, err)
		}
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedUsers(t, s, "alice")

	if err := s.CreateUser(ctx, &domain.User{Name: "dup", Email: "ALICE@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email error = %v", err)
	}
	if err := s.SetUserOnline(ctx, "alice", true); err != nil {
		t.Fatalf("SetUserOnline: %v", err)
	}
	u, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || !u.Online {
		t.Fatalf("GetUserByEmail = %+v, %v", u, err)
	}
	if err := s.SetUserOnline(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetUserOnline(ghost) error = %v", err)
	}
}

func TestMemoryStoreOnePendingRequestPerPair(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.CreateFriendRequest(ctx, &domain.FriendRequest{SenderID: "a", ReceiverID: "b", CreatedAt: t0}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := s.CreateFriendRequest(ctx, &domain.FriendRequest{SenderID: "b", ReceiverID: "a", CreatedAt: t0}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("reverse request error = %v, want ErrDuplicate", err)
	}
	pending, _ := s.ListFriendRequests(ctx, "a", domain.FriendRequestPending)
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}

func TestMemoryStoreAcceptIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	req := &domain.FriendRequest{SenderID: "a", ReceiverID: "b", CreatedAt: t0}
	if err := s.CreateFriendRequest(ctx, req); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.AcceptFriendRequest(ctx, req.ID, t0)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStateChanged):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful accepts = %d, want 1", ok)
	}
	friends, _ := s.ListFriendships(ctx, "a")
	if len(friends) != 1 {
		t.Fatalf("friendships = %d, want 1", len(friends))
	}
	if _, err := s.UpdateFriendRequestStatus(ctx, req.ID, domain.FriendRequestPending, domain.FriendRequestRejected, t0); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("reject after accept error = %v", err)
	}
	// terminal request frees the pair for a fresh request
	if err := s.CreateFriendRequest(ctx, &domain.FriendRequest{SenderID: "b", ReceiverID: "a", CreatedAt: t0}); err != nil {
		t.Fatalf("new request after accept: %v", err)
	}
}

func TestMemoryStoreThreadAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	msgs := []*domain.Message{
		{SenderID: "a", ReceiverID: "b", Content: "one", CreatedAt: t0},
		{SenderID: "b", ReceiverID: "a", Content: "two", CreatedAt: t0.Add(time.Second)},
		{SenderID: "a", ReceiverID: "b", Content: "three", CreatedAt: t0.Add(2 * time.Second)},
		{SenderID: "a", ReceiverID: "c", Content: "other", CreatedAt: t0},
	}
	for _, m := range msgs {
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	thread, err := s.ListThread(ctx, "b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 3 || thread[0].Content != "one" || thread[2].Content != "three" {
		t.Fatalf("thread = %+v", thread)
	}

	ids, err := s.MarkThreadRead(ctx, "a", "b", t0.Add(time.Minute))
	if err != nil || len(ids) != 2 {
		t.Fatalf("MarkThreadRead = %v, %v", ids, err)
	}
	again, _ := s.MarkThreadRead(ctx, "a", "b", t0.Add(time.Minute))
	if len(again) != 0 {
		t.Fatalf("second MarkThreadRead = %v, want none", again)
	}
}

func TestMemoryStoreMarkMessagesRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	listed := &domain.Message{SenderID: "a", ReceiverID: "b", Content: "listed", CreatedAt: t0}
	late := &domain.Message{SenderID: "a", ReceiverID: "b", Content: "late", CreatedAt: t0}
	mine := &domain.Message{SenderID: "b", ReceiverID: "a", Content: "mine", CreatedAt: t0}
	for _, m := range []*domain.Message{listed, late, mine} {
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := s.MarkMessagesRead(ctx, []string{listed.ID, mine.ID, "missing"}, "b", t0.Add(time.Minute))
	if err != nil || len(ids) != 1 || ids[0] != listed.ID {
		t.Fatalf("MarkMessagesRead = %v, %v", ids, err)
	}
	if m, _ := s.GetMessage(ctx, late.ID); m.IsRead {
		t.Fatal("message outside the id list was marked read")
	}
	if again, _ := s.MarkMessagesRead(ctx, []string{listed.ID}, "b", t0.Add(time.Minute)); len(again) != 0 {
		t.Fatalf("second MarkMessagesRead = %v, want none", again)
	}
}

func TestMemoryStoreThreadOrderWithEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var want []string
	for i := 0; i < 20; i++ {
		m := &domain.Message{SenderID: "a", ReceiverID: "b", Content: "same instant", CreatedAt: t0}
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
		want = append(want, m.ID)
	}
	for round := 0; round < 3; round++ {
		thread, err := s.ListThread(ctx, "a", "b")
		if err != nil {
			t.Fatal(err)
		}
		for i, m := range thread {
			if m.ID != want[i] {
				t.Fatalf("round %d position %d = %s, want %s", round, i, m.ID, want[i])
			}
		}
	}
}

func TestMemoryStoreReactionUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	m := &domain.Message{SenderID: "a", ReceiverID: "b", Content: "hi", CreatedAt: t0}
	_ = s.CreateMessage(ctx, m)

	first, _ := s.UpsertReaction(ctx, &domain.MessageReaction{MessageID: m.ID, UserID: "b", Emoji: "👍", CreatedAt: t0})
	second, _ := s.UpsertReaction(ctx, &domain.MessageReaction{MessageID: m.ID, UserID: "b", Emoji: "🔥", CreatedAt: t0})
	if first.ID != second.ID {
		t.Fatalf("reaction id changed: %s -> %s", first.ID, second.ID)
	}
	all, _ := s.ListReactions(ctx, []string{m.ID})
	if len(all) != 1 || all[0].Emoji != "🔥" {
		t.Fatalf("reactions = %+v", all)
	}

	if err := s.DeleteMessage(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	all, _ = s.ListReactions(ctx, []string{m.ID})
	if len(all) != 0 {
		t.Fatalf("reactions survived message delete: %+v", all)
	}
}

func TestMemoryStoreCallLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	start := t0
	first, err := s.SaveActiveCall(ctx, &domain.Call{CallerID: "a", ReceiverID: "b", CallType: domain.CallAudio, StartTime: &start, CreatedAt: t0})
	if err != nil {
		t.Fatal(err)
	}
	restart := t0.Add(10 * time.Second)
	second, err := s.SaveActiveCall(ctx, &domain.Call{CallerID: "a", ReceiverID: "b", CallType: domain.CallVideo, StartTime: &restart, CreatedAt: restart})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || second.CallType != domain.CallVideo || !second.StartTime.Equal(restart) {
		t.Fatalf("dedup failed: first=%+v second=%+v", first, second)
	}

	if _, err := s.TransitionCall(ctx, first.ID, []domain.CallStatus{domain.CallIncoming}, domain.CallUpdate{Status: domain.CallEnded, At: t0}); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("transition from wrong status error = %v", err)
	}

	stale, _ := s.MissStaleCalls(ctx, t0, t0)
	if len(stale) != 0 {
		t.Fatalf("reaped too early: %+v", stale)
	}
	stale, _ = s.MissStaleCalls(ctx, t0.Add(time.Second), t0.Add(time.Second))
	if len(stale) != 1 || stale[0].Status != domain.CallMissed {
		t.Fatalf("stale = %+v", stale)
	}
	if _, err := s.FindActiveCall(ctx, "b", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("active call after reaping: %v", err)
	}

	third, _ := s.SaveActiveCall(ctx, &domain.Call{CallerID: "b", ReceiverID: "a", CallType: domain.CallAudio, CreatedAt: t0})
	if third.ID == first.ID {
		t.Fatal("terminal call was reused")
	}
	missed, _ := s.MissActiveCallsFor(ctx, "a", t0)
	if len(missed) != 1 || missed[0].ID != third.ID {
		t.Fatalf("MissActiveCallsFor = %+v", missed)
	}
	history, _ := s.ListCalls(ctx, "a", 1)
	if len(history) != 1 {
		t.Fatalf("ListCalls limit ignored: %d", len(history))
	}
}
