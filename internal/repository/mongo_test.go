package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/fathima-sithara/chat-hub/internal/domain"
)

// The Mongo store needs a replica set for transactions; these tests run only
// when MONGO_URI points at one.
func setupMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	name := "chathub_test_" + uuid.NewString()[:8]
	s, err := ConnectMongo(ctx, MongoOptions{URI: uri, Database: name, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestMongoStoreFriendRequests(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	req := &domain.FriendRequest{SenderID: "a", ReceiverID: "b", CreatedAt: t0}
	if err := s.CreateFriendRequest(ctx, req); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFriendRequest(ctx, &domain.FriendRequest{SenderID: "b", ReceiverID: "a", CreatedAt: t0}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate pending error = %v", err)
	}
	if _, _, err := s.AcceptFriendRequest(ctx, req.ID, t0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := s.AcceptFriendRequest(ctx, req.ID, t0); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("second accept error = %v", err)
	}
	if _, err := s.GetFriendship(ctx, "b", "a"); err != nil {
		t.Fatalf("GetFriendship: %v", err)
	}
}

func TestMongoStoreCalls(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	first, err := s.SaveActiveCall(ctx, &domain.Call{CallerID: "a", ReceiverID: "b", CallType: domain.CallAudio, CreatedAt: t0})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveActiveCall(ctx, &domain.Call{CallerID: "a", ReceiverID: "b", CallType: domain.CallVideo, CreatedAt: t0})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("dedup failed: %s != %s", first.ID, second.ID)
	}
	missed, err := s.MissStaleCalls(ctx, t0.Add(time.Minute), t0.Add(time.Minute))
	if err != nil || len(missed) != 1 {
		t.Fatalf("MissStaleCalls = %v, %v", missed, err)
	}
	if _, err := s.FindActiveCall(ctx, "a", "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindActiveCall after reap: %v", err)
	}
}

func TestMongoStoreMessagesRead(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		m := &domain.Message{SenderID: "a", ReceiverID: "b", Content: "same instant", CreatedAt: t0}
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, m.ID)
	}
	thread, err := s.ListThread(ctx, "b", "a")
	if err != nil || len(thread) != 3 {
		t.Fatalf("ListThread = %v, %v", thread, err)
	}
	for i, m := range thread {
		if m.ID != ids[i] {
			t.Fatalf("position %d = %s, want %s", i, m.ID, ids[i])
		}
	}

	changed, err := s.MarkMessagesRead(ctx, ids[:2], "b", t0.Add(time.Minute))
	if err != nil || len(changed) != 2 {
		t.Fatalf("MarkMessagesRead = %v, %v", changed, err)
	}
	if m, _ := s.GetMessage(ctx, ids[2]); m.IsRead {
		t.Fatal("message outside the id list was marked read")
	}
}
