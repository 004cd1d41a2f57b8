// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/hub"
)

func NewTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Drain returns every frame currently queued on c, decoded.
func Drain(t *testing.T, c *hub.Client) []events.Envelope {
	t.Helper()
	var out []events.Envelope
	for {
		select {
		case frame, ok := <-c.Send():
			if !ok {
				return out
			}
			env, err := events.Decode(frame)
			if err != nil {
				t.Fatalf("decode frame %s: %v", frame, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func Names(envs []events.Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Event)
	}
	return names
}

// Find returns the first envelope named name, failing the test if none.
func Find(t *testing.T, envs []events.Envelope, name string) events.Envelope {
	t.Helper()
	for _, e := range envs {
		if e.Event == name {
			return e
		}
	}
	t.Fatalf("no %q event in %v", name, Names(envs))
	return events.Envelope{}
}

// Count returns how many envelopes are named name.
func Count(envs []events.Envelope, name string) int {
	n := 0
	for _, e := range envs {
		if e.Event == name {
			n++
		}
	}
	return n
}

// DecodeData unmarshals the data of env into v.
func DecodeData(t *testing.T, env events.Envelope, v any) {
	t.Helper()
	if err := jsoniter.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode %s data: %v", env.Event, err)
	}
}

// Connect creates a client for userID and joins its own room.
func Connect(h *hub.Hub, userID string) *hub.Client {
	c := hub.NewClient(userID, 64)
	h.Join(userID, c)
	return c
}
