package hub

import (
	"context"
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/events"
)

const shardCount = 32

// BroadcastRoom addresses every connection on every instance.
const BroadcastRoom = "*"

// Bridge carries frames to the other instances serving the same users.
type Bridge interface {
	Publish(ctx context.Context, room string, frame []byte) error
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// Hub is the room-based event router. A room is the set of connections of
// one user; delivery is fire-and-forget and preserves publish order per
// connection.
type Hub struct {
	shards [shardCount]*shard
	bridge Bridge
	log    *zap.Logger
	onDrop func(c *Client)
}

type Option func(*Hub)

func WithBridge(b Bridge) Option { return func(h *Hub) { h.bridge = b } }

// WithDropHandler is called after a slow client has been closed.
func WithDropHandler(fn func(c *Client)) Option { return func(h *Hub) { h.onDrop = fn } }

func New(log *zap.Logger, opts ...Option) *Hub {
	h := &Hub{log: log}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[string]map[*Client]struct{})}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) shardFor(room string) *shard {
	return h.shards[fnv1a.HashString32(room)%shardCount]
}

// Join adds c to room. Joining twice is a no-op.
func (h *Hub) Join(room string, c *Client) {
	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.rooms[room]
	if !ok {
		conns = make(map[*Client]struct{})
		s.rooms[room] = conns
	}
	conns[c] = struct{}{}
}

// Leave removes c from room and returns how many connections remain in it.
func (h *Hub) Leave(room string, c *Client) int {
	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.rooms[room]
	if !ok {
		return 0
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(s.rooms, room)
		return 0
	}
	return len(conns)
}

// Count is the number of local connections in room.
func (h *Hub) Count(room string) int {
	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}

// Deliver sends p to every connection of room, here and through the bridge.
func (h *Hub) Deliver(ctx context.Context, room string, p events.Payload) {
	frame, err := events.Encode(p)
	if err != nil {
		h.log.Error("encode event", zap.String("event", p.EventName()), zap.Error(err))
		return
	}
	h.DeliverFrame(room, frame)
	h.publish(ctx, room, frame)
}

// Broadcast sends p to every connection.
func (h *Hub) Broadcast(ctx context.Context, p events.Payload) {
	h.Deliver(ctx, BroadcastRoom, p)
}

// Send queues p on a single connection only.
func (h *Hub) Send(c *Client, p events.Payload) {
	frame, err := events.Encode(p)
	if err != nil {
		h.log.Error("encode event", zap.String("event", p.EventName()), zap.Error(err))
		return
	}
	h.push(c, frame)
}

// DeliverFrame queues an encoded frame on the local connections of room.
// It is also the entry point for frames arriving from the bridge.
func (h *Hub) DeliverFrame(room string, frame []byte) {
	if room == BroadcastRoom {
		for _, s := range h.shards {
			h.deliverShard(s, nil, frame)
		}
		return
	}
	s := h.shardFor(room)
	h.deliverShard(s, &room, frame)
}

func (h *Hub) deliverShard(s *shard, room *string, frame []byte) {
	var slow []*Client
	s.mu.RLock()
	if room != nil {
		for c := range s.rooms[*room] {
			if !c.enqueue(frame) {
				slow = append(slow, c)
			}
		}
	} else {
		for _, conns := range s.rooms {
			for c := range conns {
				if !c.enqueue(frame) {
					slow = append(slow, c)
				}
			}
		}
	}
	s.mu.RUnlock()
	for _, c := range slow {
		h.drop(c)
	}
}

func (h *Hub) push(c *Client, frame []byte) {
	if !c.enqueue(frame) {
		h.drop(c)
	}
}

// drop closes a client that cannot keep up so it never sees a gap in its
// stream; its reader then runs the normal disconnect path.
func (h *Hub) drop(c *Client) {
	if c.Closed() {
		return
	}
	h.log.Warn("closing slow connection", zap.String("user_id", c.UserID), zap.String("conn_id", c.ID))
	c.Close()
	if h.onDrop != nil {
		h.onDrop(c)
	}
}

func (h *Hub) publish(ctx context.Context, room string, frame []byte) {
	if h.bridge == nil {
		return
	}
	if err := h.bridge.Publish(ctx, room, frame); err != nil {
		h.log.Warn("bridge publish failed", zap.String("room", room), zap.Error(err))
	}
}
