package presence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/hub"
)

type Router interface {
	Join(room string, c *hub.Client)
	Leave(room string, c *hub.Client) int
	Count(room string) int
	Broadcast(ctx context.Context, p events.Payload)
}

type StatusStore interface {
	SetUserOnline(ctx context.Context, id string, online bool) error
}

// Cluster counts a user's connections across every instance.
type Cluster interface {
	AddConnection(ctx context.Context, userID, connID string) error
	Touch(ctx context.Context, userID, connID string) error
	RemoveConnection(ctx context.Context, userID, connID string) (int64, error)
	Online(ctx context.Context, userID string) (bool, error)
}

// OfflineHook runs after a user's last connection has gone.
type OfflineHook func(ctx context.Context, userID string)

// Registry tracks which users have live connections and keeps every
// connection in the room named after its user.
type Registry struct {
	router  Router
	users   StatusStore
	cluster Cluster
	log     *zap.Logger

	mu    sync.Mutex
	hooks []OfflineHook
	// epoch counts connects per user; a Disconnect that sees it move has
	// raced a reconnect. offline holds users last stored offline here.
	epoch   map[string]uint64
	offline map[string]bool
}

type Option func(*Registry)

// WithCluster makes online checks and last-connection detection span
// instances.
func WithCluster(c Cluster) Option { return func(r *Registry) { r.cluster = c } }

func NewRegistry(router Router, users StatusStore, log *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		router:  router,
		users:   users,
		log:     log,
		epoch:   make(map[string]uint64),
		offline: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) OnOffline(fn OfflineHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Connect joins c to its user's room and announces the user online.
func (r *Registry) Connect(ctx context.Context, c *hub.Client) {
	r.router.Join(c.UserID, c)
	r.mu.Lock()
	r.epoch[c.UserID]++
	restore := r.offline[c.UserID]
	delete(r.offline, c.UserID)
	r.mu.Unlock()
	if restore {
		// a Disconnect may have stored the user offline after the handshake
		// marked it online
		r.setOnline(ctx, c.UserID, true)
	}
	if r.cluster != nil {
		if err := r.cluster.AddConnection(ctx, c.UserID, c.ID); err != nil {
			r.log.Warn("cluster presence add", zap.String("user_id", c.UserID), zap.Error(err))
		}
	}
	r.log.Debug("user connected", zap.String("user_id", c.UserID), zap.String("conn_id", c.ID))
	r.router.Broadcast(ctx, events.UserStatusEvent{UserID: c.UserID, Online: true})
}

// Join honors a room join only for the caller's own room.
func (r *Registry) Join(c *hub.Client, room string) bool {
	if room != c.UserID {
		r.log.Warn("join for foreign room ignored", zap.String("user_id", c.UserID), zap.String("room", room))
		return false
	}
	r.router.Join(room, c)
	return true
}

// Touch refreshes the cluster lifetime of c.
func (r *Registry) Touch(ctx context.Context, c *hub.Client) {
	if r.cluster == nil {
		return
	}
	if err := r.cluster.Touch(ctx, c.UserID, c.ID); err != nil {
		r.log.Warn("cluster presence touch", zap.String("user_id", c.UserID), zap.Error(err))
	}
}

// Disconnect removes c. When it was the user's last connection the user is
// stored offline, everyone is told, and the offline hooks run. A connect for
// the same user that lands meanwhile wins: the user is left online and the
// offline announcement is skipped.
func (r *Registry) Disconnect(ctx context.Context, c *hub.Client) {
	r.mu.Lock()
	epoch := r.epoch[c.UserID]
	r.mu.Unlock()

	remaining := int64(r.router.Leave(c.UserID, c))
	if r.cluster != nil {
		n, err := r.cluster.RemoveConnection(ctx, c.UserID, c.ID)
		if err != nil {
			r.log.Warn("cluster presence remove", zap.String("user_id", c.UserID), zap.Error(err))
		} else if n > remaining {
			remaining = n
		}
	}
	if remaining > 0 {
		return
	}

	r.mu.Lock()
	if r.epoch[c.UserID] != epoch || r.router.Count(c.UserID) > 0 {
		r.mu.Unlock()
		return
	}
	r.offline[c.UserID] = true
	r.mu.Unlock()

	r.setOnline(ctx, c.UserID, false)
	if r.reconnected(c.UserID, epoch) {
		// our write may have landed after the new connection's
		r.setOnline(ctx, c.UserID, true)
		r.log.Debug("reconnect during disconnect", zap.String("user_id", c.UserID))
		return
	}
	r.router.Broadcast(ctx, events.UserStatusEvent{UserID: c.UserID, Online: false})

	r.mu.Lock()
	hooks := append([]OfflineHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, fn := range hooks {
		if r.reconnected(c.UserID, epoch) {
			return
		}
		fn(ctx, c.UserID)
	}
	r.log.Debug("user offline", zap.String("user_id", c.UserID))
}

func (r *Registry) reconnected(userID string, epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch[userID] != epoch
}

func (r *Registry) setOnline(ctx context.Context, userID string, online bool) {
	if err := r.users.SetUserOnline(ctx, userID, online); err != nil {
		r.log.Warn("store user status", zap.String("user_id", userID), zap.Bool("online", online), zap.Error(err))
	}
}

// Online reports whether userID has at least one live connection.
func (r *Registry) Online(ctx context.Context, userID string) (bool, error) {
	if r.router.Count(userID) > 0 {
		return true, nil
	}
	if r.cluster == nil {
		return false, nil
	}
	return r.cluster.Online(ctx, userID)
}
