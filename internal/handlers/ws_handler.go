package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fathima-sithara/chat-hub/internal/auth"
	"github.com/fathima-sithara/chat-hub/internal/hub"
	"github.com/fathima-sithara/chat-hub/internal/metrics"
)

const localUserID = "user_id"

type Presence interface {
	Connect(ctx context.Context, c *hub.Client)
	Touch(ctx context.Context, c *hub.Client)
	Disconnect(ctx context.Context, c *hub.Client)
}

type WSConfig struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	MaxMsgSize    int64
	SendBuffer    int
	RateLimit     float64
	RateBurst     int
}

type WSHandler struct {
	auth       *auth.Authenticator
	presence   Presence
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	cfg        WSConfig
}

func NewWSHandler(a *auth.Authenticator, p Presence, d *Dispatcher, m *metrics.Metrics, cfg WSConfig, logger *zap.Logger) *WSHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteDeadline <= 0 {
		cfg.WriteDeadline = 10 * time.Second
	}
	if cfg.MaxMsgSize <= 0 {
		cfg.MaxMsgSize = 64 * 1024
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = int(cfg.RateLimit) * 2
	}
	return &WSHandler{auth: a, presence: p, dispatcher: d, metrics: m, cfg: cfg, logger: logger.Sugar()}
}

// Upgrade authenticates the handshake. The token comes from the token query
// parameter or a bearer Authorization header; a failure is answered with 401
// and the socket is never opened.
func (w *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		token, _ = auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
	}
	user, err := w.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(localUserID, user.ID)
	return c.Next()
}

// Handler is mounted after Upgrade.
func (w *WSHandler) Handler() fiber.Handler {
	return websocket.New(w.serve, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	})
}

func (w *WSHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals(localUserID).(string)
	if userID == "" {
		_ = conn.Close()
		return
	}
	client := hub.NewClient(userID, w.cfg.SendBuffer)

	w.presence.Connect(context.Background(), client)
	if w.metrics != nil {
		w.metrics.Connections.Inc()
	}
	w.logger.Infow("socket connected", "user_id", userID, "conn_id", client.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.writePump(conn, client)
	}()
	w.readPump(conn, client)

	client.Close()
	<-done
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w.presence.Disconnect(ctx, client)
	if w.metrics != nil {
		w.metrics.Connections.Dec()
	}
	w.logger.Infow("socket disconnected", "user_id", userID, "conn_id", client.ID)
}

// readPump handles frames one at a time, in arrival order, until the peer
// goes away or the client is closed by the hub.
func (w *WSHandler) readPump(conn *websocket.Conn, client *hub.Client) {
	limiter := rate.NewLimiter(rate.Limit(w.cfg.RateLimit), w.cfg.RateBurst)
	pongWait := 2 * w.cfg.PingInterval

	conn.SetReadLimit(w.cfg.MaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		w.presence.Touch(context.Background(), client)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Debugw("socket read", "user_id", client.UserID, "error", err)
			}
			return
		}
		if client.Closed() {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			w.dispatcher.RateLimited(client)
			continue
		}
		w.dispatcher.Dispatch(client, msg)
	}
}

func (w *WSHandler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		// unblock the reader if the hub closed this client
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteDeadline))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				w.logger.Warnw("socket write", "user_id", client.UserID, "error", err)
				client.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
			w.presence.Touch(context.Background(), client)
		}
	}
}
