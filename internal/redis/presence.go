package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Presence tracks live connections per user across instances. Each user has
// a sorted set of connection ids scored by expiry, so connections of a
// crashed instance age out once they stop being refreshed.
type Presence struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewPresence(client *goredis.Client, prefix string, ttl time.Duration) *Presence {
	return &Presence{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (p *Presence) connKey(userID string) string { return fmt.Sprintf("%s:conn:%s", p.prefix, userID) }

func (p *Presence) expiry() float64 {
	return float64(p.now().Add(p.ttl).UnixMilli())
}

// AddConnection registers connID for userID, or refreshes it.
func (p *Presence) AddConnection(ctx context.Context, userID, connID string) error {
	key := p.connKey(userID)
	pipe := p.client.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: p.expiry(), Member: connID})
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Touch extends the lifetime of connID.
func (p *Presence) Touch(ctx context.Context, userID, connID string) error {
	return p.AddConnection(ctx, userID, connID)
}

// RemoveConnection drops connID and returns how many live connections the
// user still has on any instance.
func (p *Presence) RemoveConnection(ctx context.Context, userID, connID string) (int64, error) {
	key := p.connKey(userID)
	if err := p.client.ZRem(ctx, key, connID).Err(); err != nil {
		return 0, err
	}
	return p.live(ctx, key)
}

func (p *Presence) Online(ctx context.Context, userID string) (bool, error) {
	n, err := p.live(ctx, p.connKey(userID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Presence) live(ctx context.Context, key string) (int64, error) {
	cutoff := strconv.FormatInt(p.now().UnixMilli(), 10)
	if err := p.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		return 0, err
	}
	return p.client.ZCard(ctx, key).Result()
}
