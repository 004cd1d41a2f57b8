package callindex

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Redis keeps the index in one hash so every instance resolves the same
// pairs. Fields are "caller|receiver", values are call ids.
type Redis struct {
	client *goredis.Client
	key    string
}

func NewRedis(client *goredis.Client, prefix string) *Redis {
	return &Redis{client: client, key: fmt.Sprintf("%s:callindex", prefix)}
}

func (r *Redis) Put(ctx context.Context, callerID, receiverID, callID string) error {
	return r.client.HSet(ctx, r.key, key(callerID, receiverID), callID).Err()
}

func (r *Redis) Lookup(ctx context.Context, callerID, receiverID string) (string, bool, error) {
	id, err := r.client.HGet(ctx, r.key, key(callerID, receiverID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r *Redis) Remove(ctx context.Context, callerID, receiverID string) error {
	return r.client.HDel(ctx, r.key, key(callerID, receiverID)).Err()
}

func (r *Redis) RemoveUser(ctx context.Context, userID string) error {
	fields, err := r.client.HKeys(ctx, r.key).Result()
	if err != nil {
		return err
	}
	var stale []string
	for _, f := range fields {
		if mentions(f, userID) {
			stale = append(stale, f)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return r.client.HDel(ctx, r.key, stale...).Err()
}

func (r *Redis) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
