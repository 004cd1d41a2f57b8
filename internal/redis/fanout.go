package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LocalDeliverer receives frames published by other instances.
type LocalDeliverer interface {
	DeliverFrame(room string, frame []byte)
}

type fanoutMessage struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
	Frame  []byte `json:"frame"`
}

// Fanout relays room deliveries between instances over one pub/sub channel.
type Fanout struct {
	client  *goredis.Client
	channel string
	origin  string
	log     *zap.Logger
}

func NewFanout(client *goredis.Client, prefix string, log *zap.Logger) *Fanout {
	return &Fanout{
		client:  client,
		channel: fmt.Sprintf("%s:fanout", prefix),
		origin:  uuid.NewString(),
		log:     log,
	}
}

func (f *Fanout) Publish(ctx context.Context, room string, frame []byte) error {
	b, err := jsoniter.Marshal(fanoutMessage{Origin: f.origin, Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, b).Err()
}

// Run delivers frames from other instances to dst until ctx is done.
// ready, if non-nil, is closed once the subscription is active.
func (f *Fanout) Run(ctx context.Context, dst LocalDeliverer, ready chan<- struct{}) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var fm fanoutMessage
			if err := jsoniter.UnmarshalFromString(msg.Payload, &fm); err != nil {
				f.log.Warn("bad fanout message", zap.Error(err))
				continue
			}
			if fm.Origin == f.origin {
				continue
			}
			dst.DeliverFrame(fm.Room, fm.Frame)
		}
	}
}
