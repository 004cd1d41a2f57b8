package kafka

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Domain event types published after a successful mutation.
const (
	TypeMessageSent           = "message.sent"
	TypeFriendRequestSent     = "friend_request.sent"
	TypeFriendRequestAccepted = "friend_request.accepted"
	TypeCallMissed            = "call.missed"
)

// Event is the envelope written to the domain topic. Key is used as the
// Kafka message key so one conversation stays on one partition.
type Event struct {
	Type    string    `json:"type"`
	Key     string    `json:"-"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(w, topic, log)
}

func newProducer(w messageWriter, topic string, log *zap.Logger) *Producer {
	st := gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &Producer{writer: w, topic: topic, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

// Publish writes ev to the topic. While the breaker is open calls fail fast
// with gobreaker.ErrOpenState.
func (p *Producer) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := jsoniter.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	msg := kafkago.Message{
		Key:   []byte(ev.Key),
		Value: b,
		Time:  ev.At,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Nop discards events. It is used when Kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }

// PublishAsync hands ev to pub in the background and logs failures. Domain
// events are best effort and never delay a socket reply.
func PublishAsync(pub Publisher, log *zap.Logger, ev Event) {
	if pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, ev); err != nil {
			log.Warn("publish domain event", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}
