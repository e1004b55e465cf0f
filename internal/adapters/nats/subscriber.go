package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/placequest/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber. durable names the consumer so that a
// restarted process resumes where it stopped.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeDiscoveries delivers every discovery event to handler. Messages
// the handler fails on are redelivered up to three times.
func (s *Subscriber) SubscribeDiscoveries(ctx context.Context, handler func(ctx context.Context, v *domain.Visit) error) error {
	sub, err := s.js.Subscribe(DiscoverySubjects, func(msg *nats.Msg) {
		var v domain.Visit
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			slog.Warn("dropping malformed discovery", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &v); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", DiscoverySubjects, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
