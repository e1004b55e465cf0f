package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/placequest/internal/core/domain"
)

const (
	// DiscoveryStream retains discovery events for late subscribers.
	DiscoveryStream = "QUEST_DISCOVERIES"
	// DiscoverySubjects matches every player's discoveries.
	DiscoverySubjects = "quest.discovery.>"
)

// DiscoverySubject is the subject a player's discoveries are published on.
func DiscoverySubject(playerID string) string {
	// NATS tokens cannot contain dots or spaces.
	return "quest.discovery." + strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(playerID)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the discovery stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      DiscoveryStream,
		Subjects:  []string{DiscoverySubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishDiscovery announces a newly recorded visit.
func (p *Publisher) PublishDiscovery(ctx context.Context, v *domain.Visit) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// The visit id doubles as the dedup key if a publish is retried.
	_, err = p.js.Publish(DiscoverySubject(v.PlayerID), data, nats.Context(ctx), nats.MsgId(v.ID))
	return err
}

// Ping reports whether the connection is usable.
func (p *Publisher) Ping(_ context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats not connected: %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url)
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("placequest"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
