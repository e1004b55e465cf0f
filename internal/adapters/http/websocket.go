package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/placequest/internal/adapters/nats"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

// wsMessage is sent by clients to narrow or widen the discovery feed.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Player string `json:"player"` // player id filter ("" = everyone)
}

func wsSubject(player string) string {
	if player == "" {
		return natsadapter.DiscoverySubjects
	}
	return natsadapter.DiscoverySubject(player)
}

// WebSocketHandler relays discovery events from NATS to connected clients.
// Every client starts on the feed of all players. Clients send
// {"action":"subscribe","player":"p1"} to add a single player's feed and
// {"action":"unsubscribe"} with the same filter to drop one.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remote := c.RemoteAddr().String()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "remote", remote)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		sub, err := nc.Subscribe(natsadapter.DiscoverySubjects, relay)
		if err != nil {
			slog.Error("ws default subscribe failed", "remote", remote, "error", err)
			return
		}
		subs[natsadapter.DiscoverySubjects] = sub

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject := wsSubject(m.Player)

			switch m.Action {
			case "subscribe":
				if _, ok := subs[subject]; ok {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				s, ok := subs[subject]
				if !ok {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remote)
	}
}
