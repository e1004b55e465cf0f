package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/placequest/internal/adapters/nats"
	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
	"github.com/samirrijal/placequest/internal/pkg/config"
	"github.com/samirrijal/placequest/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("placequest-leaderboard")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "leaderboard")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	board := usecases.NewLeaderboard()
	err = sub.SubscribeDiscoveries(ctx, func(ctx context.Context, v *domain.Visit) error {
		s := board.Add(v)
		slog.InfoContext(ctx, "score updated",
			"player_id", v.PlayerID, "place", v.Name, "rare", v.Rare,
			"points", v.Points, "score", s.Score, "visits", s.Visits)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	slog.Info("leaderboard consuming discoveries", "subject", natsadapter.DiscoverySubjects)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("leaderboard stopped")
			return
		case <-ticker.C:
			for i, s := range board.Top(10) {
				slog.Info("leaderboard", "rank", i+1, "player_id", s.PlayerID, "score", s.Score, "rare", s.Rare)
			}
		}
	}
}
