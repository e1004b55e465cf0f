package usecases

import (
	"context"
	"sort"
	"sync"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// Leaderboard keeps running player totals from discovery events. Events are
// delivered at least once and a player scores a place only once, so each
// (player, place) pair is counted a single time.
type Leaderboard struct {
	mu     sync.Mutex
	scores map[string]*domain.PlayerScore
	seen   map[visitKey]struct{}
}

type visitKey struct {
	player, place string
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		scores: make(map[string]*domain.PlayerScore),
		seen:   make(map[visitKey]struct{}),
	}
}

// Apply adds a visit to its player's totals. It matches the EventSubscriber
// handler signature.
func (l *Leaderboard) Apply(_ context.Context, v *domain.Visit) error {
	l.Add(v)
	return nil
}

// Add adds a visit and returns a copy of the player's totals.
func (l *Leaderboard) Add(v *domain.Visit) domain.PlayerScore {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.scores[v.PlayerID]
	if !ok {
		s = &domain.PlayerScore{PlayerID: v.PlayerID}
		l.scores[v.PlayerID] = s
	}
	key := visitKey{player: v.PlayerID, place: v.PlaceID}
	if _, dup := l.seen[key]; dup {
		return *s
	}
	l.seen[key] = struct{}{}

	s.Score += v.Points
	s.Visits++
	if v.Rare {
		s.Rare++
	}
	return *s
}

// Top returns the n best players, highest score first. Ties go to the player
// with more rare finds, then by id.
func (l *Leaderboard) Top(n int) []domain.PlayerScore {
	l.mu.Lock()
	out := make([]domain.PlayerScore, 0, len(l.scores))
	for _, s := range l.scores {
		out = append(out, *s)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Rare != out[j].Rare {
			return out[i].Rare > out[j].Rare
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
