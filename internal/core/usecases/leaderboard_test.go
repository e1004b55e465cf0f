package usecases_test

import (
	"context"
	"testing"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
)

func TestLeaderboard_AddAndRank(t *testing.T) {
	lb := usecases.NewLeaderboard()
	ctx := context.Background()

	events := []domain.Visit{
		{ID: "v1", PlayerID: "ana", PlaceID: "p1", Points: 10},
		{ID: "v2", PlayerID: "ben", PlaceID: "p2", Points: 25, Rare: true},
		{ID: "v3", PlayerID: "ana", PlaceID: "p3", Points: 10},
		{ID: "v4", PlayerID: "cy", PlaceID: "p4", Points: 10},
		{ID: "v5", PlayerID: "ana", PlaceID: "p5", Points: 10},
	}
	for i := range events {
		if err := lb.Apply(ctx, &events[i]); err != nil {
			t.Fatal(err)
		}
	}

	top := lb.Top(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 players, got %d", len(top))
	}
	if top[0].PlayerID != "ana" || top[0].Score != 30 || top[0].Visits != 3 {
		t.Errorf("unexpected leader %+v", top[0])
	}
	if top[1].PlayerID != "ben" || top[1].Rare != 1 {
		t.Errorf("unexpected runner-up %+v", top[1])
	}
	if all := lb.Top(0); len(all) != 3 {
		t.Errorf("Top(0) should return everyone, got %d", len(all))
	}
}

func TestLeaderboard_RedeliveryCountsOnce(t *testing.T) {
	lb := usecases.NewLeaderboard()
	v := &domain.Visit{ID: "v1", PlayerID: "ana", PlaceID: "p6", Points: 25, Rare: true}

	lb.Add(v)
	s := lb.Add(v)

	if s.Score != 25 || s.Visits != 1 || s.Rare != 1 {
		t.Errorf("redelivered event counted twice: %+v", s)
	}
}

func TestLeaderboard_SamePlaceCountsOnce(t *testing.T) {
	lb := usecases.NewLeaderboard()
	lb.Add(&domain.Visit{ID: "v1", PlayerID: "ana", PlaceID: "cafe", Points: 10})
	s := lb.Add(&domain.Visit{ID: "v2", PlayerID: "ana", PlaceID: "cafe", Points: 25, Rare: true})
	if s.Score != 10 || s.Visits != 1 || s.Rare != 0 {
		t.Errorf("second visit to the same place counted: %+v", s)
	}

	other := lb.Add(&domain.Visit{ID: "v3", PlayerID: "ben", PlaceID: "cafe", Points: 10})
	if other.Score != 10 || other.Visits != 1 {
		t.Errorf("another player's visit to the same place should count: %+v", other)
	}
}

func TestLeaderboard_TieBreak(t *testing.T) {
	lb := usecases.NewLeaderboard()
	lb.Add(&domain.Visit{ID: "1", PlayerID: "zed", PlaceID: "p7", Points: 25, Rare: true})
	lb.Add(&domain.Visit{ID: "2", PlayerID: "amy", PlaceID: "p8", Points: 10})
	lb.Add(&domain.Visit{ID: "3", PlayerID: "amy", PlaceID: "p9", Points: 10})
	lb.Add(&domain.Visit{ID: "4", PlayerID: "bob", PlaceID: "p10", Points: 10})
	lb.Add(&domain.Visit{ID: "5", PlayerID: "bob", PlaceID: "p11", Points: 10})
	lb.Add(&domain.Visit{ID: "6", PlayerID: "amy", PlaceID: "p12", Points: 5})
	lb.Add(&domain.Visit{ID: "7", PlayerID: "bob", PlaceID: "p13", Points: 5})

	top := lb.Top(3)
	// All three have 25; the rare find wins, then ids order the rest.
	if top[0].PlayerID != "zed" || top[1].PlayerID != "amy" || top[2].PlayerID != "bob" {
		t.Errorf("unexpected order %v", top)
	}
}
