package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
	"github.com/samirrijal/placequest/internal/pkg/schema"
)

// VisitRequest is a player's claim to have discovered or collected a place.
type VisitRequest struct {
	PlayerID string  `json:"player_id"`
	PlaceID  string  `json:"place_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Rare     bool    `json:"rare"`
}

// VisitService records visits, scores them and announces new discoveries.
type VisitService struct {
	visits    ports.VisitRepository
	publisher ports.EventPublisher
	validator *schema.Validator
	now       func() time.Time
}

// NewVisitService creates a VisitService. publisher may be nil.
func NewVisitService(visits ports.VisitRepository, publisher ports.EventPublisher) *VisitService {
	return &VisitService{
		visits:    visits,
		publisher: publisher,
		validator: schema.MustLoad("visit"),
		now:       time.Now,
	}
}

// RecordJSON validates a raw request body and records it.
func (s *VisitService) RecordJSON(ctx context.Context, body []byte) (*domain.Visit, bool, error) {
	if err := s.validator.ValidateBytes(body); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var req VisitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return s.Record(ctx, req)
}

// Record stores a visit. A player visiting the same place twice keeps the
// first visit and gets it back unchanged; created reports which case applied.
func (s *VisitService) Record(ctx context.Context, req VisitRequest) (*domain.Visit, bool, error) {
	if req.PlayerID == "" || req.PlaceID == "" {
		return nil, false, fmt.Errorf("%w: player_id and place_id are required", domain.ErrInvalidInput)
	}

	f := domain.Feature{ID: req.PlaceID, Rare: req.Rare}
	story := domain.CommonStory
	if req.Rare {
		story = domain.RareStory
	}
	name := req.Name
	if name == "" {
		name = "Unnamed Place"
	}

	v := &domain.Visit{
		ID:        uuid.NewString(),
		PlayerID:  req.PlayerID,
		PlaceID:   req.PlaceID,
		Name:      name,
		Category:  req.Category,
		Location:  domain.GeoPoint{Lat: req.Lat, Lon: req.Lng},
		Rare:      req.Rare,
		Points:    f.Points(),
		Story:     story,
		VisitedAt: s.now().UTC(),
	}

	created, err := s.visits.Record(ctx, v)
	if err != nil {
		return nil, false, fmt.Errorf("record visit: %w", err)
	}
	if !created {
		metrics.VisitsRecorded.WithLabelValues("duplicate").Inc()
		return v, false, nil
	}
	metrics.VisitsRecorded.WithLabelValues("created").Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishDiscovery(ctx, v); err != nil {
			// Best-effort; the visit is already stored.
			slog.WarnContext(ctx, "publish discovery failed", "visit_id", v.ID, "error", err)
		}
	}
	return v, true, nil
}

// ListByPlayer returns a page of visits, newest first, and the total count.
func (s *VisitService) ListByPlayer(ctx context.Context, playerID string, offset, limit int) ([]domain.Visit, int, error) {
	if playerID == "" {
		return nil, 0, fmt.Errorf("%w: player id is required", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.visits.ListByPlayer(ctx, playerID, offset, limit)
}

// Score returns the player's totals. Unknown players score zero.
func (s *VisitService) Score(ctx context.Context, playerID string) (*domain.PlayerScore, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", domain.ErrInvalidInput)
	}
	score, err := s.visits.Score(ctx, playerID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.PlayerScore{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return score, nil
}
