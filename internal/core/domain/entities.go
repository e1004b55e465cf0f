package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks errors caused by the caller's request.
	ErrInvalidInput = errors.New("invalid input")
)

// Place is a point of interest stored by the backend.
type Place struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory,omitempty"`
	Location    GeoPoint       `json:"location"`
	Address     string         `json:"address,omitempty"`
	Source      string         `json:"source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Distance    *float64       `json:"distance,omitempty"` // computed field
	CreatedAt   time.Time      `json:"created_at"`
}

// Visit records that a player discovered or collected a place.
type Visit struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	PlaceID   string    `json:"place_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Location  GeoPoint  `json:"location"`
	Rare      bool      `json:"rare"`
	Points    int       `json:"points"`
	Story     string    `json:"story,omitempty"`
	VisitedAt time.Time `json:"visited_at"`
}

// PlayerScore is the aggregated score of a player.
type PlayerScore struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
	Visits   int    `json:"visits"`
	Rare     int    `json:"rare"`
}

// Categories are the place categories a client may filter by.
var Categories = []string{"restaurant", "cafe", "park", "landmark"}

// NormalizeCategory lowercases c. An empty value or "all" means no filter and
// returns "".
func NormalizeCategory(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" || c == "all" {
		return "", nil
	}
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("%w: unknown category %q (want one of %s or all)",
			ErrInvalidInput, c, strings.Join(Categories, ", "))
	}
	return c, nil
}

// Country is an ISO 3166-1 alpha-2 code with its English name.
type Country struct {
	ISOCode string `json:"iso_code"`
	Name    string `json:"name"`
}

// City is a geocoded start location.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// GameSession is the echo returned when a player starts exploring a city.
type GameSession struct {
	City      string    `json:"city"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// FetchLog is an audit entry of an upstream request, kept for replay.
type FetchLog struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Request       string    `json:"request"`
	Response      []byte    `json:"-"`
	// ResponseBytes is the stored body size, filled when listing.
	ResponseBytes int       `json:"response_bytes"`
	Status        int       `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
