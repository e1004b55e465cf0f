// Package placesapi is the explorer's client for the placequest HTTP API.
package placesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// Client implements ports.FeatureFetcher against /v1/places and submits
// discoveries to /v1/visits.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{Name: "placequest-explorer", MaxIdleConnDuration: time.Minute},
		timeout: timeout,
	}
}

// WithDial replaces the dialer, mainly for tests.
func (c *Client) WithDial(dial fasthttp.DialFunc) *Client {
	c.http.Dial = dial
	return c
}

// FetchFeatures returns the raw GeoJSON body for q.
func (c *Client) FetchFeatures(ctx context.Context, q domain.FeatureQuery) ([]byte, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	path := "/v1/places"
	switch {
	case q.Bounds != nil:
		args.Set("bbox", q.Bounds.String())
	case q.Center != nil:
		path = "/v1/places/nearby"
		args.Set("lat", strconv.FormatFloat(q.Center.Lat, 'f', 6, 64))
		args.Set("lng", strconv.FormatFloat(q.Center.Lon, 'f', 6, 64))
		args.Set("radius", strconv.FormatFloat(q.RadiusMeters, 'f', 0, 64))
	default:
		return nil, fmt.Errorf("%w: query needs a bbox or a centre", domain.ErrInvalidInput)
	}
	if q.Limit > 0 {
		args.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		args.Set("category", q.Category)
	}

	return c.do(ctx, fasthttp.MethodGet, path+"?"+string(args.QueryString()), nil)
}

// Visit is the body of POST /v1/visits.
type Visit struct {
	PlayerID string  `json:"player_id"`
	PlaceID  string  `json:"place_id"`
	Name     string  `json:"name,omitempty"`
	Category string  `json:"category,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Rare     bool    `json:"rare"`
}

// VisitFromEvent builds the submission for a discovery.
func VisitFromEvent(playerID string, ev domain.DiscoveryEvent) Visit {
	return Visit{
		PlayerID: playerID,
		PlaceID:  ev.Feature.ID,
		Name:     ev.Feature.Name,
		Category: ev.Feature.Category,
		Lat:      ev.Feature.Lat,
		Lng:      ev.Feature.Lng,
		Rare:     ev.Feature.Rare,
	}
}

// RecordVisit submits a discovery and returns the stored visit.
func (c *Client) RecordVisit(ctx context.Context, v Visit) (*domain.Visit, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, fasthttp.MethodPost, "/v1/visits", body)
	if err != nil {
		return nil, err
	}
	var out domain.Visit
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("decode visit: %w", err)
	}
	return &out, nil
}

// SearchCities geocodes query through the API.
func (c *Client) SearchCities(ctx context.Context, query string) ([]domain.City, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("q", query)

	resp, err := c.do(ctx, fasthttp.MethodGet, "/v1/cities/search?"+string(args.QueryString()), nil)
	if err != nil {
		return nil, err
	}
	var cities []domain.City
	if err := json.Unmarshal(resp, &cities); err != nil {
		return nil, fmt.Errorf("decode cities: %w", err)
	}
	return cities, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if sc := resp.StatusCode(); sc < 200 || sc >= 300 {
		return nil, fmt.Errorf("%s %s: HTTP %d", method, path, sc)
	}
	return append([]byte(nil), resp.Body()...), nil
}
