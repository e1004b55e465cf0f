// Package upstream talks to the third-party places API and geocoder.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

// Options configures a Provider. CountriesURL lists the countries the places
// API covers and LocalitiesURL lists the localities of one country. Dial
// overrides the network dialer, mainly for tests.
type Options struct {
	PlacesURL     string
	APIKey        string
	GeocoderURL   string
	CountriesURL  string
	LocalitiesURL string
	UserAgent     string
	Timeout       time.Duration
	Dial          fasthttp.DialFunc
}

// Provider implements ports.PlaceProvider over fasthttp.
type Provider struct {
	client *fasthttp.Client
	opts   Options
}

// New creates a Provider.
func New(opts Options) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "placequest/1.0"
	}
	return &Provider{
		client: &fasthttp.Client{
			Name:                opts.UserAgent,
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
			MaxIdleConnDuration: time.Minute,
			Dial:                opts.Dial,
		},
		opts: opts,
	}
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned HTTP %d", e.URL, e.Status)
}

// FetchPlaces asks the places API for q. A bbox is sent as its centre plus a
// radius covering the box. The raw body is returned for auditing.
func (p *Provider) FetchPlaces(ctx context.Context, q domain.FeatureQuery) ([]domain.Place, []byte, error) {
	lat, lng, radius, err := centerRadius(q)
	if err != nil {
		return nil, nil, err
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	args.Set("lng", strconv.FormatFloat(lng, 'f', 6, 64))
	args.Set("radius", strconv.Itoa(int(math.Round(radius))))
	if q.Limit > 0 {
		args.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		args.Set("category", q.Category)
	}

	body, err := p.get(ctx, "places", p.opts.PlacesURL, args, p.withAPIKey)
	if err != nil {
		return nil, body, err
	}

	features, err := explore.DecodeFeatures(body)
	if err != nil {
		return nil, body, fmt.Errorf("decode places: %w", err)
	}
	now := time.Now().UTC()
	places := make([]domain.Place, 0, len(features))
	for _, f := range features {
		places = append(places, placeFromFeature(f, now))
	}
	return places, body, nil
}

type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// SearchCities geocodes query with a Nominatim-compatible search endpoint.
func (p *Provider) SearchCities(ctx context.Context, query string, limit int) ([]domain.City, []byte, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("q", query)
	args.Set("format", "json")
	args.Set("limit", strconv.Itoa(limit))

	body, err := p.get(ctx, "cities", p.opts.GeocoderURL, args, nil)
	if err != nil {
		return nil, body, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, body, fmt.Errorf("decode geocoder response: %w", err)
	}
	cities := make([]domain.City, 0, len(results))
	for _, r := range results {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lng, errLng := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		name := r.DisplayName
		if name == "" {
			name = r.Name
		}
		cities = append(cities, domain.City{Name: name, Lat: lat, Lng: lng})
	}
	return cities, body, nil
}

// Countries lists the countries known to the places API. Names are the
// English display names of the returned ISO codes.
func (p *Provider) Countries(ctx context.Context) ([]domain.Country, []byte, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	body, err := p.get(ctx, "countries", p.opts.CountriesURL, args, p.withAPIKey)
	if err != nil {
		return nil, body, err
	}

	items, err := featureList(body)
	if err != nil {
		return nil, body, fmt.Errorf("decode countries: %w", err)
	}
	seen := make(map[string]bool, len(items))
	countries := make([]domain.Country, 0, len(items))
	for _, raw := range items {
		var item struct {
			Country    string `json:"country"`
			Properties struct {
				Country string `json:"country"`
			} `json:"properties"`
		}
		if json.Unmarshal(raw, &item) != nil {
			continue
		}
		code := item.Country
		if code == "" {
			code = item.Properties.Country
		}
		c, ok := countryByCode(code)
		if !ok || seen[c.ISOCode] {
			continue
		}
		seen[c.ISOCode] = true
		countries = append(countries, c)
	}
	return countries, body, nil
}

// CitiesInCountry lists the localities of the country isoCode.
func (p *Provider) CitiesInCountry(ctx context.Context, isoCode string) ([]domain.City, []byte, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("country", isoCode)
	args.Set("category", "locality")

	body, err := p.get(ctx, "localities", p.opts.LocalitiesURL, args, p.withAPIKey)
	if err != nil {
		return nil, body, err
	}

	items, err := featureList(body)
	if err != nil {
		return nil, body, fmt.Errorf("decode localities: %w", err)
	}
	cities := make([]domain.City, 0, len(items))
	for _, raw := range items {
		var item struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Names struct {
					Primary string `json:"primary"`
				} `json:"names"`
			} `json:"properties"`
		}
		if json.Unmarshal(raw, &item) != nil || len(item.Geometry.Coordinates) < 2 {
			continue
		}
		c := domain.City{
			Name: item.Properties.Names.Primary,
			Lng:  item.Geometry.Coordinates[0],
			Lat:  item.Geometry.Coordinates[1],
		}
		if c.Name == "" {
			c.Name = "Unknown"
		}
		if !(domain.GeoPoint{Lat: c.Lat, Lon: c.Lng}).Valid() {
			continue
		}
		cities = append(cities, c)
	}
	return cities, body, nil
}

// featureList accepts either a bare JSON array or an object wrapping the
// array in "features".
func featureList(body []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Features, nil
}

func countryByCode(code string) (domain.Country, bool) {
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return domain.Country{}, false
	}
	iso := region.String()
	name := display.English.Regions().Name(region)
	if name == "" {
		name = iso
	}
	return domain.Country{ISOCode: iso, Name: name}, true
}

func (p *Provider) withAPIKey(req *fasthttp.Request) {
	if p.opts.APIKey != "" {
		req.Header.Set("x-api-key", p.opts.APIKey)
	}
}

func (p *Provider) get(ctx context.Context, kind, url string, args *fasthttp.Args, decorate func(*fasthttp.Request)) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.URI().SetQueryStringBytes(args.QueryString())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.SetUserAgent(p.opts.UserAgent)
	if decorate != nil {
		decorate(req)
	}

	timeout := p.opts.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		metrics.UpstreamRequests.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}

	status := resp.StatusCode()
	metrics.UpstreamRequests.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	// The body buffer is released with resp.
	body := append([]byte(nil), resp.Body()...)
	if status < 200 || status >= 300 {
		return body, &StatusError{URL: url, Status: status}
	}
	return body, nil
}

func centerRadius(q domain.FeatureQuery) (lat, lng, radius float64, err error) {
	switch {
	case q.Bounds != nil:
		b := *q.Bounds
		if !b.Valid() {
			return 0, 0, 0, fmt.Errorf("%w: bbox is empty or not finite", domain.ErrInvalidInput)
		}
		c := b.Center()
		return c.Lat, c.Lon, geospatial.RadiusForBox(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon), nil
	case q.Center != nil:
		if !q.Center.Valid() || q.RadiusMeters <= 0 {
			return 0, 0, 0, fmt.Errorf("%w: centre and positive radius required", domain.ErrInvalidInput)
		}
		return q.Center.Lat, q.Center.Lon, q.RadiusMeters, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: query needs a bbox or a centre", domain.ErrInvalidInput)
	}
}

func placeFromFeature(f domain.Feature, now time.Time) domain.Place {
	p := domain.Place{
		ID:        f.ID,
		Name:      f.Name,
		Category:  f.Category,
		Location:  domain.GeoPoint{Lat: f.Lat, Lon: f.Lng},
		Source:    "overture",
		Metadata:  f.Properties,
		CreatedAt: now,
	}
	if f.Properties != nil {
		if cats, ok := f.Properties["categories"].(map[string]any); ok {
			if alt, ok := cats["alternate"].([]any); ok && len(alt) > 0 {
				p.Subcategory, _ = alt[0].(string)
			}
		}
		if addrs, ok := f.Properties["addresses"].([]any); ok && len(addrs) > 0 {
			if a, ok := addrs[0].(map[string]any); ok {
				p.Address, _ = a["freeform"].(string)
			}
		}
	}
	return p
}
