// Package elastic stores places in an Elasticsearch index with a geo_point
// mapping. It is an alternative to the PostGIS repository.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/samirrijal/placequest/internal/core/domain"
)

const placesMapping = `{
  "settings": {
    "index": {"max_result_window": 20000},
    "analysis": {"normalizer": {"lower": {"type": "custom", "filter": ["lowercase"]}}}
  },
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "name":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category":    {"type": "keyword", "normalizer": "lower"},
      "subcategory": {"type": "keyword", "normalizer": "lower"},
      "address":     {"type": "text"},
      "source":      {"type": "keyword"},
      "location":    {"type": "geo_point"},
      "metadata":    {"type": "object", "enabled": false},
      "created_at":  {"type": "date"}
    }
  }
}`

type placeDoc struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory,omitempty"`
	Address     string           `json:"address,omitempty"`
	Source      string           `json:"source,omitempty"`
	Location    elastic.GeoPoint `json:"location"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func toDoc(p domain.Place) placeDoc {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return placeDoc{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Address:     p.Address,
		Source:      p.Source,
		Location:    elastic.GeoPoint{Lat: p.Location.Lat, Lon: p.Location.Lon},
		Metadata:    p.Metadata,
		CreatedAt:   created,
	}
}

func (d placeDoc) place() domain.Place {
	return domain.Place{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		Address:     d.Address,
		Source:      d.Source,
		Location:    domain.GeoPoint{Lat: d.Location.Lat, Lon: d.Location.Lon},
		Metadata:    d.Metadata,
		CreatedAt:   d.CreatedAt,
	}
}

// PlaceRepo implements ports.PlaceRepository on Elasticsearch.
type PlaceRepo struct {
	client *elastic.Client
	url    string
	index  string
}

// New connects to url and makes sure index exists with the places mapping.
func New(ctx context.Context, url, index string) (*PlaceRepo, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheckInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic connect: %w", err)
	}
	r := &PlaceRepo{client: client, url: url, index: index}
	if err := r.ensureIndex(ctx); err != nil {
		client.Stop()
		return nil, err
	}
	return r, nil
}

func (r *PlaceRepo) ensureIndex(ctx context.Context) error {
	exists, err := r.client.IndexExists(r.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return nil
	}
	res, err := r.client.CreateIndex(r.index).BodyString(placesMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	if !res.Acknowledged {
		slog.Warn("create index not acknowledged", "index", r.index)
	}
	slog.Info("elastic index created", "index", r.index)
	return nil
}

// UpsertBatch indexes places in one bulk request, keyed by place id.
func (r *PlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error {
	if len(places) == 0 {
		return nil
	}
	bulk := r.client.Bulk().Index(r.index)
	for _, p := range places {
		bulk.Add(elastic.NewBulkIndexRequest().Id(p.ID).Doc(toDoc(p)))
	}
	res, err := bulk.Refresh("wait_for").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index places: %w", err)
	}
	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("bulk index places: %d of %d failed, first: %s",
			len(failed), len(places), failed[0].Error.Reason)
	}
	return nil
}

// GetByID returns a place or domain.ErrNotFound.
func (r *PlaceRepo) GetByID(ctx context.Context, id string) (*domain.Place, error) {
	res, err := r.client.Get().Index(r.index).Id(id).Do(ctx)
	if elastic.IsNotFound(err) {
		return nil, fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
	}
	var d placeDoc
	if err := json.Unmarshal(res.Source, &d); err != nil {
		return nil, fmt.Errorf("decode place %s: %w", id, err)
	}
	p := d.place()
	return &p, nil
}

// filtered wraps a geo query with an optional category term.
func filtered(geo elastic.Query, category string) *elastic.BoolQuery {
	q := elastic.NewBoolQuery().Filter(geo)
	if category != "" {
		q = q.Filter(elastic.NewBoolQuery().
			Should(elastic.NewTermQuery("category", category), elastic.NewTermQuery("subcategory", category)).
			MinimumNumberShouldMatch(1))
	}
	return q
}

// FindInBounds returns places inside b ordered by name.
func (r *PlaceRepo) FindInBounds(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
	q := elastic.NewGeoBoundingBoxQuery("location").
		TopLeft(b.MaxLat, b.MinLon).
		BottomRight(b.MinLat, b.MaxLon)
	res, err := r.client.Search().
		Index(r.index).
		Query(filtered(q, category)).
		Sort("name.raw", true).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search bounds: %w", err)
	}
	return decodeHits(res, false), nil
}

// FindNearby returns places within radiusMeters of the point, nearest first,
// with Distance set in metres.
func (r *PlaceRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, category string, limit int) ([]domain.Place, error) {
	q := elastic.NewGeoDistanceQuery("location").
		Point(lat, lon).
		Distance(fmt.Sprintf("%fm", radiusMeters))
	res, err := r.client.Search().
		Index(r.index).
		Query(filtered(q, category)).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(lat, lon).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search nearby: %w", err)
	}
	return decodeHits(res, true), nil
}

// Ping checks the cluster for readiness probes.
func (r *PlaceRepo) Ping(ctx context.Context) error {
	_, code, err := r.client.Ping(r.url).Do(ctx)
	if err != nil {
		return err
	}
	if code >= 300 {
		return fmt.Errorf("elastic ping: unexpected status %d", code)
	}
	return nil
}

// Close stops the background healthcheck.
func (r *PlaceRepo) Close() {
	r.client.Stop()
}

func decodeHits(res *elastic.SearchResult, withDistance bool) []domain.Place {
	if res == nil || res.Hits == nil {
		return nil
	}
	places := make([]domain.Place, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var d placeDoc
		if err := json.Unmarshal(hit.Source, &d); err != nil {
			slog.Warn("skipping undecodable place", "id", hit.Id, "error", err)
			continue
		}
		p := d.place()
		if withDistance && len(hit.Sort) > 0 {
			if dist, ok := hit.Sort[0].(float64); ok {
				p.Distance = &dist
			}
		}
		places = append(places, p)
	}
	return places
}
