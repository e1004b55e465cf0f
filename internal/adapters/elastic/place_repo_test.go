package elastic

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/samirrijal/placequest/internal/core/domain"
)

func TestDocRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := domain.Place{
		ID:        "p1",
		Name:      "Dubai Mall",
		Category:  "shopping",
		Location:  domain.GeoPoint{Lat: 25.1972, Lon: 55.2796},
		Source:    "overture",
		Metadata:  map[string]any{"floors": float64(4)},
		CreatedAt: created,
	}
	got := toDoc(p).place()
	if got.ID != p.ID || got.Name != p.Name || got.Location != p.Location || !got.CreatedAt.Equal(created) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestToDoc_DefaultsCreatedAt(t *testing.T) {
	d := toDoc(domain.Place{ID: "p1"})
	if d.CreatedAt.IsZero() {
		t.Error("created_at should be filled in")
	}
}

func TestDecodeHits_Distance(t *testing.T) {
	src, _ := json.Marshal(toDoc(domain.Place{ID: "p1", Name: "Cafe", Location: domain.GeoPoint{Lat: 1, Lon: 2}}))
	res := &elastic.SearchResult{Hits: &elastic.SearchHits{Hits: []*elastic.SearchHit{
		{Id: "p1", Source: src, Sort: []interface{}{123.5}},
		{Id: "bad", Source: json.RawMessage(`not json`)},
	}}}

	places := decodeHits(res, true)
	if len(places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(places))
	}
	if places[0].Distance == nil || *places[0].Distance != 123.5 {
		t.Errorf("expected distance 123.5, got %v", places[0].Distance)
	}

	places = decodeHits(res, false)
	if places[0].Distance != nil {
		t.Error("bbox results should not carry a distance")
	}
}

func TestDecodeHits_Nil(t *testing.T) {
	if got := decodeHits(nil, false); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestFiltered_Category(t *testing.T) {
	geo := elastic.NewGeoDistanceQuery("location").Point(1, 2).Distance("500m")

	src, err := filtered(geo, "").Source()
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(src)
	if strings.Contains(string(data), "term") {
		t.Errorf("unfiltered query should not carry a term: %s", data)
	}

	src, err = filtered(geo, "cafe").Source()
	if err != nil {
		t.Fatal(err)
	}
	data, _ = json.Marshal(src)
	for _, want := range []string{`"category":"cafe"`, `"subcategory":"cafe"`, `"minimum_should_match":"1"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
}
