package placesapi_test

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/placequest/internal/adapters/placesapi"
	"github.com/samirrijal/placequest/internal/core/domain"
)

func serve(t *testing.T, handler fasthttp.RequestHandler) *placesapi.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return placesapi.New("http://api.test/", 0).WithDial(func(string) (net.Conn, error) { return ln.Dial() })
}

func TestFetchFeatures_BBox(t *testing.T) {
	var gotPath, gotBBox, gotLimit string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotBBox = string(ctx.QueryArgs().Peek("bbox"))
		gotLimit = string(ctx.QueryArgs().Peek("limit"))
		ctx.SetBodyString(`{"type":"FeatureCollection","features":[]}`)
	})

	b := domain.Bounds{MinLon: 55.2, MinLat: 25.1, MaxLon: 55.5, MaxLat: 25.4}
	body, err := c.FetchFeatures(context.Background(), domain.FeatureQuery{Bounds: &b, Limit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), "FeatureCollection") {
		t.Errorf("unexpected body %s", body)
	}
	if gotPath != "/v1/places" || gotBBox != "55.20000,25.10000,55.50000,25.40000" || gotLimit != "50" {
		t.Errorf("unexpected request %s bbox=%s limit=%s", gotPath, gotBBox, gotLimit)
	}
}

func TestFetchFeatures_Radius(t *testing.T) {
	var gotPath string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		ctx.SetBodyString(`[]`)
	})

	centre := domain.GeoPoint{Lat: 25.25, Lon: 55.35}
	if _, err := c.FetchFeatures(context.Background(), domain.FeatureQuery{Center: &centre, RadiusMeters: 16650}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/places/nearby" {
		t.Errorf("expected nearby endpoint, got %s", gotPath)
	}
}

func TestFetchFeatures_Category(t *testing.T) {
	var got []string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		got = append(got, string(ctx.QueryArgs().Peek("category")))
		ctx.SetBodyString(`[]`)
	})

	b := domain.Bounds{MinLon: 55.2, MinLat: 25.1, MaxLon: 55.5, MaxLat: 25.4}
	for _, category := range []string{"park", ""} {
		if _, err := c.FetchFeatures(context.Background(), domain.FeatureQuery{Bounds: &b, Category: category}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(got) != 2 || got[0] != "park" || got[1] != "" {
		t.Errorf("unexpected category params %q", got)
	}
}

func TestFetchFeatures_HTTPError(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	b := domain.Bounds{MinLon: 1, MinLat: 1, MaxLon: 2, MaxLat: 2}
	if _, err := c.FetchFeatures(context.Background(), domain.FeatureQuery{Bounds: &b}); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestRecordVisit(t *testing.T) {
	var got placesapi.Visit
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetStatusCode(fasthttp.StatusCreated)
		ctx.SetBodyString(`{"id":"v1","player_id":"p","place_id":"cafe","points":25,"rare":true}`)
	})

	ev := domain.DiscoveryEvent{Feature: domain.Feature{ID: "cafe", Name: "Café", Lat: 25.2, Lng: 55.27, Rare: true}}
	v, err := c.RecordVisit(context.Background(), placesapi.VisitFromEvent("p", ev))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PlaceID != "cafe" || !got.Rare || got.PlayerID != "p" {
		t.Errorf("unexpected submission %+v", got)
	}
	if v.ID != "v1" || v.Points != 25 {
		t.Errorf("unexpected visit %+v", v)
	}
}

func TestSearchCities(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`[{"name":"Paris, France","lat":48.8566,"lng":2.3522}]`)
	})
	cities, err := c.SearchCities(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cities) != 1 || cities[0].Name != "Paris, France" {
		t.Errorf("unexpected cities %+v", cities)
	}
}
