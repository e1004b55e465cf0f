//go:build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/placequest/internal/adapters/http"
	"github.com/samirrijal/placequest/internal/adapters/postgres"
	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
	"github.com/samirrijal/placequest/internal/pkg/config"
)

// setupTestDB connects to the database named by the PLACEQUEST_DATABASE_*
// environment and applies the migrations.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("placequest-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if _, err := db.Migrate(ctx, findMigrations(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func findMigrations(t *testing.T) string {
	return strings.TrimSuffix(findOpenAPISpec(t), "api/openapi.yaml") + "migrations"
}

func setupIntegrationApp(t *testing.T, db *postgres.DB) *fiber.App {
	opts := usecases.DefaultPlaceOptions()
	opts.FetchUpstreamOnMiss = false
	deps := &handler.Dependencies{
		Places: usecases.NewPlaceService(postgres.NewPlaceRepo(db), nil, nil, nil, opts),
		Visits: usecases.NewVisitService(postgres.NewVisitRepo(db), nil),
		Cities: usecases.NewCityService(nil, nil, nil, 0),
		Audit:  usecases.NewAuditService(postgres.NewFetchLogRepo(db)),
		DB:     db,

		AdminToken: "it-admin",
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouterOptions{})
	return app
}

func TestIntegration_PlacesAndVisits(t *testing.T) {
	db := setupTestDB(t)
	app := setupIntegrationApp(t, db)
	suffix := fmt.Sprint(time.Now().UnixNano())

	// A tiny box far from any real data keeps runs independent.
	places := []domain.Place{
		{ID: "it-a-" + suffix, Name: "Alpha", Category: "cafe", Location: domain.GeoPoint{Lat: -44.501, Lon: -120.501}},
		{ID: "it-b-" + suffix, Name: "Beta", Category: "museum", Location: domain.GeoPoint{Lat: -44.502, Lon: -120.502}},
	}
	if err := postgres.NewPlaceRepo(db).UpsertBatch(context.Background(), places); err != nil {
		t.Fatalf("seed places: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/places?bbox=-120.51,-44.51,-120.49,-44.49", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fc featureCollection
	json.NewDecoder(resp.Body).Decode(&fc)
	if len(fc.Features) < 2 {
		t.Errorf("expected seeded places, got %d", len(fc.Features))
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/places?bbox=-120.51,-44.51,-120.49,-44.49&category=museum", nil), -1)
	fc = featureCollection{}
	json.NewDecoder(resp.Body).Decode(&fc)
	for _, f := range fc.Features {
		if f.Properties["category"] != "museum" {
			t.Errorf("category filter let through %+v", f)
		}
	}
	if len(fc.Features) == 0 {
		t.Error("expected the seeded museum")
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/places/nearby?lat=-44.501&lng=-120.501&radius=100", nil), -1)
	json.NewDecoder(resp.Body).Decode(&fc)
	if len(fc.Features) == 0 || fc.Features[0].ID != places[0].ID {
		t.Errorf("expected Alpha nearest, got %+v", fc.Features)
	}

	player := "it-player-" + suffix
	body := fmt.Sprintf(`{"player_id":%q,"place_id":%q,"name":"Alpha","lat":-44.501,"lng":-120.501,"rare":true}`, player, places[0].ID)
	for i, want := range []int{201, 200} {
		req := httptest.NewRequest("POST", "/v1/visits", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != want {
			t.Errorf("visit %d: expected %d, got %d", i, want, resp.StatusCode)
		}
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/players/"+player+"/score", nil), -1)
	var score domain.PlayerScore
	json.NewDecoder(resp.Body).Decode(&score)
	if score.Score != 25 || score.Visits != 1 || score.Rare != 1 {
		t.Errorf("unexpected score %+v", score)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("expected ready, got %d", resp.StatusCode)
	}
}

func TestIntegration_FetchLogs(t *testing.T) {
	db := setupTestDB(t)
	app := setupIntegrationApp(t, db)
	request := "it-request-" + fmt.Sprint(time.Now().UnixNano())

	entry := &domain.FetchLog{Kind: "places", Request: request, Response: []byte(`[{}]`), Status: 200, CreatedAt: time.Now()}
	if err := postgres.NewFetchLogRepo(db).Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert fetch log: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/admin/fetch-logs?limit=100", nil)
	req.Header.Set("X-Admin-Token", "it-admin")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rows []domain.FetchLog
	json.NewDecoder(resp.Body).Decode(&rows)
	found := false
	for _, r := range rows {
		if r.Request == request {
			found = true
			if r.ID != entry.ID || r.ResponseBytes != 4 {
				t.Errorf("unexpected row %+v", r)
			}
		}
	}
	if !found {
		t.Errorf("inserted row missing from %d recent rows", len(rows))
	}
}
