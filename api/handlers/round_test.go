package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/suwandre/arbwatch/internal/models"
)

type fakeSource struct {
	latest    *models.RoundResult
	recent    []models.Opportunity
	lastLimit int
}

func (f *fakeSource) Latest() (*models.RoundResult, bool) {
	return f.latest, f.latest != nil
}

func (f *fakeSource) Recent(limit int) []models.Opportunity {
	f.lastLimit = limit
	if limit > len(f.recent) {
		limit = len(f.recent)
	}
	return f.recent[:limit]
}

func newApp(src RoundSource) *fiber.App {
	h := NewRoundHandler(src)
	app := fiber.New()
	app.Get("/v1/round", h.GetRound)
	app.Get("/v1/opportunities", h.GetOpportunities)
	app.Get("/v1/health", h.GetHealth)
	return app
}

func do(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("request %s: %v", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v (%s)", target, err, body)
	}
	return resp.StatusCode, out
}

func TestGetRoundBeforeFirstRound(t *testing.T) {
	status, body := do(t, newApp(&fakeSource{}), "/v1/round")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if body["error"] == nil {
		t.Fatal("expected an error message")
	}
}

func TestGetRound(t *testing.T) {
	src := &fakeSource{latest: &models.RoundResult{
		Seq:    4,
		Symbol: "ETH/BRL",
		Rows: []models.VenueRow{{
			Exchange: "okx",
			Quote:    &models.Quote{Bid: models.Float(999), Ask: models.Float(1000)},
		}},
	}}

	status, body := do(t, newApp(src), "/v1/round")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	round, ok := body["round"].(map[string]any)
	if !ok || round["seq"] != float64(4) {
		t.Fatalf("unexpected round payload %v", body["round"])
	}
	views, ok := body["views"].([]any)
	if !ok || len(views) != 1 {
		t.Fatalf("expected one view, got %v", body["views"])
	}
	view := views[0].(map[string]any)
	if view["spread_pct"] == nil {
		t.Fatal("expected a spread for a two-sided quote")
	}
}

func TestGetOpportunitiesLimits(t *testing.T) {
	src := &fakeSource{recent: []models.Opportunity{{ID: "b"}, {ID: "a"}}}
	app := newApp(src)

	status, body := do(t, app, "/v1/opportunities")
	if status != http.StatusOK || src.lastLimit != defaultOpportunityLimit {
		t.Fatalf("expected default limit, got status %d limit %d", status, src.lastLimit)
	}
	if body["count"] != float64(2) {
		t.Fatalf("unexpected count %v", body["count"])
	}

	do(t, app, "/v1/opportunities?limit=100000")
	if src.lastLimit != maxOpportunityLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxOpportunityLimit, src.lastLimit)
	}

	_, body = do(t, app, "/v1/opportunities?limit=1")
	if body["count"] != float64(1) {
		t.Fatalf("expected 1 opportunity, got %v", body["count"])
	}

	status, _ = do(t, app, "/v1/opportunities?limit=abc")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", status)
	}
}

func TestGetHealth(t *testing.T) {
	src := &fakeSource{}
	app := newApp(src)

	status, body := do(t, app, "/v1/health")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", status, body)
	}
	if _, ok := body["last_round"]; ok {
		t.Fatal("no round should be reported before the first one")
	}

	src.latest = &models.RoundResult{Seq: 2, CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	_, body = do(t, app, "/v1/health")
	if body["last_round"] != float64(2) || body["last_round_at"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected health body %v", body)
	}
}
