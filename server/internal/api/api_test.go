package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/obsidianstack/regionstats/server/internal/api"
	"github.com/obsidianstack/regionstats/server/internal/metrics"
	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

// --- test helpers -----------------------------------------------------------

func scenario() *telemetry.Dataset {
	return telemetry.New("q-vercel-latency.json", []telemetry.Record{
		{Region: "us-east", LatencyMs: 100, UptimePct: 99.9},
		{Region: "us-east", LatencyMs: 200, UptimePct: 99.5},
		{Region: "eu-west", LatencyMs: 50, UptimePct: 100.0},
	})
}

func failed() *telemetry.Dataset {
	return telemetry.Failed("q-vercel-latency.json", errors.New("open: no such file or directory"))
}

func newHandler(ds *telemetry.Dataset) http.Handler {
	return api.New(ds, metrics.New(), api.Options{AllowedOrigins: []string{"*"}, AllowCredentials: true})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

type regionStat struct {
	Region     string  `json:"region"`
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

type queryResp struct {
	Regions []regionStat `json:"regions"`
}

// --- POST / -----------------------------------------------------------------

func TestQuery_Scenario(t *testing.T) {
	h := newHandler(scenario())
	rr := do(t, h, http.MethodPost, "/", `{"regions": ["us-east", "eu-west", "ap-south"], "threshold_ms": 150}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp queryResp
	decode(t, rr, &resp)

	if len(resp.Regions) != 2 {
		t.Fatalf("regions: got %d rows, want 2: %+v", len(resp.Regions), resp.Regions)
	}
	us, eu := resp.Regions[0], resp.Regions[1]
	if us != (regionStat{Region: "us-east", AvgLatency: 150, P95Latency: 195, AvgUptime: 99.7, Breaches: 1}) {
		t.Errorf("us-east: got %+v", us)
	}
	if eu != (regionStat{Region: "eu-west", AvgLatency: 50, P95Latency: 50, AvgUptime: 100, Breaches: 0}) {
		t.Errorf("eu-west: got %+v", eu)
	}
}

func TestQuery_JSONKeys(t *testing.T) {
	h := newHandler(scenario())
	rr := do(t, h, http.MethodPost, "/", `{"regions": ["eu-west"]}`)

	var resp map[string][]map[string]any
	decode(t, rr, &resp)
	row := resp["regions"][0]
	for _, k := range []string{"region", "avg_latency", "p95_latency", "avg_uptime", "breaches"} {
		if _, ok := row[k]; !ok {
			t.Errorf("missing key %q in %v", k, row)
		}
	}
	if len(row) != 5 {
		t.Errorf("row has %d keys, want 5: %v", len(row), row)
	}
}

func TestQuery_EmptyBodyObject(t *testing.T) {
	h := newHandler(scenario())
	rr := do(t, h, http.MethodPost, "/", `{}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"regions":[]}` {
		t.Errorf("body: got %s, want {\"regions\":[]}", got)
	}
}

func TestQuery_DefaultThresholdZero(t *testing.T) {
	h := newHandler(scenario())
	rr := do(t, h, http.MethodPost, "/api/v1/latency", `{"regions": ["us-east"]}`)

	var resp queryResp
	decode(t, rr, &resp)
	if len(resp.Regions) != 1 || resp.Regions[0].Breaches != 2 {
		t.Errorf("breaches with default threshold: got %+v, want 2", resp.Regions)
	}
}

func TestQuery_Malformed(t *testing.T) {
	h := newHandler(scenario())
	for _, body := range []string{``, `not json`, `["us-east"]`, `{"regions": "us-east"}`, `{"threshold_ms": "x"}`} {
		rr := do(t, h, http.MethodPost, "/", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status got %d, want 400", body, rr.Code)
			continue
		}
		var resp map[string]string
		decode(t, rr, &resp)
		if resp["error"] == "" {
			t.Errorf("body %q: missing error field", body)
		}
	}
}

func TestQuery_BodyTooLarge(t *testing.T) {
	h := api.New(scenario(), metrics.New(), api.Options{MaxBodyBytes: 32})
	body := `{"regions": ["` + strings.Repeat("x", 64) + `"]}`
	rr := do(t, h, http.MethodPost, "/", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rr.Code)
	}
}

func TestQuery_DataUnavailable(t *testing.T) {
	h := newHandler(failed())
	for _, body := range []string{`{}`, `{"regions": ["us-east"]}`, `not even json`} {
		rr := do(t, h, http.MethodPost, "/", body)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("body %q: status got %d, want 500", body, rr.Code)
			continue
		}
		var resp map[string]any
		decode(t, rr, &resp)
		if _, ok := resp["error"]; !ok {
			t.Errorf("body %q: missing error field: %v", body, resp)
		}
		if _, ok := resp["regions"]; ok {
			t.Errorf("body %q: unexpected regions field on failure", body)
		}
	}
}

func TestQuery_EmptyDatasetUnavailable(t *testing.T) {
	h := newHandler(telemetry.New("empty.json", nil))
	rr := do(t, h, http.MethodPost, "/", `{}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

func TestQuery_Concurrent(t *testing.T) {
	h := newHandler(scenario())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/",
				strings.NewReader(`{"regions": ["us-east", "eu-west"], "threshold_ms": 150}`)))
			if rr.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rr.Code)
			}
		}()
	}
	wg.Wait()
}

// --- GET endpoints ----------------------------------------------------------

func TestInfo(t *testing.T) {
	rr := do(t, newHandler(failed()), http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if !strings.Contains(resp["message"], "API is running") {
		t.Errorf("message: got %q", resp["message"])
	}
}

func TestHealthz_AlwaysOK(t *testing.T) {
	for name, ds := range map[string]*telemetry.Dataset{"ready": scenario(), "failed": failed()} {
		if rr := do(t, newHandler(ds), http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
			t.Errorf("%s: status got %d, want 200", name, rr.Code)
		}
	}
}

func TestReadyz(t *testing.T) {
	if rr := do(t, newHandler(scenario()), http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Errorf("ready: status got %d, want 200", rr.Code)
	}
	if rr := do(t, newHandler(failed()), http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("failed: status got %d, want 503", rr.Code)
	}
}

func TestDataset(t *testing.T) {
	rr := do(t, newHandler(scenario()), http.MethodGet, "/api/v1/dataset", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.DatasetResponse
	decode(t, rr, &resp)
	if resp.Records != 3 {
		t.Errorf("records: got %d, want 3", resp.Records)
	}
	if len(resp.Regions) != 2 || resp.Regions[0] != "us-east" {
		t.Errorf("regions: got %v", resp.Regions)
	}
	if resp.Source != "q-vercel-latency.json" || resp.LoadedAt == "" {
		t.Errorf("source/loaded_at: got %q / %q", resp.Source, resp.LoadedAt)
	}

	if rr := do(t, newHandler(failed()), http.MethodGet, "/api/v1/dataset", ""); rr.Code != http.StatusInternalServerError {
		t.Errorf("failed dataset: status got %d, want 500", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHandler(scenario())
	do(t, h, http.MethodPost, "/", `{"regions": ["us-east", "nowhere"]}`)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`regionstats_region_lookups_total{result="hit"} 1`,
		`regionstats_region_lookups_total{result="miss"} 1`,
		`regionstats_http_requests_total{method="POST",route="/{$}",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics body missing %q", want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(scenario())
	cases := []struct{ method, path string }{
		{http.MethodDelete, "/"},
		{http.MethodGet, "/api/v1/latency"},
		{http.MethodPost, "/api/v1/dataset"},
		{http.MethodPost, "/healthz"},
		{http.MethodPut, "/readyz"},
		{http.MethodPost, "/metrics"},
	}
	for _, c := range cases {
		if rr := do(t, h, c.method, c.path, ""); rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status got %d, want 405", c.method, c.path, rr.Code)
		}
	}
}

func TestNotFound(t *testing.T) {
	rr := do(t, newHandler(scenario()), http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- middleware -------------------------------------------------------------

func TestRequestID(t *testing.T) {
	h := newHandler(scenario())

	rr := do(t, h, http.MethodGet, "/healthz", "")
	if rr.Header().Get(api.RequestIDHeader) == "" {
		t.Error("expected a generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(api.RequestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID: got %q, want abc-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newHandler(scenario())
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Allow-Origin: got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods: got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("Allow-Headers: got %q", got)
	}
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	h := api.New(scenario(), metrics.New(), api.Options{AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://any.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials: got %q, want empty", got)
	}
}

func TestCORS_OriginNotAllowed(t *testing.T) {
	h := api.New(scenario(), metrics.New(), api.Options{AllowedOrigins: []string{"https://ok.example.com"}})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin: got %q, want empty", got)
	}
}
