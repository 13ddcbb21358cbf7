package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airline_recovery/internal/scenario"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store, err := scenario.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Insert(context.Background(), scenario.Few("few")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(store, nil, log, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	w := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListScenarios(t *testing.T) {
	srv := newTestServer(t, Config{})
	w := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/scenarios", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list []scenario.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "few" {
		t.Errorf("list = %+v", list)
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{})
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/api/v1/runs", RunRequest{ScenarioID: "few"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create run: status = %d body = %s", w.Code, w.Body.String())
	}
	var created RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.RunID == "" || created.Result == nil {
		t.Fatalf("response = %+v", created)
	}
	if len(created.Result.Flights) != 4 || created.Result.Metrics.OnTime != 4 {
		t.Errorf("result = %+v", created.Result.Metrics)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/"+created.RunID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get run: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/"+created.RunID+"/flights.csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "id,flight_number,tail") {
		t.Errorf("csv body = %q", w.Body.String()[:40])
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run: status = %d", w.Code)
	}
}

func TestCreateRunValidation(t *testing.T) {
	srv := newTestServer(t, Config{})
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/api/v1/runs", RunRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty scenario_id: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/runs", RunRequest{ScenarioID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown scenario: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d", rec.Code)
	}
}

func TestRunMaxDelayOverride(t *testing.T) {
	srv := newTestServer(t, Config{})
	override := 15
	w := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/runs",
		RunRequest{ScenarioID: "few", MaxDelayMin: &override})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result.MaxDelayMin != 15 {
		t.Errorf("MaxDelayMin = %d, want 15", resp.Result.MaxDelayMin)
	}
}

func TestSweep(t *testing.T) {
	srv := newTestServer(t, Config{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/sweeps",
		SweepRequest{ScenarioID: "few", MaxDelaysMin: []int{60, 360}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp SweepResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(resp.Runs))
	}
	if resp.Runs[0].Result.MaxDelayMin != 60 || resp.Runs[1].Result.MaxDelayMin != 360 {
		t.Errorf("sweep order: %d, %d", resp.Runs[0].Result.MaxDelayMin, resp.Runs[1].Result.MaxDelayMin)
	}
	if resp.SweepID == "" {
		t.Error("sweep id missing")
	}
}

func TestPersistenceEndpointsNeedStores(t *testing.T) {
	srv := newTestServer(t, Config{})
	r := srv.Router()

	w := doJSON(t, r, http.MethodGet, "/api/v1/scenarios/few/runs", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("run history without stores: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/sweeps/anything/curve", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("sweep curve without stores: status = %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, Config{AuthEnabled: true, APIKeys: []string{"sekret"}})
	r := srv.Router()

	w := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "sekret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d", rec.Code)
	}

	// Bearer form works too.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer key: status = %d", rec.Code)
	}
}
