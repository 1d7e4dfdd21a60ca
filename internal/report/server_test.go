package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"statarb/internal/cache"
	"statarb/internal/pairfinder"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBacktestRunner struct {
	result any
	err    error
}

func (f *fakeBacktestRunner) RunBacktest() (any, error) { return f.result, f.err }

func newTestServer() (*Server, *gin.Engine) {
	c := cache.New()
	c.Store(cache.Snapshot{
		Pairs:      []pairfinder.PairInfo{{S1: "AAA", S2: "BBB", HalfLife: 12}},
		LastRecalc: time.Now(),
	})
	srv := NewServer(c, &fakeBacktestRunner{result: map[string]int{"trades": 3}})
	r := gin.New()
	srv.Routes(r)
	return srv, r
}

func TestHandleStatus_ReportsAdmittedPairCount(t *testing.T) {
	_, r := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["admitted_pairs"].(float64) != 1 {
		t.Errorf("admitted_pairs = %v, want 1", body["admitted_pairs"])
	}
}

func TestHandlePairs_ReturnsSnapshot(t *testing.T) {
	_, r := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/pairs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Pairs []pairfinder.PairInfo `json:"pairs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Pairs) != 1 || body.Pairs[0].S1 != "AAA" {
		t.Errorf("unexpected pairs: %+v", body.Pairs)
	}
}

func TestHandleBacktest_DelegatesToRunner(t *testing.T) {
	_, r := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/backtest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleBacktest_NoRunnerConfigured(t *testing.T) {
	c := cache.New()
	srv := NewServer(c, nil)
	r := gin.New()
	srv.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/backtest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}
