package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(nil)

	m.Generation("image", "succeeded")
	m.Generation("image", "succeeded")
	m.Generation("ingredients", "failed")
	m.ExtractStage("repair")
	m.RemoteOp("save", nil)
	m.RemoteOp("save", errors.New("boom"))
	m.SetRecipes(4)

	if got := testutil.ToFloat64(m.Generations.WithLabelValues("image", "succeeded")); got != 2 {
		t.Fatalf("expected 2 image successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.ExtractStages.WithLabelValues("repair")); got != 1 {
		t.Fatalf("expected 1 repair, got %v", got)
	}
	if got := testutil.ToFloat64(m.RemoteOps.WithLabelValues("save", "error")); got != 1 {
		t.Fatalf("expected 1 save error, got %v", got)
	}
	if got := testutil.ToFloat64(m.Recipes); got != 4 {
		t.Fatalf("expected gauge 4, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Generation("image", "failed")
	m.ExtractStage("direct")
	m.RemoteOp("save", nil)
	m.SetRecipes(1)
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.Generation("healthy", "succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `snapcook_generations_total{kind="healthy",outcome="succeeded"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
