package exporters

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smazurov/pixelnode/internal/metrics"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	return string(body)
}

func TestHTTPHandlerExposesRunnerMetrics(t *testing.T) {
	metrics.IncStarts("rainbow")

	body := scrape(t, HTTPHandler())
	if !strings.Contains(body, `pixelnode_runner_starts_total{pattern="rainbow"}`) {
		t.Error("runner start counter missing")
	}
	if !strings.Contains(body, "pixelnode_build_info{") {
		t.Error("build info gauge missing")
	}
}

func TestHTTPHandlerRepeatable(t *testing.T) {
	// A second handler must not panic on duplicate registration.
	first := HTTPHandler()
	second := HTTPHandler()
	scrape(t, first)

	body := scrape(t, second)
	if !strings.Contains(body, `promhttp_metric_handler_requests_total{code="200"}`) {
		t.Error("scrape counter missing")
	}
}
