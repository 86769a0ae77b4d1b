package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// Collectors must be usable after repeated Init calls.
	ObserveFetch("success", 120*time.Millisecond)
	ObserveCacheEvent("hit")
	ObserveRender(8 * time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, 50*time.Millisecond)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveFetch("timeout", time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "catscii_upstream_fetches_total")
}
