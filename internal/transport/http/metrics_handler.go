package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cordpulse/internal/cache"
)

// CacheStatser reports dataset cache counters.
type CacheStatser interface {
	CacheStats() cache.Stats
}

// MetricsHandler serves the Prometheus scrape and a JSON view of the
// dataset cache.
type MetricsHandler struct {
	scrape http.Handler
	cache  CacheStatser
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(scrape http.Handler, cache CacheStatser) *MetricsHandler {
	return &MetricsHandler{scrape: scrape, cache: cache}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/cache", h.GetCacheStats)
	return r
}

// GetMetrics handles GET /metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.scrape == nil {
		http.NotFound(w, r)
		return
	}
	h.scrape.ServeHTTP(w, r)
}

// GetCacheStats handles GET /metrics/cache
func (h *MetricsHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.cache.CacheStats())
}
