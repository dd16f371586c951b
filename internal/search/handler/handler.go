// Package handler exposes the search service HTTP API: query execution with
// optional caching, cache administration, and full index rebuilds.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/mkurosawa/addrsearch/internal/analytics"
	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/search"
	"github.com/mkurosawa/addrsearch/internal/search/cache"
	"github.com/mkurosawa/addrsearch/pkg/logger"
	"github.com/mkurosawa/addrsearch/pkg/metrics"
)

// ReindexResult reports the outcome of a full rebuild-and-swap.
type ReindexResult struct {
	Records  int           `json:"records"`
	Terms    int           `json:"terms"`
	Duration time.Duration `json:"-"`
}

// Reindexer reloads the corpus, rebuilds the index, and publishes the new
// snapshot. Wired up in main, where the corpus source lives.
type Reindexer func(ctx context.Context) (*ReindexResult, error)

// Handler serves the search API against the published snapshot store.
type Handler struct {
	store         *index.Store
	cache         *cache.QueryCache
	collector     *analytics.Collector
	metrics       *metrics.Metrics
	displayFields []string
	defaultLimit  int
	maxResults    int
	reindex       Reindexer
	logger        *slog.Logger
}

// New creates a Handler. cache, collector, metrics, and reindex may each be
// nil, disabling the corresponding feature.
func New(
	store *index.Store,
	queryCache *cache.QueryCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	displayFields []string,
	defaultLimit, maxResults int,
	reindex Reindexer,
) *Handler {
	return &Handler{
		store:         store,
		cache:         queryCache,
		collector:     collector,
		metrics:       m,
		displayFields: displayFields,
		defaultLimit:  defaultLimit,
		maxResults:    maxResults,
		reindex:       reindex,
		logger:        slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	var resp *search.Response
	var err error
	cacheHit := false
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*search.Response, error) {
			return h.execute(query, limit), nil
		})
		if err != nil {
			log.Error("search execution failed", "query", query, "error", err)
			h.writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	} else {
		resp = h.execute(query, limit)
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Records),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.observeSearch(query, resp, cacheHit, latency)
	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.SearchEvent{
			Type:       eventType,
			Query:      query,
			TokenCount: max(0, utf8.RuneCountInString(query)-h.store.Current().Index.GramSize()+1),
			TotalHits:  resp.TotalHits,
			Returned:   len(resp.Records),
			LatencyMs:  latency.Milliseconds(),
			CacheHit:   cacheHit,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestIDFromContext(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// execute runs a query against the current snapshot and resolves the display
// fields of the first limit matches. It never fails: unmatchable or
// too-short queries yield an empty record list.
func (h *Handler) execute(query string, limit int) *search.Response {
	snapshot := h.store.Current()
	ids := search.Match(snapshot.Index, query)

	resp := &search.Response{
		Query:     query,
		TotalHits: len(ids),
		Records:   make([]search.ResultRecord, 0, min(len(ids), limit)),
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	for _, rec := range snapshot.Corpus.Resolve(ids) {
		fields := make(map[string]string, len(h.displayFields))
		for _, name := range h.displayFields {
			fields[name] = rec.Field(name)
		}
		resp.Records = append(resp.Records, search.ResultRecord{
			ID:     rec.ID,
			Fields: fields,
		})
	}
	return resp
}

func (h *Handler) observeSearch(query string, resp *search.Response, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	switch {
	case utf8.RuneCountInString(query) < h.store.Current().Index.GramSize():
		resultType = "short_query"
	case resp.TotalHits == 0:
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchResultsCount.Observe(float64(resp.TotalHits))
	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
}

// Reindex handles POST /api/v1/reindex: full corpus reload, rebuild, and
// atomic snapshot swap.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindex == nil {
		h.writeError(w, http.StatusServiceUnavailable, "reindexing is not configured")
		return
	}
	log := logger.FromContext(r.Context())
	result, err := h.reindex(r.Context())
	if err != nil {
		log.Error("reindex failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			log.Error("cache invalidation after reindex failed", "error", err)
		}
	}
	if h.collector != nil {
		h.collector.Track(analytics.ReindexEvent{
			Type:       analytics.EventReindex,
			Records:    result.Records,
			Terms:      result.Terms,
			DurationMs: result.Duration.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
	log.Info("reindex completed",
		"records", result.Records,
		"terms", result.Terms,
		"duration_ms", result.Duration.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
