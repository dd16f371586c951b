package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkurosawa/addrsearch/internal/corpus"
	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/search"
)

var displayFields = []string{"郵便番号", "都道府県", "市区町村"}

func newTestHandler(t *testing.T, reindex Reindexer) *Handler {
	t.Helper()
	corp := corpus.Corpus{
		{ID: 0, Fields: map[string]string{
			"郵便番号": "1600022", "都道府県": "東京都", "市区町村": "新宿区",
		}},
		{ID: 1, Fields: map[string]string{
			"郵便番号": "5300001", "都道府県": "大阪府", "市区町村": "大阪市北区",
		}},
		{ID: 2, Fields: map[string]string{
			"郵便番号": "6008216", "都道府県": "京都府", "市区町村": "京都市下京区",
		}},
	}
	fields := []string{"都道府県", "市区町村"}
	ix, err := index.NewBuilder(fields, 2, 1).Build(context.Background(), corp)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	store := index.NewStore()
	store.Publish(ix, corp)
	return New(store, nil, nil, nil, displayFields, 2, 5, reindex)
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, search.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	var resp search.Response
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec, resp
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)

	rec, resp := doSearch(t, h, "/api/v1/search?q=東京")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Query != "東京" || resp.TotalHits != 1 || len(resp.Records) != 1 {
		t.Fatalf("response = %+v, want 1 hit for 東京", resp)
	}
	got := resp.Records[0]
	if got.ID != 0 {
		t.Errorf("record ID = %d, want 0", got.ID)
	}
	if got.Fields["郵便番号"] != "1600022" || got.Fields["都道府県"] != "東京都" {
		t.Errorf("display fields = %v", got.Fields)
	}
	if _, extra := got.Fields["町域"]; extra {
		t.Error("record carries a non-display field")
	}
}

func TestSearchShortQueryAndMultiMatch(t *testing.T) {
	h := newTestHandler(t, nil)

	// Single rune is below the gram width: no tokens, no matches, not an
	// error.
	rec, resp := doSearch(t, h, "/api/v1/search?q=府")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.TotalHits != 0 || len(resp.Records) != 0 {
		t.Errorf("short query response = %+v, want zero hits", resp)
	}

	// 京都 occurs in 東京都新宿区 (record 0) and 京都府京都市下京区
	// (record 2).
	rec, resp = doSearch(t, h, "/api/v1/search?q=京都")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.TotalHits != 2 {
		t.Fatalf("TotalHits = %d, want 2", resp.TotalHits)
	}
	if len(resp.Records) != 2 {
		t.Errorf("returned %d records, want 2 (within default limit)", len(resp.Records))
	}
}

func TestSearchExplicitLimit(t *testing.T) {
	h := newTestHandler(t, nil)

	rec, resp := doSearch(t, h, "/api/v1/search?q=京都&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// TotalHits reports the full match count even when truncated.
	if resp.TotalHits != 2 || len(resp.Records) != 1 {
		t.Errorf("TotalHits=%d returned=%d, want 2/1", resp.TotalHits, len(resp.Records))
	}
	if resp.Records[0].ID != 0 {
		t.Errorf("first record ID = %d, want 0 (ascending order)", resp.Records[0].ID)
	}

	// Limits above maxResults are clamped, not rejected.
	rec, resp = doSearch(t, h, "/api/v1/search?q=京都&limit=9999")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(resp.Records) != 2 {
		t.Errorf("returned %d records, want 2", len(resp.Records))
	}
}

func TestSearchValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/v1/search"},
		{"empty query", "/api/v1/search?q="},
		{"non-numeric limit", "/api/v1/search?q=東京&limit=abc"},
		{"zero limit", "/api/v1/search?q=東京&limit=0"},
		{"negative limit", "/api/v1/search?q=東京&limit=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doSearch(t, h, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSearchNoMatches(t *testing.T) {
	h := newTestHandler(t, nil)
	rec, resp := doSearch(t, h, "/api/v1/search?q=沖縄")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (no match is not an error)", rec.Code)
	}
	if resp.TotalHits != 0 || len(resp.Records) != 0 {
		t.Errorf("response = %+v, want zero hits", resp)
	}
}

func TestReindexEndpoint(t *testing.T) {
	called := 0
	h := newTestHandler(t, func(ctx context.Context) (*ReindexResult, error) {
		called++
		return &ReindexResult{Records: 3, Terms: 42, Duration: 5 * time.Millisecond}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil)
	rec := httptest.NewRecorder()
	h.Reindex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if called != 1 {
		t.Errorf("reindexer called %d times, want 1", called)
	}
	var result ReindexResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Records != 3 || result.Terms != 42 {
		t.Errorf("result = %+v, want records=3 terms=42", result)
	}
}

func TestReindexFailure(t *testing.T) {
	h := newTestHandler(t, func(ctx context.Context) (*ReindexResult, error) {
		return nil, errors.New("corpus file vanished")
	})
	rec := httptest.NewRecorder()
	h.Reindex(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestReindexNotConfigured(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.Reindex(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("CacheStats status = %d, want 200", rec.Code)
	}
	var stats map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats["status"] != "disabled" {
		t.Errorf("stats = %v, want status=disabled", stats)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("CacheInvalidate status = %d, want 503", rec.Code)
	}
}
