package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
)

type stubService struct {
	err     error
	scraped bool
	last    lead.SearchRequest
}

func (s *stubService) RunSearch(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return lead.NewResult(req.Query, []lead.Lead{{Title: "A", Source: lead.SourceMaps}}, 1), nil
}

func (s *stubService) RunSearchAndScrape(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	s.scraped = true
	res, err := s.RunSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	res.Scrape = &lead.ScrapeStats{Attempted: 1, Succeeded: 1}
	return res, nil
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, nil)

	rec := post(t, h, "/api/search", `{"query":"ร้านอาหาร","location":"Bangkok","num":5,"engine":"maps","searchProvider":"serpapi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var res lead.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if res.Total != 1 || res.Scrape != nil || svc.scraped {
		t.Errorf("unexpected response %+v", res)
	}
	if svc.last.Query != "ร้านอาหาร" || svc.last.Num != 5 || svc.last.Engine != lead.EngineMaps || svc.last.Provider != "serpapi" {
		t.Errorf("unexpected decoded request %+v", svc.last)
	}
}

func TestSearch_ScrapeFlag(t *testing.T) {
	svc := &stubService{}
	rec := post(t, NewHandler(svc, nil), "/api/search", `{"query":"x","scrapeResults":true,"scrapeLimit":2}`)
	if rec.Code != http.StatusOK || !svc.scraped || svc.last.ScrapeLimit != 2 {
		t.Errorf("expected scrape path, got %d scraped=%v", rec.Code, svc.scraped)
	}
}

func TestSearchAndScrape(t *testing.T) {
	svc := &stubService{}
	rec := post(t, NewHandler(svc, nil), "/api/search-and-scrape", `{"query":"x"}`)
	if rec.Code != http.StatusOK || !svc.scraped {
		t.Fatalf("expected scrape, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"scrape"`) {
		t.Errorf("expected scrape stats in body: %s", rec.Body)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Validation("search request", "query is required"), http.StatusBadRequest, "query is required"},
		{apperr.Configuration("serpapi", "SERPAPI_KEY is required"), http.StatusServiceUnavailable, "SERPAPI_KEY is required"},
		{fmt.Errorf("search %q: %w", "x", apperr.Upstream("serpapi google", "Invalid API key.", nil)), http.StatusBadGateway, "Invalid API key."},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "boom"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "context deadline exceeded"},
	}
	for _, tt := range tests {
		rec := post(t, NewHandler(&stubService{err: tt.err}, nil), "/api/search", `{"query":"x"}`)
		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] != tt.msg {
			t.Errorf("%v: expected message %q, got %q", tt.err, tt.msg, body["error"])
		}
	}
}

func TestBadBody(t *testing.T) {
	rec := post(t, NewHandler(&stubService{}, nil), "/api/search", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewHandler(&stubService{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics endpoint, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET search, got %d", rec.Code)
	}
}
