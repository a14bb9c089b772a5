// Package api serves the search pipeline over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Service runs searches. *pipeline.Pipeline implements it.
type Service interface {
	RunSearch(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error)
	RunSearchAndScrape(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error)
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler returns the API routes:
//
//	POST /api/search             search, scraping too when scrapeResults is set
//	POST /api/search-and-scrape  search then scrape
//	GET  /api/health             liveness
//	GET  /metrics                prometheus
func NewHandler(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", h.search)
	mux.HandleFunc("POST /api/search-and-scrape", h.searchAndScrape)
	mux.HandleFunc("GET /api/health", h.health)
	mux.Handle("GET /metrics", metrics.Handler())
	return h.logRequests(mux)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	run := h.svc.RunSearch
	if req.Scrape {
		run = h.svc.RunSearchAndScrape
	}
	h.respond(w, r, run, req)
}

func (h *handler) searchAndScrape(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.svc.RunSearchAndScrape, req)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request) (lead.SearchRequest, bool) {
	var req lead.SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	return req, true
}

type runFunc func(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error)

func (h *handler) respond(w http.ResponseWriter, r *http.Request, run runFunc, req lead.SearchRequest) {
	res, err := run(r.Context(), req)
	if err != nil {
		status := StatusFor(err)
		if status >= 500 {
			h.logger.Error("request failed", "path", r.URL.Path, "query", req.Query, "err", err)
		}
		writeError(w, status, message(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StatusFor maps an error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConfiguration:
		return http.StatusServiceUnavailable
	case apperr.KindUpstream, apperr.KindNavigation:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// message prefers the categorized error's own text over the wrapping
// chain, so upstream messages reach the client verbatim.
func message(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
