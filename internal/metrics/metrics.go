// Package metrics exposes Prometheus counters for search calls, crawls and
// proxy health.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_provider_requests_total",
			Help: "Upstream search API calls by provider, engine and outcome",
		},
		[]string{"provider", "engine", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_provider_duration_seconds",
			Help:    "Duration of a full adapter search including pagination",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "engine"},
	)

	LeadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_leads_total",
			Help: "Leads returned by adapters, by source",
		},
		[]string{"source"},
	)

	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_crawls_total",
			Help: "Page crawls by outcome, fallback use and detected bot protection",
		},
		[]string{"status", "fallback", "blocked_by"},
	)

	CrawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscout_crawl_duration_seconds",
			Help:    "Duration of a page crawl including the contact-page hop",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60},
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_proxy_failures_total",
			Help: "Requests that failed through a proxy",
		},
		[]string{"proxy_url"},
	)
)

// RecordProvider records one adapter search.
func RecordProvider(provider, engine string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, engine, status).Inc()
	ProviderDuration.WithLabelValues(provider, engine).Observe(d.Seconds())
}

// RecordLeads adds n leads for source.
func RecordLeads(source string, n int) {
	if n > 0 {
		LeadsTotal.WithLabelValues(source).Add(float64(n))
	}
}

// RecordCrawl records one page crawl.
func RecordCrawl(d time.Duration, success, fallback bool, blockedBy string) {
	status := "ok"
	if !success {
		status = "error"
	}
	CrawlsTotal.WithLabelValues(status, strconv.FormatBool(fallback), blockedBy).Inc()
	CrawlDuration.Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server is a standalone listener for /metrics.
type Server struct {
	srv  *http.Server
	addr net.Addr
}

// Start listens on port and serves /metrics in the background. Port 0
// picks a free port; Addr reports it.
func Start(port int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv, addr: ln.Addr()}, nil
}

// Addr is the bound address.
func (s *Server) Addr() net.Addr { return s.addr }

// Stop shuts the server down, waiting at most five seconds.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
