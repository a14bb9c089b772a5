package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/useragent"
	"github.com/google/uuid"
)

// maxFetchBody bounds robots.txt and sitemap downloads.
const maxFetchBody = 10 << 20

type proxyCtxKey struct{}

// FetchConfig configures the plain HTTP fetcher used for robots.txt and
// sitemaps.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
}

// Response is a fetched resource. Transport failures are reported in Error
// rather than as a Go error, so callers can log and move on.
type Response struct {
	ID         string
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Error      string
}

// OK reports a 2xx response without a transport error.
func (r *Response) OK() bool {
	return r != nil && r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs single GETs with a browser-like TLS fingerprint, rotating
// agents and optional proxies.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher builds a Fetcher. One transport is shared by all fetches so
// connections are pooled.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(useragent.Desktop)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}

	// The proxy for a request travels in its context so one transport can
	// rotate proxies per request.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyCtxKey{}).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch GETs targetURL. The returned error is always nil; failures land in
// Response.Error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	start := time.Now()
	res := &Response{ID: uuid.NewString(), URL: targetURL}
	defer func() { res.Duration = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		res.Error = fmt.Sprintf("build request: %v", err)
		return res, nil
	}

	var via *url.URL
	if f.config.ProxyPool != nil {
		if via = f.config.ProxyPool.Next(); via != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyCtxKey{}, via))
		}
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "th-TH,th;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.client.Do(req.Context(), req)
	if via != nil {
		_ = f.config.ProxyPool.Report(via, err)
		if err != nil {
			metrics.ProxyFailures.WithLabelValues(via.Redacted()).Inc()
		}
	}
	if err != nil {
		res.Error = fmt.Sprintf("request failed: %v", err)
		return res, nil
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Headers = resp.Header
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		res.Error = fmt.Sprintf("read body: %v", err)
	}
	res.Body = body
	return res, nil
}
