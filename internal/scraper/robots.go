package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsAuditor fetches and caches robots.txt per origin. Unreachable or
// broken files fail open.
type RobotsAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData // nil entry: fetched, nothing usable
}

// NewRobotsAuditor creates an auditor that fetches through fetcher.
func NewRobotsAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether agent may fetch rawURL.
func (r *RobotsAuditor) Allowed(ctx context.Context, rawURL, agent string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false, fmt.Errorf("invalid url %q", rawURL)
	}

	data := r.load(ctx, origin(u))
	if data == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, agent), nil
}

// Sitemaps returns the Sitemap: entries of the origin's robots.txt. host
// may be a bare host or an origin URL.
func (r *RobotsAuditor) Sitemaps(ctx context.Context, host string) []string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil
	}
	data := r.load(ctx, origin(u))
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

func (r *RobotsAuditor) load(ctx context.Context, base string) *robotstxt.RobotsData {
	r.mu.RLock()
	data, ok := r.cache[base]
	r.mu.RUnlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, base)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[base]; ok {
		return cached
	}
	r.cache[base] = data
	return data
}

func (r *RobotsAuditor) fetch(ctx context.Context, base string) *robotstxt.RobotsData {
	res, _ := r.fetcher.Fetch(ctx, base+"/robots.txt")
	if res.Error != "" {
		r.logger.Debug("robots.txt unreachable, allowing", "origin", base, "err", res.Error)
		return nil
	}
	if res.StatusCode >= 500 {
		r.logger.Debug("robots.txt server error, allowing", "origin", base, "status", res.StatusCode)
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, res.Body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable, allowing", "origin", base, "err", err)
		return nil
	}
	return data
}

func origin(u *url.URL) string {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + u.Host
}
