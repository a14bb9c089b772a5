package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

const (
	// maxSitemapDepth bounds index nesting.
	maxSitemapDepth = 2
	// maxSitemapURLs bounds the URLs collected from one sitemap tree.
	maxSitemapURLs = 5000
)

var errSitemapFull = errors.New("sitemap url cap reached")

// SitemapFetcher reads sitemaps and sitemap indexes.
type SitemapFetcher struct {
	fetcher *Fetcher
	robots  *RobotsAuditor
	logger  *slog.Logger
}

// NewSitemapFetcher creates a SitemapFetcher. robots may be nil, in which
// case only /sitemap.xml is tried during discovery.
func NewSitemapFetcher(fetcher *Fetcher, robots *RobotsAuditor, logger *slog.Logger) *SitemapFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapFetcher{fetcher: fetcher, robots: robots, logger: logger}
}

// FetchSitemap returns the page URLs of a sitemap, following index files.
func (s *SitemapFetcher) FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	var urls []string
	err := s.collect(ctx, sitemapURL, 0, &urls)
	return urls, err
}

func (s *SitemapFetcher) collect(ctx context.Context, sitemapURL string, depth int, urls *[]string) error {
	s.logger.Debug("fetching sitemap", "url", sitemapURL, "depth", depth)

	res, _ := s.fetcher.Fetch(ctx, sitemapURL)
	if res.Error != "" {
		return fmt.Errorf("fetch sitemap %s: %s", sitemapURL, res.Error)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("fetch sitemap %s: status %d", sitemapURL, res.StatusCode)
	}

	before := len(*urls)
	parseErr := sitemap.Parse(bytes.NewReader(res.Body), func(e sitemap.Entry) error {
		if len(*urls) >= maxSitemapURLs {
			return errSitemapFull
		}
		if loc := strings.TrimSpace(e.GetLocation()); loc != "" {
			*urls = append(*urls, loc)
		}
		return nil
	})
	if errors.Is(parseErr, errSitemapFull) || (parseErr == nil && len(*urls) > before) {
		return nil
	}

	var nested []string
	indexErr := sitemap.ParseIndex(bytes.NewReader(res.Body), func(e sitemap.IndexEntry) error {
		if loc := strings.TrimSpace(e.GetLocation()); loc != "" {
			nested = append(nested, loc)
		}
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		if parseErr == nil {
			parseErr = indexErr
		}
		return fmt.Errorf("parse %s as sitemap or index: %w", sitemapURL, errors.Join(parseErr, errors.New("no entries")))
	}
	if depth >= maxSitemapDepth {
		s.logger.Debug("sitemap index too deep, skipping", "url", sitemapURL)
		return nil
	}

	for _, n := range nested {
		if len(*urls) >= maxSitemapURLs || ctx.Err() != nil {
			break
		}
		if err := s.collect(ctx, n, depth+1, urls); err != nil {
			s.logger.Warn("failed to fetch nested sitemap", "url", n, "err", err)
		}
	}
	return nil
}

// ContactPages looks up contact or about pages for the site of pageURL in
// its sitemap. It tries robots.txt Sitemap: entries first and /sitemap.xml
// otherwise, and returns at most limit same-host URLs in sitemap order.
func (s *SitemapFetcher) ContactPages(ctx context.Context, pageURL string, limit int) []string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil
	}
	base := origin(u)

	var sources []string
	if s.robots != nil {
		sources = s.robots.Sitemaps(ctx, base)
	}
	if len(sources) == 0 {
		sources = []string{base + "/sitemap.xml"}
	}

	var found []string
	seen := make(map[string]struct{})
	for _, src := range sources {
		urls, err := s.FetchSitemap(ctx, src)
		if err != nil {
			s.logger.Debug("sitemap unavailable", "url", src, "err", err)
			continue
		}
		for _, raw := range urls {
			cand, err := url.Parse(raw)
			if err != nil || !strings.EqualFold(cand.Hostname(), u.Hostname()) {
				continue
			}
			if !isContactHint(cand.Path) {
				continue
			}
			cand.Fragment = ""
			key := cand.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			found = append(found, key)
			if len(found) >= limit {
				return found
			}
		}
	}
	return found
}
