package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

// MaxBatch is the most URLs one ScrapeAll call will crawl.
const MaxBatch = 50

// PageCrawler crawls a single URL. *Crawler implements it.
type PageCrawler interface {
	Crawl(ctx context.Context, url string) (*lead.PageData, error)
}

// BatchConfig holds the optional politeness controls of a batch.
type BatchConfig struct {
	// RespectRobots turns a robots.txt disallow into a failed outcome.
	RespectRobots bool
	// RobotsAgent is matched against robots.txt groups. Default "*".
	RobotsAgent string
	// RequestsPerSecond paces crawls; 0 means no pacing.
	RequestsPerSecond float64
	// Jitter randomizes pacing, 0 to 1.
	Jitter float64
}

// Coordinator crawls URL lists one page at a time. A single Coordinator
// may be shared by concurrent callers; their batches are serialized.
type Coordinator struct {
	mu      sync.Mutex
	crawler PageCrawler
	robots  *RobotsAuditor
	limiter *ratelimit.Limiter
	agent   string
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator. robots is required only when
// cfg.RespectRobots is set.
func NewCoordinator(crawler PageCrawler, robots *RobotsAuditor, cfg BatchConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RobotsAgent == "" {
		cfg.RobotsAgent = "*"
	}
	if !cfg.RespectRobots {
		robots = nil
	}
	return &Coordinator{
		crawler: crawler,
		robots:  robots,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter),
		agent:   cfg.RobotsAgent,
		logger:  logger,
	}
}

// ScrapeAll crawls the first min(limit, len(urls), MaxBatch) URLs in order
// and returns one outcome per crawled URL, aligned by index. A limit <= 0
// means no limit beyond MaxBatch. Per-URL failures never abort the batch;
// once ctx is done the remaining URLs are reported as failed.
func (c *Coordinator) ScrapeAll(ctx context.Context, urls []string, limit int) []lead.ScrapeOutcome {
	n := min(len(urls), MaxBatch)
	if limit > 0 {
		n = min(n, limit)
	}
	urls = urls[:n]

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("scraping batch", "urls", n)
	outcomes := make([]lead.ScrapeOutcome, 0, n)
	for i, u := range urls {
		u = strings.TrimSpace(u)
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, failure(u, "canceled: "+err.Error()))
			continue
		}
		if u == "" {
			outcomes = append(outcomes, failure(u, "no website"))
			continue
		}

		if c.robots != nil {
			allowed, err := c.robots.Allowed(ctx, u, c.agent)
			if err != nil {
				outcomes = append(outcomes, failure(u, err.Error()))
				continue
			}
			if !allowed {
				c.logger.Info("url disallowed by robots.txt", "url", u)
				outcomes = append(outcomes, failure(u, "disallowed by robots.txt"))
				continue
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			outcomes = append(outcomes, failure(u, "canceled: "+err.Error()))
			continue
		}

		c.logger.Debug("scraping", "url", u, "index", i+1, "of", n)
		data, err := c.crawler.Crawl(ctx, u)
		if err != nil {
			c.logger.Warn("scrape failed", "url", u, "err", err)
			outcomes = append(outcomes, failure(u, err.Error()))
			continue
		}
		outcomes = append(outcomes, lead.ScrapeOutcome{URL: u, Success: true, Data: data})
	}
	return outcomes
}

// Close releases the pacing ticker.
func (c *Coordinator) Close() {
	c.limiter.Stop()
}

func failure(url, msg string) lead.ScrapeOutcome {
	return lead.ScrapeOutcome{URL: url, Success: false, Error: msg}
}
