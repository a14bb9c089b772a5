// Package pipeline is the outward entry point: a search, optionally
// followed by crawling each lead's website and merging the contacts found.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
)

// Searcher answers search requests. *search.Aggregator implements it.
type Searcher interface {
	Search(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error)
}

// Scraper crawls a list of URLs. *scraper.Coordinator implements it.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string, limit int) []lead.ScrapeOutcome
}

// Pipeline wires search and scrape together. Scraper may be nil when no
// browser is available; scraping requests then fail with a configuration
// error.
type Pipeline struct {
	Searcher Searcher
	Scraper  Scraper
	Logger   *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Run dispatches on req.Scrape.
func (p *Pipeline) Run(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	if req.Scrape {
		return p.RunSearchAndScrape(ctx, req)
	}
	return p.RunSearch(ctx, req)
}

// RunSearch executes the search only.
func (p *Pipeline) RunSearch(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	if p.Searcher == nil {
		return nil, fmt.Errorf("pipeline: searcher is nil")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	log := p.logger().With("request_id", uuid.NewString())
	return p.search(ctx, log, req)
}

// RunSearchAndScrape executes the search, crawls the first ScrapeLimit
// leads' websites and merges what was found. Scrape stats are reported on
// the result.
func (p *Pipeline) RunSearchAndScrape(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	if p.Searcher == nil {
		return nil, fmt.Errorf("pipeline: searcher is nil")
	}
	if p.Scraper == nil {
		return nil, apperr.Configuration("scrape", "browser is not available")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	log := p.logger().With("request_id", uuid.NewString())

	res, err := p.search(ctx, log, req)
	if err != nil {
		return nil, err
	}

	n := min(req.ScrapeLimit, len(res.Leads))
	urls := make([]string, n)
	for i := range urls {
		urls[i] = res.Leads[i].URL()
	}

	start := time.Now()
	log.Info("scraping leads", "count", n)
	outcomes := p.Scraper.ScrapeAll(ctx, urls, req.ScrapeLimit)

	merged, stats := lead.MergeAll(res.Leads, outcomes)
	res.SetLeads(merged)
	res.Scrape = &stats

	log.Info("scrape finished",
		"attempted", stats.Attempted,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"fallback", stats.FallbackUsed,
		"unique_phones", stats.UniquePhones,
		"emails", stats.TotalEmails,
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) search(ctx context.Context, log *slog.Logger, req lead.SearchRequest) (*lead.SearchResult, error) {
	start := time.Now()
	res, err := p.Searcher.Search(ctx, req)
	if err != nil {
		log.Error("search failed", "query", req.Query, "engine", req.Engine, "err", err)
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}
	log.Info("search finished", "query", req.Query, "engine", req.Engine, "leads", res.Total, "duration", time.Since(start))
	return res, nil
}
