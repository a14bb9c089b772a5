package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/internal/provider/cse"
	"github.com/FranksOps/leadscout/internal/provider/serpapi"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/FranksOps/leadscout/internal/search"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/useragent"
)

// stack is the wired application. close releases the browser and tickers.
type stack struct {
	pipeline *pipeline.Pipeline
	closers  []func()
}

func (s *stack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// build wires providers, the aggregator and, when withBrowser is set, the
// scraping stack. A browser that fails to start is logged and leaves the
// pipeline without a scraper.
func build(cfg *config.Config, logger *slog.Logger, withBrowser bool) (*stack, error) {
	proxies, err := loadProxies(cfg.HTTP.ProxyFile)
	if err != nil {
		return nil, err
	}
	profile, err := fingerprint.ParseProfile(cfg.HTTP.Fingerprint)
	if err != nil {
		return nil, err
	}

	primary, secondary, err := buildProviders(cfg, profile, proxies, logger)
	if err != nil {
		return nil, err
	}

	s := &stack{pipeline: &pipeline.Pipeline{
		Searcher: search.New(primary, secondary, search.Config{}, logger),
		Logger:   logger,
	}}
	if !withBrowser {
		return s, nil
	}

	coord, closeFn, err := buildScraper(cfg, profile, proxies, logger)
	if err != nil {
		logger.Warn("browser unavailable, scraping disabled", "err", err)
		return s, nil
	}
	s.pipeline.Scraper = coord
	s.closers = append(s.closers, closeFn)
	return s, nil
}

func loadProxies(path string) (*proxy.Pool, error) {
	pool := proxy.NewPool(proxy.Config{})
	if path == "" {
		return pool, nil
	}
	if err := pool.LoadFile(path); err != nil {
		return nil, fmt.Errorf("load proxies: %w", err)
	}
	return pool, nil
}

// buildProviders returns nil interfaces for providers without credentials
// so the aggregator reports them as unconfigured when selected.
func buildProviders(cfg *config.Config, profile fingerprint.Profile, proxies *proxy.Pool, logger *slog.Logger) (primary, secondary provider.Provider, err error) {
	var proxyFunc func(*http.Request) (*url.URL, error)
	if proxies.Len() > 0 {
		proxyFunc = proxies.ProxyFunc()
	}
	transport, err := fingerprint.Transport(profile, proxyFunc)
	if err != nil {
		return nil, nil, fmt.Errorf("setup transport: %w", err)
	}
	client, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		Transport: transport,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.SerpAPI.Key != "" {
		c, err := serpapi.New(serpapi.Config{APIKey: cfg.SerpAPI.Key, Client: client}, logger)
		if err != nil {
			return nil, nil, err
		}
		primary = c
	} else {
		logger.Warn("SERPAPI_KEY not set, primary provider disabled")
	}

	if cfg.Google.Configured() {
		c, err := cse.New(cse.Config{
			APIKey:           cfg.Google.APIKey,
			EngineID:         cfg.Google.SearchEngineID,
			FacebookEngineID: cfg.Google.FacebookSearchEngineID,
			Client:           client,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		secondary = c
	}
	return primary, secondary, nil
}

func buildScraper(cfg *config.Config, profile fingerprint.Profile, proxies *proxy.Pool, logger *slog.Logger) (*scraper.Coordinator, func(), error) {
	agents := useragent.Desktop
	if cfg.HTTP.UserAgent != "" {
		agents = []string{cfg.HTTP.UserAgent}
	}
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     cfg.HTTP.Timeout,
		ProxyPool:   proxies,
		UAPool:      useragent.NewPool(agents),
		Fingerprint: profile,
	})
	if err != nil {
		return nil, nil, err
	}
	robots := scraper.NewRobotsAuditor(fetcher, logger)
	sitemaps := scraper.NewSitemapFetcher(fetcher, robots, logger)

	session, err := scraper.NewSession(scraper.SessionConfig{
		Headless:    cfg.Browser.Headless,
		UserAgent:   useragent.NewPool(useragent.Chromium).Pick(cfg.Browser.UserAgent),
		ExecPath:    cfg.Browser.ExecPath,
		ProxyServer: cfg.Browser.Proxy,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	crawler := scraper.NewCrawler(session, scraper.CrawlConfig{
		NavigationTimeout: cfg.Scrape.NavigationTimeout,
		SitemapFallback:   cfg.Scrape.SitemapFallback,
	}, sitemaps, logger)
	coord := scraper.NewCoordinator(crawler, robots, scraper.BatchConfig{
		RespectRobots:     cfg.Scrape.RespectRobots,
		RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
		Jitter:            cfg.Scrape.Jitter,
	}, logger)

	return coord, func() {
		coord.Close()
		if err := session.Close(); err != nil {
			logger.Warn("closing browser failed", "err", err)
		}
	}, nil
}
