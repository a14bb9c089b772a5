package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/bypass"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

// In-page expressions. resourceCountExpr counts finished subresources;
// scrollExpr scrolls one step and returns the current scroll height.
const (
	resourceCountExpr = `performance.getEntriesByType("resource").length`
	scrollExprFormat  = `(() => { window.scrollBy(0, %d); return document.body ? document.body.scrollHeight : 0; })()`
)

// CrawlConfig tunes page loading. Zero values pick the defaults noted.
type CrawlConfig struct {
	// NavigationTimeout bounds load plus network idle. Default 30s.
	NavigationTimeout time.Duration
	// IdleQuiet is how long the resource count must hold still. Default 500ms.
	IdleQuiet time.Duration
	// IdlePoll is the resource count polling interval. Default 100ms.
	IdlePoll time.Duration
	// Settle is the pause after idle. Default 2s; negative disables it.
	Settle time.Duration
	// ScrollStep in pixels. Default 100.
	ScrollStep int
	// ScrollInterval between steps. Default 100ms.
	ScrollInterval time.Duration
	// MaxScrollSteps caps the scroll loop. Default 300.
	MaxScrollSteps int
	// SitemapFallback looks up contact pages in the sitemap when the page
	// links none.
	SitemapFallback bool
}

func (c *CrawlConfig) withDefaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.IdleQuiet <= 0 {
		c.IdleQuiet = 500 * time.Millisecond
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = 100 * time.Millisecond
	}
	if c.Settle == 0 {
		c.Settle = 2 * time.Second
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = 100
	}
	if c.ScrollInterval <= 0 {
		c.ScrollInterval = 100 * time.Millisecond
	}
	if c.MaxScrollSteps <= 0 {
		c.MaxScrollSteps = 300
	}
}

// Crawler renders one website and extracts its contacts, hopping once to a
// contact page when the landing page has none.
type Crawler struct {
	browser   Browser
	cfg       CrawlConfig
	sitemaps  *SitemapFetcher
	detectors []bypass.Detector
	logger    *slog.Logger
}

// NewCrawler creates a Crawler. sitemaps is only consulted when
// cfg.SitemapFallback is set and may be nil otherwise.
func NewCrawler(browser Browser, cfg CrawlConfig, sitemaps *SitemapFetcher, logger *slog.Logger) *Crawler {
	cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		browser:   browser,
		cfg:       cfg,
		sitemaps:  sitemaps,
		detectors: bypass.DefaultDetectors(),
		logger:    logger,
	}
}

// pageResult is one rendered and extracted page.
type pageResult struct {
	snap      *Snapshot
	ext       *Extraction
	blockedBy string
}

// Crawl loads url and returns its contact data. It fails with an
// apperr navigation error when the page cannot be loaded in time.
func (c *Crawler) Crawl(ctx context.Context, url string) (*lead.PageData, error) {
	start := time.Now()

	main, err := c.crawlPage(ctx, url)
	if err != nil {
		metrics.RecordCrawl(time.Since(start), false, false, "")
		return nil, err
	}

	data := &lead.PageData{
		Title: main.snap.Title,
		URL:   main.snap.URL,
		Contacts: lead.Contacts{
			Emails:      main.ext.Emails,
			Phones:      main.ext.Phones,
			SocialMedia: main.ext.SocialMedia,
		},
		Meta:             main.ext.Meta,
		ContactPageLinks: main.ext.ContactLinks,
		BlockedBy:        main.blockedBy,
	}
	if data.URL == "" {
		data.URL = url
	}
	if data.Title == "" {
		data.Title = main.ext.Title
	}

	if !main.ext.HasDirect() {
		c.contactPageHop(ctx, data)
	}

	c.logger.Debug("page crawled", "url", url,
		"emails", len(data.Contacts.Emails),
		"phones", len(data.Contacts.Phones),
		"fallback", data.ScrapedContactPage,
	)
	metrics.RecordCrawl(time.Since(start), true, data.ScrapedContactPage, data.BlockedBy)
	return data, nil
}

// contactPageHop crawls the first contact-page candidate once and unions
// its emails and phones into data. Failures are logged and ignored.
func (c *Crawler) contactPageHop(ctx context.Context, data *lead.PageData) {
	target := ""
	if len(data.ContactPageLinks) > 0 {
		target = data.ContactPageLinks[0]
	} else if c.cfg.SitemapFallback && c.sitemaps != nil {
		if found := c.sitemaps.ContactPages(ctx, data.URL, 1); len(found) > 0 {
			target = found[0]
		}
	}
	if target == "" {
		return
	}

	c.logger.Debug("no contacts on landing page, trying contact page", "url", data.URL, "contact_url", target)
	sub, err := c.crawlPage(ctx, target)
	if err != nil {
		c.logger.Warn("contact page crawl failed", "url", target, "err", err)
		return
	}

	emails := newEmailSet()
	for _, e := range slices.Concat(data.Contacts.Emails, sub.ext.Emails) {
		emails.add(e)
	}
	phones := newPhoneSet()
	phones.add(data.Contacts.Phones...)
	phones.add(sub.ext.Phones...)

	data.Contacts.Emails = emails.sorted()
	data.Contacts.Phones = phones.sorted()
	data.ScrapedContactPage = true
}

// crawlPage runs the load, idle, settle, scroll, extract protocol on a
// fresh page and always closes it.
func (c *Crawler) crawlPage(ctx context.Context, url string) (*pageResult, error) {
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return nil, apperr.Navigation("open page", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			c.logger.Debug("closing page failed", "url", url, "err", cerr)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	nav, err := page.Navigate(navCtx, url)
	if err != nil {
		return nil, navigationError(url, err)
	}
	if err := c.waitIdle(navCtx, page); err != nil {
		return nil, navigationError(url, err)
	}
	cancel()

	if c.cfg.Settle > 0 {
		if err := ratelimit.Pause(ctx, c.cfg.Settle); err != nil {
			return nil, navigationError(url, err)
		}
	}
	if err := c.autoScroll(ctx, page); err != nil {
		c.logger.Debug("auto-scroll stopped early", "url", url, "err", err)
		if ctx.Err() != nil {
			return nil, navigationError(url, ctx.Err())
		}
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return nil, navigationError(url, err)
	}
	if snap.URL == "" {
		snap.URL = url
	}

	res := &pageResult{
		snap: snap,
		ext:  Extract(Document{URL: snap.URL, HTML: snap.HTML, Text: snap.Text}),
	}
	if nav != nil {
		res.blockedBy = bypass.Analyze(&bypass.Page{
			Status:  nav.Status,
			Headers: nav.Headers,
			Title:   snap.Title,
			HTML:    snap.HTML,
		}, c.detectors)
	}
	if res.blockedBy != "" {
		c.logger.Warn("bot protection detected", "url", url, "vendor", res.blockedBy)
	}
	return res, nil
}

// waitIdle polls the resource count until it has not changed for
// IdleQuiet. It gives up with ctx's error.
func (c *Crawler) waitIdle(ctx context.Context, page Page) error {
	last := -1
	stableSince := time.Now()
	for {
		var count int
		if err := page.Evaluate(ctx, resourceCountExpr, &count); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("poll network activity: %w", err)
		}
		if count != last {
			last = count
			stableSince = time.Now()
		} else if time.Since(stableSince) >= c.cfg.IdleQuiet {
			return nil
		}
		if err := ratelimit.Pause(ctx, c.cfg.IdlePoll); err != nil {
			return err
		}
	}
}

// autoScroll scrolls in fixed steps until the distance covered reaches the
// document height, re-read every step so lazy content can extend it.
func (c *Crawler) autoScroll(ctx context.Context, page Page) error {
	expr := fmt.Sprintf(scrollExprFormat, c.cfg.ScrollStep)
	scrolled := 0
	for step := 0; step < c.cfg.MaxScrollSteps; step++ {
		var height float64
		if err := page.Evaluate(ctx, expr, &height); err != nil {
			return err
		}
		scrolled += c.cfg.ScrollStep
		if float64(scrolled) >= height {
			return nil
		}
		if err := ratelimit.Pause(ctx, c.cfg.ScrollInterval); err != nil {
			return err
		}
	}
	return nil
}

func navigationError(url string, err error) error {
	if apperr.Is(err, apperr.KindNavigation) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Navigation("navigate "+url, fmt.Errorf("timeout: %w", err))
	}
	return apperr.Navigation("navigate "+url, err)
}
