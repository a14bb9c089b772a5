package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/chromedp/chromedp"
)

// Browser opens isolated pages. Session is the chromedp implementation;
// tests supply fakes.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event. The deadline of ctx
	// is the navigation ceiling.
	Navigate(ctx context.Context, url string) (*NavResponse, error)
	// Evaluate runs expr in the page and decodes its JSON result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// Snapshot reads the rendered document.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Close releases the tab. It is safe to call more than once.
	Close() error
}

// NavResponse describes the main document response. Status is 0 when the
// browser reported none.
type NavResponse struct {
	Status  int
	Headers http.Header
}

// Snapshot is the rendered state of a page.
type Snapshot struct {
	URL   string
	Title string
	HTML  string
	Text  string
}

// SessionConfig configures the headless Chrome process.
type SessionConfig struct {
	Headless  bool
	UserAgent string
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// ProxyServer is passed to Chrome as --proxy-server.
	ProxyServer string
}

// Session owns one Chrome process and one browser context shared by every
// page it opens. Close it on shutdown.
type Session struct {
	logger        *slog.Logger
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

// NewSession launches Chrome. The process lives until Close.
func NewSession(cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyServer))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	s := &Session{
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}

	// The first Run allocates the browser and ties it to the context it is
	// given, so it must be browserCtx itself.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser session started", "headless", cfg.Headless)
	return s, nil
}

// NewPage opens a new tab in the session's browser context.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser session closed: %w", err)
	}
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	// As with the browser, the tab's first Run must use the tab context.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts Chrome down.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.browserCtx)
		s.cancelBrowser()
		s.cancelAlloc()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.logger.Info("browser session closed")
	})
	return err
}

type chromePage struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// bind derives a context from the tab that also ends when ctx does.
// Cancelling it aborts the action without closing the tab.
func (p *chromePage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string) (*NavResponse, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, apperr.Navigation("navigate "+url, err)
	}

	nav := &NavResponse{Headers: http.Header{}}
	if resp != nil {
		nav.Status = int(resp.Status)
		for k, v := range resp.Headers {
			nav.Headers.Set(k, fmt.Sprint(v))
		}
	}
	return nav, nil
}

func (p *chromePage) Evaluate(ctx context.Context, expr string, out any) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, out))
}

func (p *chromePage) Snapshot(ctx context.Context) (*Snapshot, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var snap Snapshot
	err := chromedp.Run(runCtx,
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.Evaluate(`document.documentElement ? document.documentElement.outerHTML : ""`, &snap.HTML),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &snap.Text),
	)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &snap, nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}
