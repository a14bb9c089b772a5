// Package proxy rotates outbound proxies for both the HTTP fetcher and the
// headless browser, benching endpoints that keep failing.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when reporting on a proxy the pool does not hold.
var ErrNotFound = errors.New("proxy: not in pool")

type endpoint struct {
	url       *url.URL
	failures  int
	successes int
	benched   time.Time // zero when usable
}

// Config tunes failure handling. Zero values pick defaults.
type Config struct {
	// MaxFailures consecutive failures bench a proxy.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

// Pool is a round-robin set of proxies. Safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewPool returns an empty pool.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile adds one proxy per line. Blank lines and '#' comments are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}
	return p.Add(lines...)
}

// Add parses and appends proxies. A missing scheme means http.
func (p *Pool) Add(raw ...string) error {
	parsed := make([]*endpoint, 0, len(raw))
	for _, r := range raw {
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", r, err)
		}
		if u.Host == "" {
			return fmt.Errorf("parse proxy %q: missing host", r)
		}
		parsed = append(parsed, &endpoint{url: u})
	}

	p.mu.Lock()
	p.endpoints = append(p.endpoints, parsed...)
	p.mu.Unlock()
	return nil
}

// Len reports how many proxies the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next usable proxy, or nil when the pool is empty or
// every proxy is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.endpoints {
		e := p.endpoints[p.next]
		p.next = (p.next + 1) % len(p.endpoints)

		if !e.benched.IsZero() {
			if now.Before(e.benched) {
				continue
			}
			e.benched = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// ProxyFunc adapts the pool to http.Transport.Proxy. An empty pool means
// direct connections.
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return p.Next(), nil
	}
}

// Report records the outcome of a request made through u. A nil err counts
// as success and clears the failure streak.
func (p *Pool) Report(u *url.URL, err error) error {
	if u == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(u)
	if e == nil {
		return ErrNotFound
	}
	if err == nil {
		e.successes++
		e.failures = 0
		return nil
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benched = p.now().Add(p.cooldown)
	}
	return nil
}

func (p *Pool) find(u *url.URL) *endpoint {
	target := u.String()
	for _, e := range p.endpoints {
		if e.url.String() == target {
			return e
		}
	}
	return nil
}
