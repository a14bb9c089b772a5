// Package useragent rotates desktop browser User-Agent strings for the
// headless crawler and the plain HTTP fetcher.
package useragent

import (
	"crypto/rand"
	"math/big"
	"slices"
	"strings"
	"sync/atomic"
)

// Chromium lists agents a headless Chrome can present without the header
// contradicting its own rendering engine.
var Chromium = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Desktop adds Firefox and Safari agents to Chromium. Use it for plain
// HTTP requests where no engine has to match.
var Desktop = append(slices.Clone(Chromium),
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
)

// Pool hands out agents in rotation or at random. Safe for concurrent use.
type Pool struct {
	agents  []string
	counter atomic.Uint64
}

// NewPool copies agents into a pool, dropping blanks. An empty list falls
// back to Chromium.
func NewPool(agents []string) *Pool {
	cleaned := make([]string, 0, len(agents))
	for _, a := range agents {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	if len(cleaned) == 0 {
		cleaned = slices.Clone(Chromium)
	}
	return &Pool{agents: cleaned}
}

// Next returns agents round-robin.
func (p *Pool) Next() string {
	if len(p.agents) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.agents[idx%uint64(len(p.agents))]
}

// Random returns a uniformly chosen agent.
func (p *Pool) Random() string {
	if len(p.agents) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.agents))))
	if err != nil {
		return p.Next()
	}
	return p.agents[n.Int64()]
}

// Pick returns override when it is set, otherwise a random agent.
func (p *Pool) Pick(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return p.Random()
}

// Len reports the pool size.
func (p *Pool) Len() int { return len(p.agents) }
