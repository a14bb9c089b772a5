// Package provider defines the contract every search backend adapter
// implements, plus helpers the adapters share.
package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
)

// Provider is one search backend. Search is only called with engines for
// which Supports returns true; EngineAll is never passed to an adapter.
type Provider interface {
	Name() string
	Supports(engine lead.Engine) bool
	Search(ctx context.Context, engine lead.Engine, query, location string, num int) (*lead.SearchResult, error)
}

// FacebookPagesType labels facebook searches in SearchInfo.Type.
const FacebookPagesType = "facebook_pages"

var pageNameRe = regexp.MustCompile(`facebook\.com/([^/?#]+)`)

// IsFacebookURL reports whether link points at facebook.com or one of its
// subdomains.
func IsFacebookURL(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "facebook.com" || strings.HasSuffix(host, ".facebook.com")
}

// FacebookPageName returns the first path segment of a facebook URL, or ""
// when there is none.
func FacebookPageName(link string) string {
	if m := pageNameRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// Truncate caps leads at num. A non-positive num keeps everything.
func Truncate(leads []lead.Lead, num int) []lead.Lead {
	if num > 0 && len(leads) > num {
		return leads[:num]
	}
	return leads
}

// Observe records a finished adapter search. Call it deferred with the
// named result and error.
func Observe(name string, engine lead.Engine, start time.Time, res *lead.SearchResult, err error) {
	metrics.RecordProvider(name, string(engine), time.Since(start), err)
	if err != nil || res == nil {
		return
	}
	counts := make(map[lead.Source]int)
	for _, l := range res.Leads {
		counts[l.Source]++
	}
	for source, n := range counts {
		metrics.RecordLeads(string(source), n)
	}
}
