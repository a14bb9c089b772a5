// Package bypass recognizes bot-protection interstitials on crawled pages.
// A hit is only reported; nothing here tries to defeat the protection.
package bypass

import (
	"net/http"
	"strings"
)

// Page is what the crawler saw for one navigation. Status is 0 when the
// browser did not report the main document response.
type Page struct {
	Status  int
	Headers http.Header
	Title   string
	HTML    string
}

// Detector returns the vendor name when p looks like its challenge page,
// otherwise "".
type Detector func(p *Page) string

// DefaultDetectors returns the built-in vendor checks.
func DefaultDetectors() []Detector {
	return []Detector{
		Cloudflare,
		Akamai,
		DataDome,
		PerimeterX,
	}
}

// Analyze runs detectors in order and returns the first vendor reported.
func Analyze(p *Page, detectors []Detector) string {
	if p == nil {
		return ""
	}
	for _, d := range detectors {
		if vendor := d(p); vendor != "" {
			return vendor
		}
	}
	return ""
}

// challenged reports whether the status is one a block page is served with.
// An unknown status counts, since a rendered page may hide it.
func challenged(status int) bool {
	switch status {
	case 0, http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func header(p *Page, key string) string {
	if p.Headers == nil {
		return ""
	}
	return strings.ToLower(p.Headers.Get(key))
}

func bodyHas(p *Page, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(p.HTML, m) {
			return true
		}
	}
	return false
}

// Cloudflare matches the "Just a moment" interstitial at any status, and
// server header or challenge markup on block statuses.
func Cloudflare(p *Page) string {
	if strings.EqualFold(strings.TrimSpace(p.Title), "Just a moment...") && bodyHas(p, "challenge-platform") {
		return "Cloudflare"
	}
	if !challenged(p.Status) {
		return ""
	}
	if p.Status != 0 && strings.Contains(header(p, "Server"), "cloudflare") {
		return "Cloudflare"
	}
	if bodyHas(p, "cf-browser-verification", "cf-turnstile", "Attention Required! | Cloudflare") {
		return "Cloudflare"
	}
	return ""
}

// Akamai matches Bot Manager denials.
func Akamai(p *Page) string {
	if p.Status != http.StatusForbidden && p.Status != 0 {
		return ""
	}
	if p.Status != 0 && strings.Contains(header(p, "Server"), "akamai") {
		return "Akamai"
	}
	if bodyHas(p, "Access Denied") && bodyHas(p, "Reference #") && bodyHas(p, "edgesuite.net", "errors.edgesuite") {
		return "Akamai"
	}
	return ""
}

// DataDome matches its captcha delivery page.
func DataDome(p *Page) string {
	if !challenged(p.Status) {
		return ""
	}
	if header(p, "X-DataDome") != "" || header(p, "X-DataDome-Response") != "" {
		return "DataDome"
	}
	if bodyHas(p, "geo.captcha-delivery.com", "ct.captcha-delivery.com") {
		return "DataDome"
	}
	return ""
}

// PerimeterX matches HUMAN (PerimeterX) block pages.
func PerimeterX(p *Page) string {
	if !challenged(p.Status) {
		return ""
	}
	if header(p, "X-Px-Captcha") != "" {
		return "PerimeterX"
	}
	if bodyHas(p, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return "PerimeterX"
	}
	return ""
}
