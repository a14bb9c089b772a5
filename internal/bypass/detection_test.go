package bypass

import (
	"net/http"
	"testing"
)

func TestCloudflare(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want string
	}{
		{"plain page", Page{Status: 200, Headers: http.Header{"Server": {"nginx"}}, HTML: "OK"}, ""},
		{"server header", Page{Status: 403, Headers: http.Header{"Server": {"cloudflare"}}}, "Cloudflare"},
		{"turnstile body", Page{Status: 503, HTML: "<div class=\"cf-turnstile\"></div>"}, "Cloudflare"},
		{"interstitial at 200", Page{Status: 200, Title: "Just a moment...", HTML: "/cdn-cgi/challenge-platform/h/b"}, "Cloudflare"},
		{"marker on ok page ignored", Page{Status: 200, HTML: "we use cf-turnstile on login"}, ""},
		{"unknown status with marker", Page{HTML: "cf-browser-verification"}, "Cloudflare"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cloudflare(&tt.page); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAkamai(t *testing.T) {
	if got := Akamai(&Page{Status: 403, Headers: http.Header{"Server": {"AkamaiGHost"}}}); got != "Akamai" {
		t.Errorf("expected Akamai by header, got %q", got)
	}
	body := "<h1>Access Denied</h1> Reference #18.abc http://errors.edgesuite.net/18.abc"
	if got := Akamai(&Page{Status: 403, HTML: body}); got != "Akamai" {
		t.Errorf("expected Akamai by body, got %q", got)
	}
	if got := Akamai(&Page{Status: 200, HTML: body}); got != "" {
		t.Errorf("expected no detection on 200, got %q", got)
	}
}

func TestDataDome(t *testing.T) {
	if got := DataDome(&Page{Status: 403, Headers: http.Header{"X-Datadome": {"protected"}}}); got != "DataDome" {
		t.Errorf("expected DataDome by header, got %q", got)
	}
	if got := DataDome(&Page{Status: 403, HTML: "<script src='https://geo.captcha-delivery.com/c.js'>"}); got != "DataDome" {
		t.Errorf("expected DataDome by body, got %q", got)
	}
}

func TestPerimeterX(t *testing.T) {
	if got := PerimeterX(&Page{Status: 403, HTML: "<div id=\"px-captcha\"></div>"}); got != "PerimeterX" {
		t.Errorf("expected PerimeterX, got %q", got)
	}
	if got := PerimeterX(&Page{Status: 429, Headers: http.Header{"X-Px-Captcha": {"1"}}}); got != "PerimeterX" {
		t.Errorf("expected PerimeterX by header, got %q", got)
	}
}

func TestAnalyze(t *testing.T) {
	if got := Analyze(nil, DefaultDetectors()); got != "" {
		t.Errorf("expected nil page ignored")
	}
	p := &Page{Status: 403, HTML: "px-captcha"}
	if got := Analyze(p, DefaultDetectors()); got != "PerimeterX" {
		t.Errorf("expected PerimeterX, got %q", got)
	}
	if got := Analyze(&Page{Status: 200, HTML: "welcome"}, DefaultDetectors()); got != "" {
		t.Errorf("expected clean page, got %q", got)
	}
}
