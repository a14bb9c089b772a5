package cse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
)

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	if cfg.APIKey == "" {
		cfg.APIKey = "gkey"
	}
	if cfg.EngineID == "" {
		cfg.EngineID = "cx-web"
	}
	cfg.BaseURL = ts.URL
	cfg.Delay = -1
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

type capture struct {
	mu      sync.Mutex
	queries []url.Values
}

func (c *capture) handler(page func(q url.Values) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.queries = append(c.queries, r.URL.Query())
		c.mu.Unlock()
		_ = json.NewEncoder(w).Encode(page(r.URL.Query()))
	}
}

func items(start, n int, link func(i int) string) map[string]any {
	out := make([]map[string]any, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, map[string]any{
			"title":       fmt.Sprintf("Item %d", i),
			"link":        link(i),
			"displayLink": "site.co.th",
			"snippet":     "snippet",
			"pagemap": map[string]any{
				"metatags":      []map[string]any{{"og:title": fmt.Sprintf("OG %d", i), "og:image": "https://img/x.png", "viewport": "width=device-width"}},
				"cse_thumbnail": []map[string]any{{"src": "https://thumb/x.png"}},
			},
		})
	}
	return map[string]any{
		"searchInformation": map[string]any{"totalResults": "4210"},
		"items":             out,
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	for _, cfg := range []Config{{}, {APIKey: "k"}, {EngineID: "cx"}} {
		if _, err := New(cfg, nil); !apperr.Is(err, apperr.KindConfiguration) {
			t.Errorf("expected configuration error for %+v, got %v", cfg, err)
		}
	}
}

func TestSearchWeb(t *testing.T) {
	var rec capture
	c := newTestClient(t, Config{}, rec.handler(func(q url.Values) any {
		start, _ := strconv.Atoi(q.Get("start"))
		n, _ := strconv.Atoi(q.Get("num"))
		return items(start-1, n, func(i int) string { return fmt.Sprintf("https://site%d.co.th/", i) })
	}))

	res, err := c.Search(context.Background(), lead.EngineWeb, "dentist", "Phuket", 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 25 || res.SearchInfo.TotalResults != 4210 || res.SearchInfo.Provider != Name {
		t.Fatalf("unexpected result %d %+v", res.Total, res.SearchInfo)
	}
	if len(rec.queries) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(rec.queries))
	}
	for i, want := range []struct{ start, num string }{{"1", "10"}, {"11", "10"}, {"21", "5"}} {
		q := rec.queries[i]
		if q.Get("start") != want.start || q.Get("num") != want.num {
			t.Errorf("call %d: expected start=%s num=%s, got %v", i, want.start, want.num, q)
		}
	}
	q := rec.queries[0]
	if q.Get("q") != "dentist Phuket" || q.Get("cx") != "cx-web" || q.Get("key") != "gkey" || q.Get("gl") != "th" {
		t.Errorf("unexpected params %v", q)
	}

	l := res.Leads[12]
	if l.Source != lead.SourceCustomSearch || l.Position != 13 || l.Web == nil {
		t.Fatalf("unexpected lead %+v", l)
	}
	if l.Web.DisplayLink != "site.co.th" || l.Web.Thumbnail != "https://thumb/x.png" || l.Web.Metatags["og:title"] != "OG 12" {
		t.Errorf("unexpected web fields %+v", l.Web)
	}
}

func TestSearchWeb_NationalLocationNotAppended(t *testing.T) {
	var rec capture
	c := newTestClient(t, Config{}, rec.handler(func(q url.Values) any {
		return items(0, 3, func(i int) string { return "https://a.co.th/" })
	}))
	for _, loc := range []string{"", "Thailand"} {
		if _, err := c.Search(context.Background(), lead.EngineWeb, "dentist", loc, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, q := range rec.queries {
		if q.Get("q") != "dentist" {
			t.Errorf("expected bare query, got %q", q.Get("q"))
		}
	}
	if len(rec.queries) != 2 {
		t.Errorf("expected short pages to stop paging, got %d calls", len(rec.queries))
	}
}

func TestSearchWeb_DepthLimit(t *testing.T) {
	var rec capture
	c := newTestClient(t, Config{}, rec.handler(func(q url.Values) any {
		n, _ := strconv.Atoi(q.Get("num"))
		return items(0, n, func(i int) string { return "https://a.co.th/" })
	}))
	res, err := c.Search(context.Background(), lead.EngineWeb, "q", "", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.queries) != 10 || res.Total != 100 {
		t.Errorf("expected 10 calls and 100 leads, got %d and %d", len(rec.queries), res.Total)
	}
	if last := rec.queries[9].Get("start"); last != "91" {
		t.Errorf("expected last start 91, got %s", last)
	}
}

func TestSearchFacebook(t *testing.T) {
	links := []string{"https://www.facebook.com/bkkbakery", "https://bkkbakery.co.th/", "https://m.facebook.com/another.page/?ref=x"}
	page := func(q url.Values) any {
		return items(0, len(links), func(i int) string { return links[i] })
	}

	t.Run("site filter", func(t *testing.T) {
		var rec capture
		c := newTestClient(t, Config{}, rec.handler(page))
		res, err := c.Search(context.Background(), lead.EngineFacebook, "bakery", "", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q := rec.queries[0]; q.Get("q") != "bakery site:facebook.com" || q.Get("cx") != "cx-web" {
			t.Errorf("unexpected params %v", q)
		}
		if res.Total != 2 || res.SearchInfo.Type != "facebook_pages" {
			t.Fatalf("expected 2 facebook leads, got %d", res.Total)
		}
		fb := res.Leads[1]
		if fb.Source != lead.SourceCustomFacebook || fb.Position != 3 || fb.Facebook.PageName != "another.page" {
			t.Errorf("unexpected lead %+v %+v", fb, fb.Facebook)
		}
		if fb.Facebook.PageTitle != "OG 2" || fb.Facebook.Image != "https://img/x.png" {
			t.Errorf("expected og metadata, got %+v", fb.Facebook)
		}
	})

	t.Run("dedicated engine", func(t *testing.T) {
		var rec capture
		c := newTestClient(t, Config{FacebookEngineID: "cx-fb"}, rec.handler(page))
		if _, err := c.Search(context.Background(), lead.EngineFacebook, "bakery", "Chiang Mai", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q := rec.queries[0]; q.Get("q") != "bakery Chiang Mai" || q.Get("cx") != "cx-fb" {
			t.Errorf("unexpected params %v", q)
		}
	})
}

func TestSearch_UpstreamError(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Requests to this API are blocked."}}`))
	})
	_, err := c.Search(context.Background(), lead.EngineWeb, "q", "", 10)
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.KindUpstream || e.Message != "Requests to this API are blocked." {
		t.Fatalf("expected upstream error with message, got %v", err)
	}
}

func TestSupports(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {})
	for engine, want := range map[lead.Engine]bool{
		lead.EngineWeb: true, lead.EngineFacebook: true,
		lead.EngineMaps: false, lead.EngineLocal: false, lead.EngineAll: false,
	} {
		if got := c.Supports(engine); got != want {
			t.Errorf("Supports(%s) = %v, expected %v", engine, got, want)
		}
	}
	if _, err := c.Search(context.Background(), lead.EngineMaps, "q", "", 10); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
