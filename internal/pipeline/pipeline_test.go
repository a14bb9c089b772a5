package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
)

type stubSearcher struct {
	res  *lead.SearchResult
	err  error
	seen lead.SearchRequest
}

func (s *stubSearcher) Search(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	s.seen = req
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type stubScraper struct {
	urls  []string
	limit int
	pages map[string]*lead.PageData
}

func (s *stubScraper) ScrapeAll(ctx context.Context, urls []string, limit int) []lead.ScrapeOutcome {
	s.urls, s.limit = urls, limit
	out := make([]lead.ScrapeOutcome, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			out = append(out, lead.ScrapeOutcome{URL: u, Error: "no website"})
			continue
		}
		if data, ok := s.pages[u]; ok {
			out = append(out, lead.ScrapeOutcome{URL: u, Success: true, Data: data})
			continue
		}
		out = append(out, lead.ScrapeOutcome{URL: u, Error: "navigate " + u + ": timeout"})
	}
	return out
}

func mapsResult(n int) *lead.SearchResult {
	leads := make([]lead.Lead, n)
	for i := range leads {
		leads[i] = lead.Lead{
			Title:    fmt.Sprintf("Cafe %d", i+1),
			Website:  fmt.Sprintf("https://cafe%d.co.th/", i+1),
			Phone:    "02 123 456" + fmt.Sprint(i),
			Position: i + 1,
			Source:   lead.SourceMaps,
			Place:    &lead.Place{Rating: 4.2},
		}
	}
	return lead.NewResult("cafe", leads, int64(n))
}

func TestRunSearch(t *testing.T) {
	s := &stubSearcher{res: mapsResult(5)}
	p := &Pipeline{Searcher: s}

	res, err := p.RunSearch(context.Background(), lead.SearchRequest{Query: " cafe ", Engine: "maps", Num: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 5 || len(res.Leads) != 5 {
		t.Fatalf("expected 5 leads, got %d", res.Total)
	}
	for _, l := range res.Leads {
		if l.Source != lead.SourceMaps {
			t.Errorf("expected maps source, got %q", l.Source)
		}
	}
	if res.Scrape != nil {
		t.Errorf("expected no scrape stats on a plain search")
	}
	if s.seen.Query != "cafe" || s.seen.ScrapeLimit != lead.DefaultScrapeLimit {
		t.Errorf("expected normalized request, got %+v", s.seen)
	}
}

func TestRunSearch_Errors(t *testing.T) {
	p := &Pipeline{Searcher: &stubSearcher{err: apperr.Upstream("serpapi google", "Invalid API key.", nil)}}
	_, err := p.RunSearch(context.Background(), lead.SearchRequest{Query: "x"})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("expected upstream error through the wrap, got %v", err)
	}

	_, err = p.RunSearch(context.Background(), lead.SearchRequest{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRunSearchAndScrape(t *testing.T) {
	res := mapsResult(4)
	res.Leads[1].Website = ""
	sc := &stubScraper{pages: map[string]*lead.PageData{
		"https://cafe1.co.th/": {
			Title:    "Cafe One Official",
			URL:      "https://cafe1.co.th/",
			Contacts: lead.Contacts{Emails: []string{"hi@cafe1.co.th"}, Phones: []string{"02-123-4560", "081-234-5678"}},
		},
	}}
	p := &Pipeline{Searcher: &stubSearcher{res: res}, Scraper: sc}

	got, err := p.RunSearchAndScrape(context.Background(), lead.SearchRequest{Query: "cafe", Engine: "maps", ScrapeLimit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sc.urls) != 2 || sc.limit != 2 || sc.urls[1] != "" {
		t.Fatalf("expected the first 2 lead urls scraped, got %v", sc.urls)
	}
	if got.Total != 4 {
		t.Fatalf("expected all leads kept, got %d", got.Total)
	}
	first := got.Leads[0]
	if first.Title != "Cafe One Official" || first.Contacts == nil || len(first.Contacts.Emails) != 1 {
		t.Errorf("expected first lead merged, got %+v", first)
	}
	if first.Place == nil || first.Place.Rating != 4.2 {
		t.Errorf("expected provider fields kept")
	}
	if got.Leads[1].Contacts != nil || got.Leads[3].Contacts != nil {
		t.Errorf("expected unscraped leads untouched")
	}

	stats := got.Scrape
	if stats == nil {
		t.Fatal("expected scrape stats")
	}
	if stats.Attempted != 2 || stats.Succeeded != 1 || stats.Failed != 1 || stats.TotalEmails != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	// Four provider phones, one of which the page repeats, plus one mobile.
	if stats.UniquePhones != 5 {
		t.Errorf("expected 5 unique phones, got %d", stats.UniquePhones)
	}
}

func TestRunSearchAndScrape_NoBrowser(t *testing.T) {
	p := &Pipeline{Searcher: &stubSearcher{res: mapsResult(1)}}
	_, err := p.RunSearchAndScrape(context.Background(), lead.SearchRequest{Query: "x"})
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestRun_Dispatch(t *testing.T) {
	sc := &stubScraper{}
	p := &Pipeline{Searcher: &stubSearcher{res: mapsResult(2)}, Scraper: sc}

	res, err := p.Run(context.Background(), lead.SearchRequest{Query: "x"})
	if err != nil || res.Scrape != nil || sc.urls != nil {
		t.Fatalf("expected plain search, got %+v %v", res, err)
	}

	res, err = p.Run(context.Background(), lead.SearchRequest{Query: "x", Scrape: true})
	if err != nil || res.Scrape == nil {
		t.Fatalf("expected scrape stats, got %+v %v", res, err)
	}
}

func TestRunSearch_NilSearcher(t *testing.T) {
	var p Pipeline
	if _, err := p.RunSearch(context.Background(), lead.SearchRequest{Query: "x"}); err == nil {
		t.Errorf("expected error for missing searcher, got %v", err)
	}
}
