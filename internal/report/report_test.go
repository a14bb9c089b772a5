package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/FranksOps/leadscout/internal/lead"
)

func sampleResult() *lead.SearchResult {
	res := lead.NewResult("ร้านกาแฟ", []lead.Lead{
		{Title: "Cafe A", Website: "https://a.co.th/", Phone: "02 123 4567", Source: lead.SourceMaps},
		{Title: "Cafe B", Link: "https://b.co.th/", Source: lead.SourceWebSearch,
			Contacts: &lead.Contacts{Emails: []string{"b@b.co.th"}, Phones: []string{"081-234-5678"}}},
		{Title: "<script>alert(1)</script>", Source: lead.SourceMaps, BlockedBy: "Cloudflare"},
	}, 1200)
	res.SearchInfo.Location = "Bangkok"
	res.SearchInfo.Provider = "serpapi"
	res.Scrape = &lead.ScrapeStats{Attempted: 2, Succeeded: 1, Failed: 1, UniquePhones: 2, TotalEmails: 1}
	return res
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult())

	if s.TotalLeads != 3 || s.TotalResults != 1200 {
		t.Errorf("unexpected totals %d/%d", s.TotalLeads, s.TotalResults)
	}
	if s.BySource["google_maps"] != 2 || s.BySource["google_search"] != 1 {
		t.Errorf("unexpected sources %v", s.BySource)
	}
	if s.WithWebsite != 2 || s.WithPhone != 2 || s.WithEmail != 1 {
		t.Errorf("unexpected coverage %d/%d/%d", s.WithWebsite, s.WithPhone, s.WithEmail)
	}
	if s.BlockedBy["Cloudflare"] != 1 {
		t.Errorf("expected 1 Cloudflare block, got %v", s.BlockedBy)
	}
	if len(s.Leads) != 3 || s.Leads[1].Phones != 1 || s.Leads[1].Emails != 1 {
		t.Errorf("unexpected rows %+v", s.Leads)
	}

	empty := Summarize(nil)
	if empty.TotalLeads != 0 || empty.BySource == nil {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summary{TotalLeads: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"TotalLeads": 5`) {
		t.Errorf("expected JSON to contain TotalLeads: 5")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(sampleResult())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Query:         ร้านกาแฟ",
		"Leads:         3 (of 1200 reported)",
		"google_maps: 2",
		"Scrape:        1/2 succeeded, 1 failed",
		"Cloudflare: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteText(&buf, Summary{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "Scrape:") {
		t.Errorf("expected scrape section omitted without stats")
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, Summarize(sampleResult())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<title>Lead Report: ร้านกาแฟ</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, `<a href="https://a.co.th/">`) {
		t.Errorf("expected website link")
	}
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Errorf("expected lead titles escaped")
	}
}
