package lead

import (
	"reflect"
	"testing"
)

func TestLead_Merge_ScrapedWins(t *testing.T) {
	original := Lead{
		Title:   "Cafe Amazon",
		Website: "https://cafe.example",
		Address: "Sukhumvit 11",
		Phone:   "02 123 4567",
		Source:  SourceMaps,
		Place:   &Place{Rating: 4.5, Reviews: 120},
	}
	page := &PageData{
		Title: "Cafe Amazon | Home",
		URL:   "https://cafe.example/",
		Contacts: Contacts{
			Emails: []string{"hello@cafe.example"},
			Phones: []string{"081-234-5678"},
		},
		Meta:               map[string]string{"og:title": "Cafe Amazon"},
		ScrapedContactPage: true,
	}

	merged := original.Merge(page)

	if merged.Title != "Cafe Amazon | Home" {
		t.Errorf("expected scraped title to win, got %q", merged.Title)
	}
	if merged.Address != "Sukhumvit 11" || merged.Phone != "02 123 4567" {
		t.Errorf("expected provider fields kept, got %+v", merged)
	}
	if merged.Place == nil || merged.Place.Rating != 4.5 {
		t.Errorf("expected place payload kept")
	}
	if merged.Contacts == nil || !reflect.DeepEqual(merged.Contacts.Emails, []string{"hello@cafe.example"}) {
		t.Errorf("expected scraped contacts, got %+v", merged.Contacts)
	}
	if merged.PageURL != "https://cafe.example/" || !merged.ScrapedContactPage {
		t.Errorf("expected page url and fallback flag, got %+v", merged)
	}
	if original.Contacts != nil {
		t.Errorf("merge must not mutate the original lead")
	}

	// An empty scraped title does not erase the business name.
	kept := original.Merge(&PageData{URL: "https://cafe.example/"})
	if kept.Title != "Cafe Amazon" {
		t.Errorf("expected title kept when page has none, got %q", kept.Title)
	}
}

func TestMergeAll_PositionAlignedAndCounts(t *testing.T) {
	leads := []Lead{
		{Title: "A", Phone: "+66 81 234 5678", Source: SourceMaps},
		{Title: "B", Phone: "02-111-2222", Source: SourceMaps},
		{Title: "C", Source: SourceMaps},
	}
	outcomes := []ScrapeOutcome{
		{URL: "https://a.example", Success: true, Data: &PageData{
			Title: "A site",
			Contacts: Contacts{
				Emails: []string{"a@a.example", "sales@a.example"},
				Phones: []string{"081-234-5678", "053-123-456"},
			},
		}},
		{URL: "https://b.example", Success: false, Error: "navigation timeout"},
	}

	merged, stats := MergeAll(leads, outcomes)

	if len(merged) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(merged))
	}
	if merged[0].Contacts == nil || merged[0].Title != "A site" {
		t.Errorf("expected first lead merged, got %+v", merged[0])
	}
	if merged[1].Contacts != nil || merged[1].Title != "B" {
		t.Errorf("expected failed lead unchanged, got %+v", merged[1])
	}
	if merged[2].Contacts != nil {
		t.Errorf("expected unscraped lead unchanged")
	}

	if stats.Attempted != 2 || stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("unexpected outcome counts: %+v", stats)
	}
	// +66 81 234 5678 and 081-234-5678 collapse; 02-111-2222 and 053-123-456 are distinct.
	if stats.UniquePhones != 3 {
		t.Errorf("expected 3 unique phones, got %d", stats.UniquePhones)
	}
	if stats.TotalEmails != 2 {
		t.Errorf("expected 2 emails, got %d", stats.TotalEmails)
	}
}

func TestMergeAll_IgnoresExtraOutcomes(t *testing.T) {
	leads := []Lead{{Title: "only", Source: SourceWebSearch}}
	outcomes := []ScrapeOutcome{
		{Success: true, Data: &PageData{Title: "one"}},
		{Success: true, Data: &PageData{Title: "two"}},
	}
	merged, stats := MergeAll(leads, outcomes)
	if len(merged) != 1 || merged[0].Title != "one" {
		t.Errorf("unexpected merge: %+v", merged)
	}
	if stats.Attempted != 1 {
		t.Errorf("expected only aligned outcomes counted, got %d", stats.Attempted)
	}
}
