package lead

import (
	"maps"
	"slices"

	"github.com/FranksOps/leadscout/internal/phone"
)

// Merge returns l enriched with the scraped page. Scraped values take
// precedence: a non-empty page title replaces Title, and Contacts, Meta,
// PageURL, ScrapedContactPage and BlockedBy come from p. Provider fields
// that the page does not describe (address, phone, place details) are kept.
func (l Lead) Merge(p *PageData) Lead {
	if p == nil {
		return l
	}
	merged := l
	if p.Title != "" {
		merged.Title = p.Title
	}
	merged.PageTitle = p.Title
	merged.PageURL = p.URL
	merged.Contacts = &Contacts{
		Emails:      slices.Clone(p.Contacts.Emails),
		Phones:      slices.Clone(p.Contacts.Phones),
		SocialMedia: slices.Clone(p.Contacts.SocialMedia),
	}
	if len(p.Meta) > 0 {
		merged.Meta = maps.Clone(p.Meta)
	}
	merged.ScrapedContactPage = p.ScrapedContactPage
	merged.BlockedBy = p.BlockedBy
	return merged
}

// MergeAll zips leads with outcomes by position. Leads whose outcome
// succeeded are replaced by their merge; every other lead is returned
// unchanged. Outcomes beyond len(leads) are ignored.
//
// UniquePhones counts distinct normalized numbers over every lead's
// provider phone and every scraped phone. TotalEmails counts scraped
// addresses.
func MergeAll(leads []Lead, outcomes []ScrapeOutcome) ([]Lead, ScrapeStats) {
	out := slices.Clone(leads)
	stats := ScrapeStats{}
	phones := make(map[string]struct{})

	addPhone := func(raw string) {
		if n := phone.Normalize(raw); n != "" {
			phones[n] = struct{}{}
		}
	}

	for i, o := range outcomes {
		if i >= len(out) {
			break
		}
		stats.Attempted++
		if !o.Success || o.Data == nil {
			stats.Failed++
			continue
		}
		stats.Succeeded++
		if o.Data.ScrapedContactPage {
			stats.FallbackUsed++
		}
		out[i] = out[i].Merge(o.Data)
	}

	for _, l := range out {
		addPhone(l.Phone)
		if l.Contacts == nil {
			continue
		}
		for _, p := range l.Contacts.Phones {
			addPhone(p)
		}
		stats.TotalEmails += len(l.Contacts.Emails)
	}
	stats.UniquePhones = len(phones)

	return out, stats
}
