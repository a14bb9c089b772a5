// Package lead defines the records that flow through a search: the request,
// the normalized Lead, the per-URL scrape outcome and the result returned to
// callers.
package lead

import (
	"fmt"
	"strings"

	"github.com/FranksOps/leadscout/internal/apperr"
)

// Source identifies the adapter that produced a Lead. The string values
// are part of the wire format.
type Source string

const (
	SourceWebSearch      Source = "google_search"
	SourceMaps           Source = "google_maps"
	SourceLocal          Source = "google_local"
	SourceLocalInline    Source = "google_local_inline"
	SourceFacebook       Source = "google_facebook"
	SourceCustomSearch   Source = "google_custom_search"
	SourceCustomFacebook Source = "google_custom_facebook"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceWebSearch, SourceMaps, SourceLocal, SourceLocalInline,
		SourceFacebook, SourceCustomSearch, SourceCustomFacebook:
		return true
	}
	return false
}

// Engine is the category of search requested.
type Engine string

const (
	EngineWeb      Engine = "web"
	EngineMaps     Engine = "maps"
	EngineLocal    Engine = "local"
	EngineFacebook Engine = "facebook"
	EngineAll      Engine = "all"
)

// ParseEngine accepts the engine names used by the web UI, including the
// legacy "google" alias for web search.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "web", "google":
		return EngineWeb, nil
	case "maps":
		return EngineMaps, nil
	case "local":
		return EngineLocal, nil
	case "facebook":
		return EngineFacebook, nil
	case "all":
		return EngineAll, nil
	}
	return "", apperr.Validation("parse engine", fmt.Sprintf("unknown engine %q", s))
}

// Provider selectors.
const (
	ProviderSerpAPI      = "serpapi"
	ProviderCustomSearch = "google-custom"
)

// ParseProvider maps a selector to ProviderSerpAPI or ProviderCustomSearch.
func ParseProvider(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ProviderSerpAPI:
		return ProviderSerpAPI, nil
	case ProviderCustomSearch, "cse", "google_custom":
		return ProviderCustomSearch, nil
	}
	return "", apperr.Validation("parse provider", fmt.Sprintf("unknown search provider %q", s))
}

// GPS is a coordinate pair as reported by the maps and local backends.
type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place carries the fields only maps and local results have.
type Place struct {
	Rating         float64         `json:"rating,omitempty"`
	Reviews        int             `json:"reviews,omitempty"`
	Type           string          `json:"type,omitempty"`
	Price          string          `json:"price,omitempty"`
	Hours          string          `json:"hours,omitempty"`
	Description    string          `json:"description,omitempty"`
	ServiceOptions map[string]bool `json:"serviceOptions,omitempty"`
	GPS            *GPS            `json:"gpsCoordinates,omitempty"`
	PlaceID        string          `json:"placeId,omitempty"`
	DataID         string          `json:"dataId,omitempty"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
}

// Web carries the fields only organic web results have.
type Web struct {
	DisplayLink string            `json:"displayLink,omitempty"`
	Metatags    map[string]string `json:"metatags,omitempty"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
}

// Facebook carries the fields of a facebook page result.
type Facebook struct {
	URL         string `json:"facebookUrl"`
	PageName    string `json:"pageName,omitempty"`
	PageTitle   string `json:"pageTitle,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Contacts holds scraped contact details. Every slice is deduplicated and
// sorted.
type Contacts struct {
	Emails      []string `json:"emails"`
	Phones      []string `json:"phones"`
	SocialMedia []string `json:"socialMedia"`
}

// HasDirect reports whether at least one email or phone was found.
func (c *Contacts) HasDirect() bool {
	return c != nil && (len(c.Emails) > 0 || len(c.Phones) > 0)
}

// Lead is one discovered business. The shared fields are always present
// when the backend provides them; at most one of Place, Web and Facebook is
// set, chosen by Source.
type Lead struct {
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Website  string `json:"website,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Position int    `json:"position,omitempty"`
	Source   Source `json:"source"`

	Place    *Place    `json:"place,omitempty"`
	Web      *Web      `json:"web,omitempty"`
	Facebook *Facebook `json:"facebook,omitempty"`

	// Populated by Merge only.
	Contacts           *Contacts         `json:"contacts,omitempty"`
	PageTitle          string            `json:"pageTitle,omitempty"`
	PageURL            string            `json:"pageUrl,omitempty"`
	Meta               map[string]string `json:"meta,omitempty"`
	ScrapedContactPage bool              `json:"scrapedContactPage,omitempty"`
	BlockedBy          string            `json:"blockedBy,omitempty"`
}

// URL returns the address a scrape should start from: the business website
// when known, otherwise the result link.
func (l Lead) URL() string {
	if l.Website != "" {
		return l.Website
	}
	return l.Link
}

// SearchRequest is the caller's query.
type SearchRequest struct {
	Query       string `json:"query"`
	Location    string `json:"location,omitempty"`
	Num         int    `json:"num,omitempty"`
	Engine      Engine `json:"engine,omitempty"`
	Provider    string `json:"searchProvider,omitempty"`
	Scrape      bool   `json:"scrapeResults,omitempty"`
	ScrapeLimit int    `json:"scrapeLimit,omitempty"`
}

const (
	DefaultNum         = 10
	DefaultScrapeLimit = 10
)

// Normalize validates r and fills defaults in place.
func (r *SearchRequest) Normalize() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return apperr.Validation("search request", "query is required")
	}
	r.Location = strings.TrimSpace(r.Location)

	engine, err := ParseEngine(string(r.Engine))
	if err != nil {
		return err
	}
	r.Engine = engine

	provider, err := ParseProvider(r.Provider)
	if err != nil {
		return err
	}
	r.Provider = provider

	if r.Num <= 0 {
		r.Num = DefaultNum
	}
	if r.ScrapeLimit <= 0 {
		r.ScrapeLimit = DefaultScrapeLimit
	}
	return nil
}

// SearchInfo summarizes where a result came from.
type SearchInfo struct {
	Query        string         `json:"query"`
	TotalResults int64          `json:"totalResults"`
	Sources      map[string]int `json:"sources,omitempty"`
	Location     string         `json:"location,omitempty"`
	Type         string         `json:"type,omitempty"`
	Provider     string         `json:"provider,omitempty"`
}

// ScrapeStats is reported once per scraped result set.
type ScrapeStats struct {
	Attempted    int `json:"attempted"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	FallbackUsed int `json:"fallbackUsed"`
	UniquePhones int `json:"uniquePhones"`
	TotalEmails  int `json:"totalEmails"`
}

// SearchResult is returned by every search. Total always equals len(Leads).
type SearchResult struct {
	Leads      []Lead       `json:"leads"`
	Total      int          `json:"total"`
	SearchInfo SearchInfo   `json:"searchInfo"`
	Scrape     *ScrapeStats `json:"scrape,omitempty"`
}

// NewResult builds a result for leads, keeping Total in sync.
func NewResult(query string, leads []Lead, totalResults int64) *SearchResult {
	if leads == nil {
		leads = []Lead{}
	}
	return &SearchResult{
		Leads: leads,
		Total: len(leads),
		SearchInfo: SearchInfo{
			Query:        query,
			TotalResults: totalResults,
		},
	}
}

// SetLeads replaces the lead list and updates Total.
func (r *SearchResult) SetLeads(leads []Lead) {
	if leads == nil {
		leads = []Lead{}
	}
	r.Leads = leads
	r.Total = len(leads)
}

// PageData is what a crawl of one website yields.
type PageData struct {
	Title              string            `json:"title"`
	URL                string            `json:"url"`
	Contacts           Contacts          `json:"contacts"`
	Meta               map[string]string `json:"meta,omitempty"`
	ContactPageLinks   []string          `json:"contactPageLinks,omitempty"`
	ScrapedContactPage bool              `json:"scrapedContactPage,omitempty"`
	BlockedBy          string            `json:"blockedBy,omitempty"`
}

// ScrapeOutcome is the per-URL result of a batch scrape. Outcomes are
// aligned by index with the URLs that were submitted.
type ScrapeOutcome struct {
	URL     string    `json:"url"`
	Success bool      `json:"success"`
	Data    *PageData `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}
