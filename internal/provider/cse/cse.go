// Package cse adapts the Google Programmable Search (Custom Search JSON)
// API to the provider contract. It answers web and facebook searches only.
package cse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the Custom Search JSON API endpoint.
	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	// Name identifies this provider in metrics and SearchInfo.
	Name = lead.ProviderCustomSearch

	perCall = 10
	// maxResults is the deepest the API pages: start may not exceed 91.
	maxResults = 100

	// nationalLocation is the default scope; it is not added to queries.
	nationalLocation = "Thailand"
)

// Config holds the API key and engine ids. FacebookEngineID is optional;
// without it facebook searches use EngineID with a site: filter.
type Config struct {
	APIKey           string
	EngineID         string
	FacebookEngineID string
	BaseURL          string
	// Delay separates paginated calls. Default 500ms; negative disables it.
	Delay  time.Duration
	Client *httpclient.Client
}

// Client is the Programmable Search adapter.
type Client struct {
	cfg    Config
	http   *httpclient.Client
	logger *slog.Logger
}

// New creates a Client. The API key and engine id are both required.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration("custom search", "GOOGLE_API_KEY is required")
	}
	if strings.TrimSpace(cfg.EngineID) == "" {
		return nil, apperr.Configuration("custom search", "GOOGLE_SEARCH_ENGINE_ID is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Delay == 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	hc := cfg.Client
	if hc == nil {
		var err error
		if hc, err = httpclient.New(httpclient.Config{Timeout: 30 * time.Second}); err != nil {
			return nil, err
		}
	}
	return &Client{cfg: cfg, http: hc, logger: logger}, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Supports implements provider.Provider.
func (c *Client) Supports(engine lead.Engine) bool {
	return engine == lead.EngineWeb || engine == lead.EngineFacebook
}

// Search implements provider.Provider.
func (c *Client) Search(ctx context.Context, engine lead.Engine, query, location string, num int) (res *lead.SearchResult, err error) {
	defer func(start time.Time) { provider.Observe(Name, engine, start, res, err) }(time.Now())

	switch engine {
	case lead.EngineWeb:
		res, err = c.searchWeb(ctx, query, location, num)
	case lead.EngineFacebook:
		res, err = c.searchFacebook(ctx, query, location, num)
	default:
		return nil, apperr.Validation("custom search", fmt.Sprintf("engine %q not supported", engine))
	}
	if err != nil {
		return nil, err
	}
	res.SearchInfo.Provider = Name
	return res, nil
}

type response struct {
	SearchInformation struct {
		// The API reports the count as a decimal string.
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Items []item `json:"items"`
}

type item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
	Pagemap     struct {
		Metatags     []map[string]any `json:"metatags"`
		CSEThumbnail []struct {
			Src string `json:"src"`
		} `json:"cse_thumbnail"`
	} `json:"pagemap"`
}

// metatags flattens the first metatags entry to strings.
func (it item) metatags() map[string]string {
	if len(it.Pagemap.Metatags) == 0 {
		return nil
	}
	out := make(map[string]string, len(it.Pagemap.Metatags[0]))
	for k, v := range it.Pagemap.Metatags[0] {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (it item) thumbnail() string {
	if len(it.Pagemap.CSEThumbnail) == 0 {
		return ""
	}
	return it.Pagemap.CSEThumbnail[0].Src
}

func (c *Client) searchWeb(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	items, total, err := c.fetch(ctx, c.cfg.EngineID, withLocation(query, location), num)
	if err != nil {
		return nil, err
	}
	leads := make([]lead.Lead, 0, len(items))
	for i, it := range items {
		leads = append(leads, lead.Lead{
			Title:    it.Title,
			Link:     it.Link,
			Snippet:  it.Snippet,
			Position: i + 1,
			Source:   lead.SourceCustomSearch,
			Web: &lead.Web{
				DisplayLink: it.DisplayLink,
				Metatags:    it.metatags(),
				Thumbnail:   it.thumbnail(),
			},
		})
	}
	return lead.NewResult(query, provider.Truncate(leads, num), total), nil
}

func (c *Client) searchFacebook(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	cx, q := c.cfg.FacebookEngineID, query
	if cx == "" {
		cx, q = c.cfg.EngineID, query+" site:facebook.com"
	}
	items, total, err := c.fetch(ctx, cx, withLocation(q, location), num)
	if err != nil {
		return nil, err
	}

	var leads []lead.Lead
	for i, it := range items {
		if !provider.IsFacebookURL(it.Link) {
			continue
		}
		fb := &lead.Facebook{
			URL:      it.Link,
			PageName: provider.FacebookPageName(it.Link),
		}
		if meta := it.metatags(); meta != nil {
			fb.PageTitle = first(meta["og:title"], meta["title"])
			fb.Description = first(meta["og:description"], meta["description"])
			fb.Image = meta["og:image"]
		}
		leads = append(leads, lead.Lead{
			Title:    it.Title,
			Link:     it.Link,
			Snippet:  it.Snippet,
			Position: i + 1,
			Source:   lead.SourceCustomFacebook,
			Facebook: fb,
		})
	}
	res := lead.NewResult(query, provider.Truncate(leads, num), total)
	res.SearchInfo.Type = provider.FacebookPagesType
	return res, nil
}

// fetch pages through the API perCall items at a time, stopping at a
// short page or at the API's depth limit.
func (c *Client) fetch(ctx context.Context, cx, q string, num int) ([]item, int64, error) {
	if num > maxResults {
		c.logger.Debug("custom search depth limited", "requested", num, "max", maxResults)
		num = maxResults
	}
	var (
		all   []item
		total int64
	)
	for offset := 0; offset < num; offset += perCall {
		if offset > 0 {
			if err := ratelimit.Pause(ctx, c.cfg.Delay); err != nil {
				return nil, 0, err
			}
		}
		want := min(perCall, num-offset)
		params := url.Values{
			"key":   {c.cfg.APIKey},
			"cx":    {cx},
			"q":     {q},
			"num":   {strconv.Itoa(want)},
			"start": {strconv.Itoa(offset + 1)},
			"gl":    {"th"},
			"hl":    {"en"},
			"safe":  {"off"},
		}

		var page response
		if err := c.http.GetJSON(ctx, "custom search", c.cfg.BaseURL, params, &page); err != nil {
			return nil, 0, err
		}
		if n, err := strconv.ParseInt(page.SearchInformation.TotalResults, 10, 64); err == nil {
			total = n
		}
		all = append(all, page.Items...)
		if len(page.Items) < want {
			break
		}
	}
	return all, total, nil
}

func withLocation(q, location string) string {
	location = strings.TrimSpace(location)
	if location == "" || location == nationalLocation {
		return q
	}
	return q + " " + location
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
