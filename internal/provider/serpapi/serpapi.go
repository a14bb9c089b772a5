// Package serpapi adapts SerpAPI's google, google_maps and google_local
// engines to the provider contract.
package serpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/pkg/httpclient"
)

const (
	// DefaultBaseURL is SerpAPI's JSON search endpoint.
	DefaultBaseURL = "https://serpapi.com/search.json"

	// Name identifies this provider in metrics and SearchInfo.
	Name = lead.ProviderSerpAPI

	googleDomain = "google.co.th"
	country      = "th"
	language     = "en"

	defaultLocation      = "Thailand"
	defaultLocalLocation = "Bangkok, Thailand"

	// SerpAPI answers an otherwise valid search that matched nothing with
	// this error text.
	noResultsMarker = "hasn't returned any results"
)

// Config holds the SerpAPI credentials and pacing. Zero values pick
// defaults.
type Config struct {
	APIKey  string
	BaseURL string
	// Delay separates paginated web, facebook and maps calls. Default
	// 500ms; negative disables it.
	Delay time.Duration
	// LocalDelay separates google_local pages. Default 1s; negative
	// disables it.
	LocalDelay time.Duration
	Client     *httpclient.Client
}

// Client is the SerpAPI adapter. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	delay      time.Duration
	localDelay time.Duration
	http       *httpclient.Client
	logger     *slog.Logger
}

// New creates a Client. A missing API key is a configuration error.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration("serpapi", "SERPAPI_KEY is required")
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
	if cfg.LocalDelay == 0 {
		cfg.LocalDelay = time.Second
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: 60 * time.Second})
		if err != nil {
			return nil, err
		}
		cfg.Client = c
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		delay:      cfg.Delay,
		localDelay: cfg.LocalDelay,
		http:       cfg.Client,
		logger:     logger,
	}, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Supports implements provider.Provider.
func (c *Client) Supports(engine lead.Engine) bool {
	switch engine {
	case lead.EngineWeb, lead.EngineMaps, lead.EngineLocal, lead.EngineFacebook:
		return true
	}
	return false
}

// Search implements provider.Provider.
func (c *Client) Search(ctx context.Context, engine lead.Engine, query, location string, num int) (res *lead.SearchResult, err error) {
	defer func(start time.Time) { provider.Observe(Name, engine, start, res, err) }(time.Now())

	switch engine {
	case lead.EngineWeb:
		res, err = c.searchWeb(ctx, query, location, num)
	case lead.EngineFacebook:
		res, err = c.searchFacebook(ctx, query, location, num)
	case lead.EngineMaps:
		res, err = c.searchMaps(ctx, query, location, num)
	case lead.EngineLocal:
		res, err = c.searchLocal(ctx, query, location, num)
	default:
		return nil, apperr.Validation("serpapi", fmt.Sprintf("engine %q not supported", engine))
	}
	if err != nil {
		return nil, err
	}
	res.SearchInfo.Provider = Name
	return res, nil
}

// envelope is the part of every SerpAPI reply that signals failure.
type envelope struct {
	Error string `json:"error"`
}

func (e envelope) failed() string { return strings.TrimSpace(e.Error) }

// call issues one SerpAPI request for engine and decodes it into out.
// A reply whose error says nothing matched is reported as empty=true
// rather than as a failure.
func (c *Client) call(ctx context.Context, engine string, params url.Values, out interface{ failed() string }) (empty bool, err error) {
	params.Set("engine", engine)
	params.Set("api_key", c.apiKey)
	params.Set("google_domain", googleDomain)

	op := "serpapi " + engine
	if err := c.http.GetJSON(ctx, op, c.baseURL, params, out); err != nil {
		return false, err
	}
	if msg := out.failed(); msg != "" {
		if strings.Contains(msg, noResultsMarker) {
			c.logger.Debug("no results", "engine", engine, "q", params.Get("q"))
			return true, nil
		}
		return false, apperr.Upstream(op, msg, nil)
	}
	return false, nil
}
