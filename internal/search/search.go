// Package search routes a request to the right provider adapters: it picks
// the provider, fans engine=all out across the primary adapters, and
// expands the nationwide location into a fixed set of cities.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

// NationwideLabel replaces the location of a nationwide result.
const NationwideLabel = "Thailand (8 cities)"

// Cities are searched in this order for a nationwide request.
var Cities = []string{
	"Bangkok, Thailand",
	"Chiang Mai, Thailand",
	"Phuket, Thailand",
	"Khon Kaen, Thailand",
	"Chon Buri, Thailand",
	"Nakhon Ratchasima, Thailand",
	"Songkhla, Thailand",
	"Udon Thani, Thailand",
}

// allEngines is the fan-out order for engine=all, and the order the
// leads are concatenated in. key names the per-source breakdown entry.
var allEngines = []struct {
	engine lead.Engine
	key    string
}{
	{lead.EngineLocal, "local"},
	{lead.EngineMaps, "maps"},
	{lead.EngineFacebook, "facebook"},
	{lead.EngineWeb, "google"},
}

// IsNationwide reports whether location asks for the whole country.
func IsNationwide(location string) bool {
	l := strings.TrimSpace(location)
	return strings.EqualFold(l, "nationwide") || l == "ทั่วประเทศไทย"
}

// Config tunes the aggregator. Zero values pick defaults.
type Config struct {
	// CityDelay separates nationwide city searches. Default 500ms;
	// negative disables it.
	CityDelay time.Duration
}

// Aggregator dispatches search requests. Either provider may be nil when
// its credentials are missing; selecting it is then a configuration error.
type Aggregator struct {
	primary   provider.Provider
	secondary provider.Provider
	cityDelay time.Duration
	logger    *slog.Logger
}

// New creates an Aggregator over the primary (SerpAPI) and secondary
// (Programmable Search) providers.
func New(primary, secondary provider.Provider, cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CityDelay == 0 {
		cfg.CityDelay = 500 * time.Millisecond
	}
	return &Aggregator{
		primary:   primary,
		secondary: secondary,
		cityDelay: cfg.CityDelay,
		logger:    logger,
	}
}

// Search runs req and returns the merged result. req is normalized first;
// malformed requests fail with a validation error.
func (a *Aggregator) Search(ctx context.Context, req lead.SearchRequest) (*lead.SearchResult, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	p, err := a.choose(req.Provider, req.Engine)
	if err != nil {
		return nil, err
	}

	a.logger.Info("searching",
		"query", req.Query,
		"location", req.Location,
		"engine", req.Engine,
		"provider", p.Name(),
		"num", req.Num,
	)

	if IsNationwide(req.Location) {
		return a.nationwide(ctx, p, req.Engine, req.Query, req.Num)
	}
	return a.run(ctx, p, req.Engine, req.Query, req.Location, req.Num)
}

// choose resolves the provider selector. The secondary provider only
// answers engines it supports; anything else falls back to the primary.
func (a *Aggregator) choose(selector string, engine lead.Engine) (provider.Provider, error) {
	if selector == lead.ProviderCustomSearch {
		if engine != lead.EngineAll && a.secondary != nil && a.secondary.Supports(engine) {
			return a.secondary, nil
		}
		if a.secondary == nil && (engine == lead.EngineWeb || engine == lead.EngineFacebook) {
			return nil, apperr.Configuration("search", "google custom search is not configured")
		}
		a.logger.Info("custom search cannot answer engine, using primary provider", "engine", engine)
	}
	if a.primary == nil {
		return nil, apperr.Configuration("search", "serpapi is not configured")
	}
	return a.primary, nil
}

// run answers a single location.
func (a *Aggregator) run(ctx context.Context, p provider.Provider, engine lead.Engine, query, location string, num int) (*lead.SearchResult, error) {
	if engine == lead.EngineAll {
		return a.all(ctx, p, query, location, num)
	}
	if !p.Supports(engine) {
		return nil, apperr.Validation("search", fmt.Sprintf("provider %s does not support engine %q", p.Name(), engine))
	}
	res, err := p.Search(ctx, engine, query, location, num)
	if err != nil {
		return nil, err
	}
	if res.SearchInfo.Location == "" {
		res.SearchInfo.Location = location
	}
	return res, nil
}

// all queries every engine of p concurrently, each for num leads. An
// engine that fails contributes nothing; only cancellation fails the call.
func (a *Aggregator) all(ctx context.Context, p provider.Provider, query, location string, num int) (*lead.SearchResult, error) {
	results := make([]*lead.SearchResult, len(allEngines))

	var g errgroup.Group
	for i, e := range allEngines {
		if !p.Supports(e.engine) {
			continue
		}
		g.Go(func() error {
			res, err := p.Search(ctx, e.engine, query, location, num)
			if err != nil {
				a.logger.Warn("engine failed", "engine", e.engine, "provider", p.Name(), "err", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		leads   []lead.Lead
		total   int64
		sources = make(map[string]int, len(allEngines))
	)
	for i, e := range allEngines {
		res := results[i]
		if res == nil {
			sources[e.key] = 0
			continue
		}
		leads = append(leads, res.Leads...)
		total += res.SearchInfo.TotalResults
		sources[e.key] = len(res.Leads)
	}

	out := lead.NewResult(query, leads, total)
	out.SearchInfo.Sources = sources
	out.SearchInfo.Location = location
	out.SearchInfo.Provider = p.Name()
	return out, nil
}

// nationwide runs the engine once per city with ceil(num/8) each. A
// failing city contributes nothing. Single-engine results are cut back to
// num; engine=all keeps its per-engine quota as it does for one location.
func (a *Aggregator) nationwide(ctx context.Context, p provider.Provider, engine lead.Engine, query string, num int) (*lead.SearchResult, error) {
	perCity := (num + len(Cities) - 1) / len(Cities)

	var (
		leads   []lead.Lead
		total   int64
		sources map[string]int
		kind    string
	)
	if engine == lead.EngineAll {
		sources = make(map[string]int, len(allEngines))
		for _, e := range allEngines {
			sources[e.key] = 0
		}
	}

	for i, city := range Cities {
		if i > 0 {
			if err := ratelimit.Pause(ctx, a.cityDelay); err != nil {
				return nil, err
			}
		}
		res, err := a.run(ctx, p, engine, query, city, perCity)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("city search failed", "city", city, "engine", engine, "err", err)
			continue
		}
		a.logger.Debug("city searched", "city", city, "leads", len(res.Leads))
		leads = append(leads, res.Leads...)
		total += res.SearchInfo.TotalResults
		for k, n := range res.SearchInfo.Sources {
			if sources != nil {
				sources[k] += n
			}
		}
		if res.SearchInfo.Type != "" {
			kind = res.SearchInfo.Type
		}
	}

	if engine != lead.EngineAll {
		leads = provider.Truncate(leads, num)
	}
	out := lead.NewResult(query, leads, total)
	out.SearchInfo.Location = NationwideLabel
	out.SearchInfo.Sources = sources
	out.SearchInfo.Type = kind
	out.SearchInfo.Provider = p.Name()
	return out, nil
}
