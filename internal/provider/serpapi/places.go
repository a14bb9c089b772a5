package serpapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

const (
	// bangkokViewport centres maps searches on Bangkok.
	bangkokViewport = "@13.7563309,100.5017651,14z"

	localPageSize = 20
	localMaxPages = 10
	// localFullPage is the smallest page that suggests another one exists.
	localFullPage = 15
)

type placeResult struct {
	Position       int             `json:"position"`
	Title          string          `json:"title"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	Website        string          `json:"website"`
	Link           string          `json:"link"`
	Rating         float64         `json:"rating"`
	Reviews        int             `json:"reviews"`
	Type           string          `json:"type"`
	Price          string          `json:"price"`
	Hours          string          `json:"hours"`
	Description    string          `json:"description"`
	ServiceOptions map[string]bool `json:"service_options"`
	GPS            *lead.GPS       `json:"gps_coordinates"`
	PlaceID        string          `json:"place_id"`
	DataID         string          `json:"data_id"`
	Thumbnail      string          `json:"thumbnail"`
}

func (r placeResult) place() *lead.Place {
	return &lead.Place{
		Rating:         r.Rating,
		Reviews:        r.Reviews,
		Type:           r.Type,
		Price:          r.Price,
		Hours:          r.Hours,
		Description:    r.Description,
		ServiceOptions: r.ServiceOptions,
		GPS:            r.GPS,
		PlaceID:        r.PlaceID,
		DataID:         r.DataID,
		Thumbnail:      r.Thumbnail,
	}
}

type mapsResponse struct {
	envelope
	LocalResults []placeResult `json:"local_results"`
	Pagination   struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

type localResponse struct {
	envelope
	LocalResults       []placeResult `json:"local_results"`
	InlineLocalResults []placeResult `json:"inline_local_results"`
}

func (c *Client) searchMaps(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	q := query
	if location != "" {
		q = query + " " + location
	}

	var (
		leads []lead.Lead
		token string
	)
	for len(leads) < num {
		params := url.Values{
			"q":    {q},
			"ll":   {bangkokViewport},
			"type": {"search"},
			"hl":   {language},
		}
		if token != "" {
			params.Set("next_page_token", token)
		}

		var page mapsResponse
		empty, err := c.call(ctx, "google_maps", params, &page)
		if err != nil {
			return nil, err
		}
		if empty || len(page.LocalResults) == 0 {
			break
		}
		for _, r := range page.LocalResults {
			leads = append(leads, lead.Lead{
				Title:    r.Title,
				Address:  r.Address,
				Phone:    r.Phone,
				Website:  r.Website,
				Position: r.Position,
				Source:   lead.SourceMaps,
				Place:    r.place(),
			})
		}

		token = page.Pagination.NextPageToken
		if token == "" || len(leads) >= num {
			break
		}
		if err := ratelimit.Pause(ctx, c.delay); err != nil {
			return nil, err
		}
	}

	leads = provider.Truncate(leads, num)
	res := lead.NewResult(q, leads, int64(len(leads)))
	res.SearchInfo.Location = location
	return res, nil
}

func (c *Client) searchLocal(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	if strings.TrimSpace(location) == "" {
		location = defaultLocalLocation
	}
	pages := min((num+localPageSize-1)/localPageSize, localMaxPages)

	var leads []lead.Lead
	for p := 0; p < pages; p++ {
		if p > 0 {
			if err := ratelimit.Pause(ctx, c.localDelay); err != nil {
				return nil, err
			}
		}
		params := url.Values{
			"q":        {query},
			"location": {location},
			"hl":       {language},
			"gl":       {country},
		}
		if p > 0 {
			params.Set("start", strconv.Itoa(p*localPageSize))
		}

		var page localResponse
		empty, err := c.call(ctx, "google_local", params, &page)
		if err != nil {
			return nil, err
		}
		if empty {
			break
		}

		got := 0
		for _, r := range page.LocalResults {
			website := r.Website
			if website == "" {
				website = r.Link
			}
			leads = append(leads, lead.Lead{
				Title:    r.Title,
				Address:  r.Address,
				Phone:    r.Phone,
				Website:  website,
				Position: r.Position,
				Source:   lead.SourceLocal,
				Place:    r.place(),
			})
			got++
		}
		for _, r := range page.InlineLocalResults {
			leads = append(leads, lead.Lead{
				Title:    r.Title,
				Address:  r.Address,
				Phone:    r.Phone,
				Website:  r.Website,
				Position: r.Position,
				Source:   lead.SourceLocalInline,
				Place:    r.place(),
			})
			got++
		}
		if got < localFullPage {
			break
		}
	}

	leads = provider.Truncate(leads, num)
	res := lead.NewResult(query, leads, int64(len(leads)))
	res.SearchInfo.Location = location
	return res, nil
}
