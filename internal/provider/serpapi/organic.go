package serpapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/provider"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

// maxOrganicPerCall is the most organic results one google call returns.
const maxOrganicPerCall = 100

type organicResponse struct {
	envelope
	SearchInformation struct {
		TotalResults int64 `json:"total_results"`
	} `json:"search_information"`
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Position      int    `json:"position"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
	Snippet       string `json:"snippet"`
	Thumbnail     string `json:"thumbnail"`
}

func (c *Client) searchWeb(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	items, total, err := c.organic(ctx, query, location, num)
	if err != nil {
		return nil, err
	}
	leads := make([]lead.Lead, 0, len(items))
	for _, r := range items {
		l := lead.Lead{
			Title:    r.Title,
			Link:     r.Link,
			Snippet:  r.Snippet,
			Position: r.Position,
			Source:   lead.SourceWebSearch,
		}
		if r.DisplayedLink != "" || r.Thumbnail != "" {
			l.Web = &lead.Web{DisplayLink: r.DisplayedLink, Thumbnail: r.Thumbnail}
		}
		leads = append(leads, l)
	}
	return lead.NewResult(query, provider.Truncate(leads, num), total), nil
}

func (c *Client) searchFacebook(ctx context.Context, query, location string, num int) (*lead.SearchResult, error) {
	q := query + " site:facebook.com"
	items, total, err := c.organic(ctx, q, location, num)
	if err != nil {
		return nil, err
	}
	var leads []lead.Lead
	for _, r := range items {
		if !provider.IsFacebookURL(r.Link) {
			continue
		}
		leads = append(leads, lead.Lead{
			Title:    r.Title,
			Link:     r.Link,
			Snippet:  r.Snippet,
			Position: r.Position,
			Source:   lead.SourceFacebook,
			Facebook: &lead.Facebook{
				URL:      r.Link,
				PageName: provider.FacebookPageName(r.Link),
			},
		})
	}
	res := lead.NewResult(q, provider.Truncate(leads, num), total)
	res.SearchInfo.Type = provider.FacebookPagesType
	return res, nil
}

// organic pages through the google engine, maxOrganicPerCall at a time,
// and returns the raw results with the last reported total.
func (c *Client) organic(ctx context.Context, q, location string, num int) ([]organicResult, int64, error) {
	if location == "" {
		location = defaultLocation
	}
	var (
		all   []organicResult
		total int64
	)
	for start := 0; start < num; start += maxOrganicPerCall {
		if start > 0 {
			if err := ratelimit.Pause(ctx, c.delay); err != nil {
				return nil, 0, err
			}
		}
		want := min(maxOrganicPerCall, num-start)
		params := url.Values{
			"q":        {q},
			"location": {location},
			"gl":       {country},
			"hl":       {language},
			"num":      {strconv.Itoa(want)},
		}
		if start > 0 {
			params.Set("start", strconv.Itoa(start))
		}

		var page organicResponse
		empty, err := c.call(ctx, "google", params, &page)
		if err != nil {
			return nil, 0, err
		}
		if empty {
			break
		}
		if page.SearchInformation.TotalResults > 0 {
			total = page.SearchInformation.TotalResults
		}
		all = append(all, page.OrganicResults...)
		if len(page.OrganicResults) < want {
			break
		}
	}
	return all, total, nil
}
