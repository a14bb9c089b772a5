// Package report renders a human-readable summary of a search result.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// Summary aggregates a search result for display.
type Summary struct {
	Query        string
	Location     string
	Provider     string
	Type         string
	TotalLeads   int
	TotalResults int64
	BySource     map[string]int
	WithWebsite  int
	WithPhone    int
	WithEmail    int
	BlockedBy    map[string]int
	Scrape       *lead.ScrapeStats
	Leads        []Row
	GeneratedAt  time.Time
}

// Row is one lead as shown in the report.
type Row struct {
	Title   string
	Website string
	Phones  int
	Emails  int
	Source  string
}

// Summarize builds a Summary from res.
func Summarize(res *lead.SearchResult) Summary {
	s := Summary{
		BySource:    make(map[string]int),
		BlockedBy:   make(map[string]int),
		GeneratedAt: time.Now(),
	}
	if res == nil {
		return s
	}

	s.Query = res.SearchInfo.Query
	s.Location = res.SearchInfo.Location
	s.Provider = res.SearchInfo.Provider
	s.Type = res.SearchInfo.Type
	s.TotalResults = res.SearchInfo.TotalResults
	s.TotalLeads = len(res.Leads)
	s.Scrape = res.Scrape

	for _, l := range res.Leads {
		s.BySource[string(l.Source)]++
		if l.URL() != "" {
			s.WithWebsite++
		}
		phones, emails := 0, 0
		if l.Contacts != nil {
			phones, emails = len(l.Contacts.Phones), len(l.Contacts.Emails)
		}
		if l.Phone != "" || phones > 0 {
			s.WithPhone++
		}
		if emails > 0 {
			s.WithEmail++
		}
		if l.BlockedBy != "" {
			s.BlockedBy[l.BlockedBy]++
		}
		if l.Phone != "" {
			phones++
		}
		s.Leads = append(s.Leads, Row{
			Title:   l.Title,
			Website: l.URL(),
			Phones:  phones,
			Emails:  emails,
			Source:  string(l.Source),
		})
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Lead Search Summary
-------------------
Query:         {{.Query}}
{{- if .Location}}
Location:      {{.Location}}
{{- end}}
Provider:      {{.Provider}}
Leads:         {{.TotalLeads}} (of {{.TotalResults}} reported)
With website:  {{.WithWebsite}}
With phone:    {{.WithPhone}}
With email:    {{.WithEmail}}

Sources:
{{- range $src, $count := .BySource}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
{{- with .Scrape}}

Scrape:        {{.Succeeded}}/{{.Attempted}} succeeded, {{.Failed}} failed, {{.FallbackUsed}} via contact page
Unique phones: {{.UniquePhones}}
Emails:        {{.TotalEmails}}
{{- end}}
{{- if .BlockedBy}}

Bot protection:
{{- range $vendor, $count := .BlockedBy}}
  {{$vendor}}: {{$count}}
{{- end}}
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Lead Report: {{.Query}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Lead Report: {{.Query}}</h1>
  <p><strong>Location:</strong> {{if .Location}}{{.Location}}{{else}}-{{end}} &middot; <strong>Provider:</strong> {{.Provider}} &middot; {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

  <div class="stat-card">
    <div>Leads</div>
    <div class="stat-val">{{.TotalLeads}}</div>
  </div>
  <div class="stat-card">
    <div>With phone</div>
    <div class="stat-val">{{.WithPhone}}</div>
  </div>
  <div class="stat-card">
    <div>With email</div>
    <div class="stat-val">{{.WithEmail}}</div>
  </div>
  {{- with .Scrape}}
  <div class="stat-card">
    <div>Scraped</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Succeeded}}/{{.Attempted}}</div>
  </div>
  {{- end}}

  <h3>Sources</h3>
  <table>
    <tr><th>Source</th><th>Leads</th></tr>
    {{- range $src, $count := .BySource}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Leads</h3>
  <table>
    <tr><th>#</th><th>Title</th><th>Website</th><th>Phones</th><th>Emails</th><th>Source</th></tr>
    {{- range $i, $l := .Leads}}
    <tr><td>{{inc $i}}</td><td>{{$l.Title}}</td><td>{{if $l.Website}}<a href="{{$l.Website}}">{{$l.Website}}</a>{{end}}</td><td>{{$l.Phones}}</td><td>{{$l.Emails}}</td><td>{{$l.Source}}</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer. Lead text
// comes from third-party pages and is escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := htmltemplate.New("htmlReport").
		Funcs(htmltemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
