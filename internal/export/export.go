// Package export writes search results in the file formats the web UI
// offered for download: CSV, Excel, plain phone and email lists, plus JSON
// and NDJSON for piping.
package export

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/phone"
	"github.com/FranksOps/leadscout/internal/report"
)

// bom makes Excel open UTF-8 text with Thai characters correctly.
const bom = "\uFEFF"

// Format names an output format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatText   Format = "text"
	FormatHTML   Format = "html"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatPhones Format = "phones"
	FormatEmails Format = "emails"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatNDJSON, FormatText, FormatHTML, FormatCSV, FormatXLSX, FormatPhones, FormatEmails}

// ParseFormat validates s. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	if !slices.Contains(Formats, f) {
		return "", apperr.Validation("export", fmt.Sprintf("unknown format %q", s))
	}
	return f, nil
}

// Binary reports whether f should not be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// Write renders res to w in format f.
func Write(w io.Writer, f Format, res *lead.SearchResult) error {
	switch f {
	case FormatJSON, "":
		return WriteJSON(w, res)
	case FormatNDJSON:
		return WriteNDJSON(w, res.Leads)
	case FormatText:
		return report.WriteText(w, report.Summarize(res))
	case FormatHTML:
		return report.WriteHTML(w, report.Summarize(res))
	case FormatCSV:
		return WriteCSV(w, res.Leads)
	case FormatXLSX:
		return WriteXLSX(w, res.Leads)
	case FormatPhones:
		return writeLines(w, Phones(res.Leads))
	case FormatEmails:
		return writeLines(w, Emails(res.Leads))
	}
	return apperr.Validation("export", fmt.Sprintf("unknown format %q", f))
}

// LeadPhones returns the lead's provider phone followed by its scraped
// phones, normalized to national digits and deduplicated.
func LeadPhones(l lead.Lead) []string {
	var out []string
	add := func(raw string) {
		if n := phone.Normalize(raw); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	add(l.Phone)
	if l.Contacts != nil {
		for _, p := range l.Contacts.Phones {
			add(p)
		}
	}
	return out
}

// LeadEmails returns the lead's scraped emails.
func LeadEmails(l lead.Lead) []string {
	if l.Contacts == nil {
		return nil
	}
	return l.Contacts.Emails
}

// Phones returns every distinct normalized phone across leads, sorted.
func Phones(leads []lead.Lead) []string {
	set := make(map[string]struct{})
	for _, l := range leads {
		for _, p := range LeadPhones(l) {
			set[p] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Emails returns every distinct scraped email across leads, lower-cased
// and sorted.
func Emails(leads []lead.Lead) []string {
	set := make(map[string]struct{})
	for _, l := range leads {
		for _, e := range LeadEmails(l) {
			e = strings.ToLower(strings.TrimSpace(e))
			if strings.Contains(e, "@") {
				set[e] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func writeLines(w io.Writer, lines []string) error {
	if _, err := io.WriteString(w, bom+strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write list: %w", err)
	}
	return nil
}

// websiteOf prefers the result link, as the UI exports did.
func websiteOf(l lead.Lead) string {
	if l.Link != "" {
		return l.Link
	}
	return l.Website
}

func placeFields(l lead.Lead) (rating, reviews, kind, price, hours string) {
	p := l.Place
	if p == nil {
		return
	}
	if p.Rating > 0 {
		rating = strconv.FormatFloat(p.Rating, 'f', -1, 64)
	}
	if p.Reviews > 0 {
		reviews = strconv.Itoa(p.Reviews)
	}
	return rating, reviews, p.Type, p.Price, p.Hours
}
