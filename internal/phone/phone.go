// Package phone holds the Thai phone number rules shared by the contact
// extractor, the lead merge step and the exporters.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "TH"

// patterns over-match on purpose; every hit is re-checked by Valid.
var patterns = []*regexp.Regexp{
	// mobile 06x/08x/09x, optionally +66 instead of the leading 0
	regexp.MustCompile(`(?:\+66|0)[689][0-9][-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`),
	// Bangkok 02-xxx-xxxx
	regexp.MustCompile(`02[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`),
	// provincial landline 0xx-xxx-xxx(x)
	regexp.MustCompile(`0[2-9][0-9][-.\s]?[0-9]{3}[-.\s]?[0-9]{3,4}`),
	// international +66-xx-xxx-xxxx
	regexp.MustCompile(`\+66[-.\s]?[0-9]{1,2}[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`),
	regexp.MustCompile(`tel:\+?66[-.\s]?[0-9]{1,2}[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`),
	regexp.MustCompile(`tel:0[689][0-9][-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`),
}

var validators = []*regexp.Regexp{
	regexp.MustCompile(`^(\+?66|0)[689][0-9]{8}$`),
	regexp.MustCompile(`^0[2-9][0-9]{7,8}$`),
	regexp.MustCompile(`^\+66[0-9]{8,9}$`),
}

// Find returns every validated phone number in text, in match order, with
// its original formatting. Duplicates are not removed.
func Find(text string) []string {
	var found []string
	for _, p := range patterns {
		for _, m := range p.FindAllString(text, -1) {
			raw := strings.TrimSpace(strings.TrimPrefix(m, "tel:"))
			if Valid(raw) {
				found = append(found, raw)
			}
		}
	}
	return found
}

// Clean strips everything except digits and '+'.
func Clean(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether raw is a Thai mobile, landline or +66 number once
// separators are stripped.
func Valid(raw string) bool {
	cleaned := Clean(raw)
	for _, v := range validators {
		if v.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// Normalize reduces a number to digits in national form so that the same
// line written in different styles compares equal: "+66 81 234 5678",
// "081-234-5678" and "812345678" all become "0812345678".
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "66"):
		digits = "0" + digits[2:]
	case len(digits) == 9 && !strings.HasPrefix(digits, "0"):
		digits = "0" + digits
	}
	return digits
}

// E164 formats raw as +66... or returns "" when it is not a valid number.
func E164(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	num, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
