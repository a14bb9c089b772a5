package scraper

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/FranksOps/leadscout/internal/phone"
	"github.com/PuerkitoBio/goquery"
)

// maxContactLinks caps the contact-page candidates kept per page.
const maxContactLinks = 3

var (
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	mailtoRe = regexp.MustCompile(`mailto:([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

	socialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*facebook\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*(?:twitter|x)\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*linkedin\.com/(?:company|in)/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*instagram\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*youtube\.com/(?:c|channel|user)/[^\s"'<>]+`),
	}

	contactHints = []string{"contact", "about", "ติดต่อ", "เกี่ยวกับ"}

	rejectedEmailDomains = []string{"example.com", "domain.com"}
	imageSuffixes        = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
)

// Document is a rendered page as the browser saw it.
type Document struct {
	URL  string
	HTML string
	// Text is the visible text (innerText) of the body.
	Text string
}

// Extraction is what Extract finds on one page. Emails, Phones and
// SocialMedia are deduplicated and sorted; ContactLinks keep page order.
type Extraction struct {
	Title        string
	Emails       []string
	Phones       []string
	SocialMedia  []string
	ContactLinks []string
	Meta         map[string]string
}

// HasDirect reports whether an email or phone was found.
func (e *Extraction) HasDirect() bool {
	return len(e.Emails) > 0 || len(e.Phones) > 0
}

// Extract pulls contact details out of a rendered page. It never fails:
// unparsable HTML still yields whatever the visible text holds.
func Extract(d Document) *Extraction {
	base, _ := url.Parse(d.URL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.HTML))
	if err != nil {
		doc = nil
	}

	emails := newEmailSet()
	emails.scan(d.Text)
	emails.scan(d.HTML)

	phones := newPhoneSet()
	phones.add(phone.Find(d.Text)...)

	out := &Extraction{Meta: map[string]string{}}

	if doc != nil {
		out.Title = strings.TrimSpace(doc.Find("title").First().Text())

		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			lower := strings.ToLower(href)
			switch {
			case strings.HasPrefix(lower, "mailto:"):
				emails.scan(href)
			case strings.HasPrefix(lower, "tel:"):
				phones.add(phone.Find(href)...)
			}
		})

		doc.Find(`[href*="@"], [data-email], [class*="email"], [id*="email"]`).Each(func(_ int, s *goquery.Selection) {
			emails.scan(s.Text())
			emails.scan(s.AttrOr("data-email", ""))
		})
		doc.Find(`[href^="tel:"], [class*="phone"], [id*="phone"], [class*="tel"], [data-phone], [class*="contact"]`).Each(func(_ int, s *goquery.Selection) {
			phones.add(phone.Find(s.Text())...)
			phones.add(phone.Find(s.AttrOr("data-phone", ""))...)
		})

		out.SocialMedia = socialLinks(doc, base)
		out.ContactLinks = contactLinks(doc, base)

		doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
			key := s.AttrOr("name", "")
			if key == "" {
				key = s.AttrOr("property", "")
			}
			content, ok := s.Attr("content")
			if key == "" || !ok {
				return
			}
			if _, dup := out.Meta[key]; !dup {
				out.Meta[key] = strings.TrimSpace(content)
			}
		})
	}

	out.Emails = emails.sorted()
	out.Phones = phones.sorted()
	if out.SocialMedia == nil {
		out.SocialMedia = []string{}
	}
	return out
}

type emailSet map[string]struct{}

func newEmailSet() emailSet { return emailSet{} }

func (s emailSet) scan(text string) {
	if text == "" {
		return
	}
	for _, m := range mailtoRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		s.add(m)
	}
}

func (s emailSet) add(raw string) {
	email := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "mailto:")))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return
	}
	domain := email[at+1:]
	for _, d := range rejectedEmailDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return
		}
	}
	for _, ext := range imageSuffixes {
		if strings.HasSuffix(email, ext) {
			return
		}
	}
	s[email] = struct{}{}
}

func (s emailSet) sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// phoneSet keeps the first raw spelling seen for each normalized number.
type phoneSet struct {
	byKey map[string]string
}

func newPhoneSet() *phoneSet { return &phoneSet{byKey: map[string]string{}} }

func (s *phoneSet) add(raws ...string) {
	for _, raw := range raws {
		key := phone.Normalize(raw)
		if key == "" {
			continue
		}
		if _, ok := s.byKey[key]; !ok {
			s.byKey[key] = raw
		}
	}
}

func (s *phoneSet) sorted() []string {
	out := make([]string, 0, len(s.byKey))
	for _, raw := range s.byKey {
		out = append(out, raw)
	}
	slices.Sort(out)
	return out
}

func resolve(base *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return nil, false
	}
	return ref, true
}

func socialLinks(doc *goquery.Document, base *url.URL) []string {
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		u, ok := resolve(base, s.AttrOr("href", ""))
		if !ok {
			return
		}
		abs := u.String()
		for _, p := range socialPatterns {
			if p.MatchString(abs) {
				seen[abs] = struct{}{}
				return
			}
		}
	})
	out := make([]string, 0, len(seen))
	for link := range seen {
		out = append(out, link)
	}
	slices.Sort(out)
	return out
}

func contactLinks(doc *goquery.Document, base *url.URL) []string {
	self := ""
	if base != nil {
		b := *base
		b.Fragment = ""
		self = b.String()
	}
	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if !isContactHint(s.Text()) && !isContactHint(href) {
			return true
		}
		u, ok := resolve(base, href)
		if !ok {
			return true
		}
		u.Fragment = ""
		abs := u.String()
		if abs != self && !slices.Contains(out, abs) {
			out = append(out, abs)
		}
		return len(out) < maxContactLinks
	})
	return out
}

func isContactHint(s string) bool {
	if s == "" {
		return false
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = strings.ToLower(s)
	for _, h := range contactHints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
