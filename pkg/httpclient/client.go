// Package httpclient is the shared HTTP client for search APIs, robots.txt
// and sitemap fetches. It adds a redirect cap, an optional cookie jar, a
// default User-Agent and a JSON helper that turns non-2xx replies into
// upstream errors carrying the provider's own message.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/apperr"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Config defines the client. Zero values pick defaults.
type Config struct {
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero means 10; negative means
	// redirects are returned to the caller unfollowed.
	MaxRedirects int
	UseCookieJar bool
	// UserAgent is sent when a request carries none.
	UserAgent string
	// Transport allows proxies or a uTLS fingerprint.
	Transport http.RoundTripper
}

// Client wraps http.Client.
type Client struct {
	*http.Client
	userAgent string
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}

	c := &http.Client{Timeout: cfg.Timeout}

	maxRedirects := cfg.MaxRedirects
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if maxRedirects < 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.Jar = jar
	}
	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, userAgent: cfg.UserAgent}, nil
}

// Do sends req bound to ctx.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: nil context")
	}
	req = req.Clone(ctx)
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		// url.Error prints the full request URL, credentials included.
		var ue *url.Error
		if errors.As(err, &ue) {
			if u, perr := url.Parse(ue.URL); perr == nil {
				ue.URL = redact(u)
			} else {
				ue.URL = redact(req.URL)
			}
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, redact(req.URL), err)
	}
	return resp, nil
}

// GetJSON issues a GET to rawURL with params merged into its query and
// decodes a 2xx body into out. Transport failures, non-2xx statuses and
// undecodable bodies all come back as apperr upstream errors labeled op.
func (c *Client) GetJSON(ctx context.Context, op, rawURL string, params url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return apperr.Upstream(op, "invalid endpoint", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return apperr.Upstream(op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return apperr.Upstream(op, "request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := ErrorMessage(body)
		if msg == "" {
			msg = resp.Status
		}
		return apperr.Upstream(op, msg, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream(op, "decode response", err)
	}
	return nil
}

// ErrorMessage extracts the message from a JSON error body. It understands
// {"error": "msg"} and {"error": {"message": "msg"}}. It returns "" when
// body has neither shape.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// redact drops credentials from query strings before they reach logs or
// error messages.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, k := range []string{"api_key", "key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
