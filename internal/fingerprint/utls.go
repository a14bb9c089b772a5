// Package fingerprint builds HTTP transports whose TLS ClientHello mimics a
// real browser, so robots.txt and sitemap fetches look like the headless
// crawler that follows them.
package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS fingerprint.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // stock crypto/tls
	ProfileRandom  Profile = "random" // randomized uTLS hello
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedNoALPN,
}

// helloSpec returns the ClientHello of id with ALPN limited to http/1.1.
// http.Transport only speaks HTTP/2 over *tls.Conn, so a uTLS connection
// must never let the server pick h2.
func helloSpec(id utls.ClientHelloID) (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return &spec, nil
}

// uclient wraps raw in a uTLS client presenting profile p.
func uclient(raw net.Conn, cfg *utls.Config, p Profile, id utls.ClientHelloID) (*utls.UConn, error) {
	if p == ProfileRandom {
		// The randomized hello carries no ALPN at all.
		return utls.UClient(raw, cfg, id), nil
	}
	spec, err := helloSpec(id)
	if err != nil {
		return nil, err
	}
	conn := utls.UClient(raw, cfg, utls.HelloCustom)
	if err := conn.ApplyPreset(spec); err != nil {
		return nil, err
	}
	return conn, nil
}

// ParseProfile maps a config value to a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileChrome, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("unknown tls profile %q", s)
	}
	return p, nil
}

// Transport returns a RoundTripper presenting profile p. proxyFunc, when
// non-nil, becomes the transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (*http.Transport, error) {
	return newTransport(p, proxyFunc, false)
}

func newTransport(p Profile, proxyFunc func(*http.Request) (*url.URL, error), insecure bool) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	if p == ProfileGo {
		if insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("unknown tls profile %q", p)
	}
	if p != ProfileRandom {
		if _, err := helloSpec(helloID); err != nil {
			return nil, fmt.Errorf("tls profile %s: %w", p, err)
		}
	}
	transport.ForceAttemptHTTP2 = false

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		conn, err := uclient(raw, &utls.Config{ServerName: host, InsecureSkipVerify: insecure}, p, helloID)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%s hello for %s: %w", p, host, err)
		}
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%s handshake with %s: %w", p, host, err)
		}
		return conn, nil
	}
	return transport, nil
}
