// Package httpjar applies a cookie jar to plain HTTP exchanges. It is
// the adapter for RPC transports that ride on HTTP, such as JSON-RPC
// bridges and websocket handshakes: wrap the http.Client's transport
// and every request/response through it shares the jar's cookies.
package httpjar

import (
	"net/http"
	"strings"

	"github.com/rpcjar/rpcjar/pkg/jar"
)

// Transport is an http.RoundTripper that attaches stored cookies to
// outgoing requests and stores Set-Cookie/Set-Cookie2 response
// headers. It implements the same accept and selection policy as the
// jar it wraps; cookie problems never fail a request.
type Transport struct {
	// Base performs the actual round trip. A nil Base uses
	// http.DefaultTransport.
	Base http.RoundTripper

	// Jar supplies and stores cookies. A nil Jar disables cookie
	// handling entirely.
	Jar *jar.Jar
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Jar == nil {
		return base.RoundTrip(req)
	}

	if pairs := t.Jar.Cookies(req.URL); len(pairs) > 0 {
		// Round trippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	var values []string
	values = append(values, resp.Header.Values("Set-Cookie")...)
	values = append(values, resp.Header.Values("Set-Cookie2")...)
	if len(values) > 0 {
		t.Jar.SetCookies(req.URL, req.URL.Path, values)
	}
	return resp, nil
}

// Client returns an http.Client whose transport shares the given jar.
func Client(j *jar.Jar) *http.Client {
	return &http.Client{Transport: &Transport{Jar: j}}
}
