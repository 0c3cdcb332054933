package jar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedCookie reports a set-cookie value that could not be
// parsed into a cookie at all (no name=value pair). Callers should
// skip the offending value and keep processing the rest of the batch.
var ErrMalformedCookie = errors.New("malformed cookie")

// Record is a single stored cookie.
type Record struct {
	// Name is the cookie name. Case-sensitive identity component.
	Name string
	// Value is the cookie value. Treat as sensitive; do not log.
	Value string
	// Domain is the host the cookie belongs to. Empty after parsing
	// means the cookie carried no Domain attribute (host-only); the
	// jar fills in the origin host on store.
	Domain string
	// Path is the cookie path scope. Empty after parsing means the
	// jar defaults it to the directory of the request path.
	Path string
	// Secure restricts the cookie to encrypted origins.
	Secure bool
	// HttpOnly is tracked for completeness; it has no effect on
	// storage or selection.
	HttpOnly bool
	// Expires is the absolute expiry time. The zero time means a
	// session cookie, which never expires on its own.
	Expires time.Time
}

// Expired reports whether the record's expiry has passed at the given
// instant. Session cookies never expire.
func (r *Record) Expired(now time.Time) bool {
	return !r.Expires.IsZero() && !r.Expires.After(now)
}

// Pair renders the record as a transmittable "name=value" pair.
// Attributes are never sent back to the server.
func (r *Record) Pair() string {
	return r.Name + "=" + r.Value
}

// ParseSetCookie parses one raw set-cookie header value into a Record.
// Only the first name=value pair is the cookie; any further
// unrecognized segments, including stray name=value pairs packed into
// the same header, are ignored. Recognized attributes (matched
// case-insensitively) are Domain, Path, Secure, HttpOnly, Max-Age and
// Expires. When both Max-Age and Expires are present, Max-Age wins.
func ParseSetCookie(raw string) (*Record, error) {
	return parseSetCookie(raw, time.Now())
}

func parseSetCookie(raw string, now time.Time) (*Record, error) {
	segments := strings.Split(raw, ";")

	first := strings.TrimSpace(segments[0])
	eq := strings.Index(first, "=")
	if eq <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedCookie, raw)
	}
	rec := &Record{
		Name:  strings.TrimSpace(first[:eq]),
		Value: unquote(strings.TrimSpace(first[eq+1:])),
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedCookie, raw)
	}

	var (
		expires    time.Time
		hasExpires bool
		maxAge     int
		hasMaxAge  bool
	)
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, val := seg, ""
		if i := strings.Index(seg, "="); i >= 0 {
			key = strings.TrimSpace(seg[:i])
			val = unquote(strings.TrimSpace(seg[i+1:]))
		}
		switch strings.ToLower(key) {
		case "domain":
			// A leading dot is legacy syntax for the same host.
			rec.Domain = strings.TrimPrefix(val, ".")
		case "path":
			rec.Path = val
		case "secure":
			rec.Secure = true
		case "httponly":
			rec.HttpOnly = true
		case "expires":
			if t, err := parseHTTPDate(val); err == nil {
				expires = t
				hasExpires = true
			}
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				maxAge = n
				hasMaxAge = true
			}
		default:
			// Unknown attribute or an extra name=value pair
			// riding in the same header. First pair wins.
		}
	}

	if hasExpires {
		rec.Expires = expires
	}
	// Max-Age is applied after Expires so it always overrides it.
	if hasMaxAge {
		if maxAge <= 0 {
			rec.Expires = now.Add(-time.Second)
		} else {
			rec.Expires = now.Add(time.Duration(maxAge) * time.Second)
		}
	}
	return rec, nil
}

// unquote strips one pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// httpDateFormats are the date layouts accepted for the Expires
// attribute: RFC 1123 with and without a numeric zone, RFC 850, and
// the ANSI C asctime format.
var httpDateFormats = []string{
	"Mon, 02 Jan 2006 15:04:05 GMT",
	time.RFC1123,
	time.RFC1123Z,
	"Monday, 02-Jan-06 15:04:05 MST",
	time.ANSIC,
}

func parseHTTPDate(v string) (time.Time, error) {
	for _, layout := range httpDateFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", v)
}
