// Package urlutil provides URL sanitization and same-origin checks for the
// crawler and ingestion layers.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidURL is returned when a candidate URL is unparsable or uses a
// scheme other than http/https.
var ErrInvalidURL = errors.New("invalid url")

// Sanitize normalizes raw into a canonical absolute URL string. Only http and
// https schemes are accepted. The fragment component is stripped; all other
// components are preserved verbatim.
func Sanitize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	u.Fragment = ""
	return u.String(), nil
}

// Origin returns the scheme://host[:port] portion of u, or an error if u is
// not a valid http(s) URL.
func Origin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return u.Scheme + "://" + u.Host, nil
}

// SameOrigin reports whether a and b share scheme, host, and port exactly.
func SameOrigin(a, b string) bool {
	oa, err := Origin(a)
	if err != nil {
		return false
	}
	ob, err := Origin(b)
	if err != nil {
		return false
	}
	return oa == ob
}
