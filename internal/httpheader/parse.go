// Package httpheader provides small helpers for pulling typed values out of
// the http.Header maps the client and coordinator pass around, looked up
// case-insensitively.
//
// Kept tiny and dependency-free, in the spirit of the teacher's
// internal/time_parser.go: a grab-bag of header/time parsing helpers used
// by the retry engine and the rate-limit coordinator.
package httpheader

import (
	"net/http"
	"strconv"
	"strings"
)

// Get returns the first value for name, case-insensitively, or "" if absent.
func Get(h http.Header, name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v := h.Get(name)
	if v == "" {
		if _, ok := h[http.CanonicalHeaderKey(name)]; !ok {
			return "", false
		}
	}
	return v, true
}

// Int parses a header value as a base-10 integer.
func Int(h http.Header, name string) (int, bool) {
	v, ok := Get(h, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Uint32 parses a header value as a non-negative base-10 integer.
func Uint32(h http.Header, name string) (uint32, bool) {
	n, ok := Int(h, name)
	if !ok || n < 0 {
		return 0, false
	}
	return uint32(n), true
}

// Int64 parses a header value as a base-10 64-bit integer.
func Int64(h http.Header, name string) (int64, bool) {
	v, ok := Get(h, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
