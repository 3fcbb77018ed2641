// Package mock provides a deterministic http.RoundTripper double for
// exercising the client and coordinator without a live backend.
//
// Adapted from the teacher's mock/mock_adapter.go (a configurable
// ProviderAdapter double keyed on a request counter): the same
// "respond with N successes then misbehave" shape, re-targeted at
// http.RoundTripper so it plugs into a real *http.Client instead of a
// bespoke adapter interface.
package mock

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Response describes a canned reply for one request.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Transport is an http.RoundTripper that serves canned Responses in
// order, repeating the last one once exhausted. RequestsUntilRateLimit,
// when positive, overrides the Nth request (1-indexed) with a 429 and
// the given RetryAfterHeader value before falling through to the
// configured Responses sequence.
type Transport struct {
	mu sync.Mutex

	Responses              []Response
	RequestsUntilRateLimit  int
	RetryAfterHeader        string
	Requests                []*http.Request

	count int
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.count++
	n := t.count
	t.Requests = append(t.Requests, req.Clone(req.Context()))
	t.mu.Unlock()

	if t.RequestsUntilRateLimit > 0 && n == t.RequestsUntilRateLimit {
		h := http.Header{}
		if t.RetryAfterHeader != "" {
			h.Set("Retry-After", t.RetryAfterHeader)
		}
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     h,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Request:    req,
		}, nil
	}

	if len(t.Responses) == 0 {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Request:    req,
		}, nil
	}

	idx := n - 1
	if idx >= len(t.Responses) {
		idx = len(t.Responses) - 1
	}
	canned := t.Responses[idx]

	header := canned.Headers
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: canned.Status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(canned.Body)),
		Request:    req,
	}, nil
}

// Count returns how many requests the transport has served.
func (t *Transport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
