// provider.go
// -----------
// Provider bundles everything needed to address and authenticate a
// single backend: which wire shape it speaks, its base URL and any
// fixed query params, its default headers, and its retry policy.
// Grounded on codex-api/src/provider.rs.
package aoaiclient

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// WireAPI selects the request/response shape a provider speaks.
type WireAPI int

const (
	WireResponses WireAPI = iota
	WireChat
	WireCompact
)

// RetryConfig is the provider-level retry configuration; ToPolicy
// converts it into the RetryPolicy the retry engine consumes.
type RetryConfig struct {
	MaxAttempts    uint64
	BaseDelay      time.Duration
	Retry429       bool
	Retry5xx       bool
	RetryTransport bool
	MaxRetryDelay  *time.Duration
}

// ToPolicy builds the RetryPolicy this config describes.
func (c RetryConfig) ToPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		RetryOn: RetryOn{
			Retry429:       c.Retry429,
			Retry5xx:       c.Retry5xx,
			RetryTransport: c.RetryTransport,
		},
		MaxRetryDelay: c.MaxRetryDelay,
	}
}

// Provider is an immutable description of one backend: its name (used
// for display and for the "azure" name override), base URL, any extra
// query parameters to merge into every request, wire shape, default
// headers, retry policy, and idle-stream timeout.
type Provider struct {
	Name              string
	BaseURL           string
	QueryParams       map[string]string
	Wire              WireAPI
	Headers           http.Header
	Retry             RetryConfig
	StreamIdleTimeout time.Duration
}

// URLForPath builds the full URL for a sub-path under BaseURL, preserving
// any query string BaseURL already carries (Azure's api-version) and
// merging in QueryParams, percent-encoded, after it.
func (p Provider) URLForPath(path string) string {
	path = strings.TrimPrefix(path, "/")

	base, existingQuery, hasQuery := strings.Cut(p.BaseURL, "?")
	base = strings.TrimRight(base, "/")

	result := base
	if path != "" {
		result += "/" + path
	}

	var parts []string
	if hasQuery && existingQuery != "" {
		parts = append(parts, existingQuery)
	}
	if len(p.QueryParams) > 0 {
		keys := make([]string, 0, len(p.QueryParams))
		for k := range p.QueryParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(p.QueryParams[k]))
		}
	}
	if len(parts) > 0 {
		result += "?" + strings.Join(parts, "&")
	}
	return result
}

// BuildRequest constructs a bare *http.Request for method/path, with the
// provider's default headers applied and no body. Callers attach a body
// and auth headers afterward.
func (p Provider) BuildRequest(method, path string) (*http.Request, error) {
	req, err := http.NewRequest(method, p.URLForPath(path), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range p.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// IsAzureResponsesEndpoint reports whether this provider addresses an
// Azure OpenAI deployment over the Responses wire shape specifically:
// Azure's Chat/Compact-equivalent surfaces (if any) aren't in scope here.
func (p Provider) IsAzureResponsesEndpoint() bool {
	if p.Wire != WireResponses {
		return false
	}
	return IsAzureEndpoint(p.Name, p.BaseURL)
}
