// auth.go
// -------
// Auth header injection. Grounded on codex-api/src/auth.rs: the same
// bearer token is carried as "api-key" for Azure endpoints and as a
// standard "Authorization: Bearer" header everywhere else, plus an
// optional ChatGPT-Account-ID passthrough. Header values that fail to
// build (e.g. embedded control characters) are dropped silently rather
// than failing the request, matching the original.
package aoaiclient

import (
	"net/http"
	"strings"
)

// AuthProvider supplies the credentials an outgoing request needs.
// AccountID is optional; implementations that have none return "".
type AuthProvider interface {
	BearerToken() (string, bool)
	AccountID() (string, bool)
}

// StaticAuth is the simplest AuthProvider: a fixed token and account ID
// set once at construction.
type StaticAuth struct {
	Token     string
	Account   string
}

func (a StaticAuth) BearerToken() (string, bool) {
	if a.Token == "" {
		return "", false
	}
	return a.Token, true
}

func (a StaticAuth) AccountID() (string, bool) {
	if a.Account == "" {
		return "", false
	}
	return a.Account, true
}

// AddAuthHeaders injects credentials from auth into h, choosing between
// Azure's api-key scheme and standard bearer auth based on isAzure. A
// value containing control characters is skipped, so the request goes out
// without that header.
func AddAuthHeaders(h http.Header, auth AuthProvider, isAzure bool) {
	if auth == nil {
		return
	}
	valid := func(v string) bool {
		return !strings.ContainsFunc(v, func(r rune) bool {
			return (r < ' ' && r != '\t') || r == 0x7f
		})
	}
	if token, ok := auth.BearerToken(); ok && valid(token) {
		if isAzure {
			h.Set("api-key", token)
		} else {
			h.Set("Authorization", "Bearer "+token)
		}
	}
	if account, ok := auth.AccountID(); ok && valid(account) {
		h.Set("ChatGPT-Account-ID", account)
	}
}

// IsAzureEndpoint reports whether a (providerName, baseURL) pair should
// be treated as Azure: an explicit provider name of "azure" always wins,
// otherwise it falls back to hostname-suffix detection.
func IsAzureEndpoint(providerName, baseURL string) bool {
	if strings.EqualFold(providerName, "azure") {
		return true
	}
	return IsAzureBaseURL(baseURL)
}
