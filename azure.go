// azure.go
// --------
// Azure endpoint detection and URL assembly. Grounded on
// codex-api/src/azure.rs::is_azure_base_url and
// codex-rs/core/src/azure.rs::build_azure_url, kept as an exact port: the
// domain-suffix list is a closed list, not a loose substring match, so
// lookalike hosts (API Management gateways, Front Door, blob storage)
// never misclassify as Azure OpenAI.
package aoaiclient

import (
	"net/url"
	"strings"
)

// azureDomainSuffixes is the closed list of hostname suffixes that
// identify an Azure OpenAI / Azure Cognitive Services endpoint. Anything
// else — including hosts that merely contain "openai.azure" as a
// substring, such as an API Management gateway on azure-api.net — is not
// Azure for the purposes of auth-header selection and URL shape.
var azureDomainSuffixes = []string{
	".openai.azure.com",
	".openai.azure.us",
	".openai.azure.cn",
	".cognitiveservices.azure.com",
	".cognitiveservices.azure.us",
	".cognitiveservices.azure.cn",
	".aoai.azure.com",
}

// IsAzureBaseURL reports whether baseURL's host ends with one of the
// known Azure OpenAI suffixes. If baseURL fails to parse as a URL, it
// falls back to a substring check for "openai.azure." or
// "cognitiveservices.azure." on the lowercased raw string, matching the
// original's defensive fallback for malformed input.
func IsAzureBaseURL(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		lower := strings.ToLower(baseURL)
		return strings.Contains(lower, "openai.azure.") || strings.Contains(lower, "cognitiveservices.azure.")
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range azureDomainSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// BuildAzureURL inserts suffix as a path segment just before baseURL's
// existing query string, rather than appending it after. baseURL is
// expected to already carry the full responses endpoint plus its
// api-version query (e.g. ".../openai/v1/responses?api-version=...");
// suffix is a sub-path such as a response ID.
//
// Example: base "https://x.openai.azure.com/openai/v1/responses" with
// query "api-version=2025-04-01-preview" and suffix "abc123" yields
// "https://x.openai.azure.com/openai/v1/responses/abc123?api-version=2025-04-01-preview".
func BuildAzureURL(baseURL, suffix string) string {
	base, query, hasQuery := strings.Cut(baseURL, "?")
	base = strings.TrimRight(base, "/")
	trimmedSuffix := strings.TrimLeft(suffix, "/")

	result := base
	if trimmedSuffix != "" {
		result = base + "/" + trimmedSuffix
	}
	if hasQuery {
		result += "?" + query
	}
	return result
}
