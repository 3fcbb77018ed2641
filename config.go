// config.go
// ---------
// Configuration types: per-model rate limit defaults, the coordinator's
// tunables, and the client's top-level config. Grounded on
// codex-rs/core/src/azure_rate_limiter.rs's ModelRateLimits table and
// AzureRateLimitConfig, and on the teacher's ProviderConfig override
// shape (override the defaults unless explicitly disabled).
package aoaiclient

import "time"

// RateLimits is a model's token-per-minute / request-per-minute budget.
type RateLimits struct {
	TokensPerMinute   uint32
	RequestsPerMinute uint32
}

// defaultRateLimits is the built-in per-model table, ported verbatim from
// AzureOpenAIRateLimiter::default_model_limits. Models not listed fall
// back to DefaultRateLimits.
var defaultRateLimits = map[string]RateLimits{
	"gpt-5":       {TokensPerMinute: 20000, RequestsPerMinute: 200},
	"gpt-5-mini":  {TokensPerMinute: 20000, RequestsPerMinute: 200},
	"gpt-5-nano":  {TokensPerMinute: 20000, RequestsPerMinute: 200},
	"gpt-5-chat":  {TokensPerMinute: 20000, RequestsPerMinute: 200},
	"gpt-4o":      {TokensPerMinute: 30000, RequestsPerMinute: 300},
	"gpt-4o-mini": {TokensPerMinute: 30000, RequestsPerMinute: 300},
	"gpt-4.1":      {TokensPerMinute: 30000, RequestsPerMinute: 300},
	"gpt-4.1-nano": {TokensPerMinute: 30000, RequestsPerMinute: 300},
	"gpt-4.1-mini": {TokensPerMinute: 30000, RequestsPerMinute: 300},
	"o1": {TokensPerMinute: 10000, RequestsPerMinute: 50},
	"o3": {TokensPerMinute: 10000, RequestsPerMinute: 50},
	"o3-mini": {TokensPerMinute: 15000, RequestsPerMinute: 100},
	"o4-mini": {TokensPerMinute: 15000, RequestsPerMinute: 100},
}

// DefaultRateLimits is the fallback budget for any model absent from the
// built-in table, matching ModelRateLimits::default() in the original.
var DefaultRateLimits = RateLimits{TokensPerMinute: 30000, RequestsPerMinute: 300}

// RateLimitsFor looks up the default budget for model, falling back to
// DefaultRateLimits when the model isn't in the built-in table.
func RateLimitsFor(model string) RateLimits {
	if rl, ok := defaultRateLimits[model]; ok {
		return rl
	}
	return DefaultRateLimits
}

// CoordinatorConfig tunes the Rate-Limit Coordinator's circuit breaker and
// pacer. Ported from AzureRateLimitConfig.
type CoordinatorConfig struct {
	Enabled                bool
	CustomLimits            map[string]RateLimits
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	AggressiveThrottling    bool
}

// DefaultCoordinatorConfig mirrors AzureRateLimitConfig::default().
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Enabled:                 true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		AggressiveThrottling:    false,
	}
}

// pacerRates returns the (initial, min, max) request rate the adaptive
// pacer starts at, depending on whether aggressive throttling is on.
func (c CoordinatorConfig) pacerRates() (initial, min, max float64) {
	if c.AggressiveThrottling {
		return 5.0, 1.0, 30.0
	}
	return 10.0, 1.0, 50.0
}

// limitsFor resolves a model's RateLimits, preferring a CustomLimits
// override over the built-in table.
func (c CoordinatorConfig) limitsFor(model string) RateLimits {
	if rl, ok := c.CustomLimits[model]; ok {
		return rl
	}
	return RateLimitsFor(model)
}

// ClientConfig is the top-level configuration for a Client: which
// provider to talk to, how to authenticate, retry/backoff tuning, and
// rate-limit coordination tuning.
type ClientConfig struct {
	Provider    Provider
	Auth        AuthProvider
	Coordinator CoordinatorConfig
	Estimator   TokenEstimator
	Debug       bool
}
