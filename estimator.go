// estimator.go
// ------------
// TokenEstimator is a pluggable collaborator: real BPE-backed token
// counting is explicitly out of scope for this module (per spec.md's
// non-goals), so callers that need exact counts wire in their own
// implementation. HeuristicEstimator is the dependency-free fallback,
// playing the same role codex-rs's cl100k_base() fallback plays there,
// minus the tokenizer table.
package aoaiclient

// TokenEstimator estimates how many tokens a piece of text will consume
// for a given model, used to pre-charge the token bucket before the
// actual usage is known.
type TokenEstimator interface {
	EstimateTokens(model, text string) int
}

// HeuristicEstimator approximates token count as roughly four characters
// per token, a coarse but dependency-free stand-in for a real tokenizer.
type HeuristicEstimator struct{}

// EstimateTokens implements TokenEstimator. Model is accepted for
// interface parity with a real tokenizer-backed implementation but
// doesn't change the heuristic, which is the same across model
// families.
func (HeuristicEstimator) EstimateTokens(_ string, text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
