// Package usage estimates token usage when the generation engine does not
// report exact counts.
package usage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tanu360/apple-intelligence-api/internal/core"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens in a piece of text.
type Estimator interface {
	Estimate(text string) int
}

// Heuristic is the default estimator: the larger of a character-based and a
// word-based guess.
type Heuristic struct{}

// Estimate returns max(runes/4, words/0.75), both floored.
func (Heuristic) Estimate(text string) int {
	charEstimate := utf8.RuneCountInString(text) / 4
	wordEstimate := len(strings.Fields(text)) * 4 / 3
	return max(charEstimate, wordEstimate)
}

// Tiktoken counts with the cl100k_base BPE vocabulary and falls back to the
// heuristic when encoding fails.
type Tiktoken struct {
	codec    tokenizer.Codec
	fallback Heuristic
}

// NewTiktoken loads the cl100k_base codec.
func NewTiktoken() (*Tiktoken, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Tiktoken{codec: codec}, nil
}

// Estimate returns the BPE token count of text.
func (t *Tiktoken) Estimate(text string) int {
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return t.fallback.Estimate(text)
	}
	return len(ids)
}

// New returns the estimator registered under name.
func New(name string) (Estimator, error) {
	switch name {
	case "", core.UsageEstimatorHeuristic:
		return Heuristic{}, nil
	case core.UsageEstimatorTiktoken:
		return NewTiktoken()
	default:
		return nil, fmt.Errorf("unknown usage estimator %q", name)
	}
}

// PromptText joins message contents with single spaces, in order.
func PromptText(messages []core.ChatMessage) string {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = string(msg.Content)
	}
	return strings.Join(parts, " ")
}

// Compute builds usage info for a transcript and its completion.
func Compute(e Estimator, messages []core.ChatMessage, completion string) core.OpenAIUsage {
	return core.NewUsage(e.Estimate(PromptText(messages)), e.Estimate(completion))
}
