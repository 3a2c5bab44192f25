package llm

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// runesPerToken is the rough ratio used when no encoding is available.
const runesPerToken = 3

// TokenBudget trims prompt context to a token allowance.
type TokenBudget struct {
	encoding  *tiktoken.Tiktoken
	maxTokens int
}

// NewTokenBudget loads the cl100k_base encoding. When the encoding cannot be
// loaded the budget falls back to a rune-count estimate.
func NewTokenBudget(maxTokens int, logger *zap.Logger) *TokenBudget {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		if logger != nil {
			logger.Warn("tiktoken encoding unavailable, estimating tokens", zap.Error(err))
		}
		enc = nil
	}
	return &TokenBudget{encoding: enc, maxTokens: maxTokens}
}

// Count returns the number of tokens in text.
func (b *TokenBudget) Count(text string) int {
	if b == nil || b.encoding == nil {
		return (len([]rune(text)) + runesPerToken - 1) / runesPerToken
	}
	return len(b.encoding.Encode(text, nil, nil))
}

// Truncate shortens text so it fits the budget. A non-positive budget keeps
// the text unchanged.
func (b *TokenBudget) Truncate(text string) string {
	if b == nil || b.maxTokens <= 0 || b.Count(text) <= b.maxTokens {
		return text
	}
	if b.encoding == nil {
		runes := []rune(text)
		return string(runes[:min(len(runes), b.maxTokens*runesPerToken)])
	}
	tokens := b.encoding.Encode(text, nil, nil)
	return b.encoding.Decode(tokens[:b.maxTokens])
}
