package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenBudgetEstimateWithoutEncoding(t *testing.T) {
	t.Parallel()

	b := &TokenBudget{maxTokens: 2}
	require.Equal(t, 4, b.Count("abcdefghij"))
	require.Equal(t, "abcdef", b.Truncate("abcdefghij"))
	require.Equal(t, "abc", b.Truncate("abc"))
}

func TestTokenBudgetUnlimited(t *testing.T) {
	t.Parallel()

	var nilBudget *TokenBudget
	text := strings.Repeat("koffie ", 100)
	require.Equal(t, text, nilBudget.Truncate(text))
	require.Equal(t, text, (&TokenBudget{}).Truncate(text))
}
