package sha256

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got := h.Hash([]byte("hello world"))
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
	require.Equal(t, got, h.Hash([]byte("hello world")))
}

func TestHashJSONIgnoresMapOrder(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.HashJSON(map[string]int{"espresso": 1, "bonen": 2})
	require.NoError(t, err)
	b, err := h.HashJSON(map[string]int{"bonen": 2, "espresso": 1})
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := h.HashJSON(map[string]int{"bonen": 3, "espresso": 1})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestHashJSONRejectsUnencodable(t *testing.T) {
	t.Parallel()

	_, err := New().HashJSON(math.Inf(1))
	require.Error(t, err)
}
