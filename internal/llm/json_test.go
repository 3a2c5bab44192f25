package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence without language", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "surrounding prose", in: "Sure! Here it is: {\"a\":{\"b\":2}} Hope that helps.", want: `{"a":{"b":2}}`},
		{name: "array", in: `result: ["x","y"]`, want: `["x","y"]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, got)
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	t.Parallel()

	_, err := ExtractJSON("no json here")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON(`{"a": }`)
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestDecodeJSONIsWeaklyTyped(t *testing.T) {
	t.Parallel()

	var out struct {
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"count\": \"12\", \"tags\": \"solo\"}\n```", &out))
	require.Equal(t, 12, out.Count)
	require.Equal(t, []string{"solo"}, out.Tags)
}
