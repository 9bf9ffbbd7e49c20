package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeUntokenizeRoundTrip(t *testing.T) {
	qa := NewQueryAnswer()
	qa.Strength = 0.5
	qa.Importance = 0.25
	qa.Handles = []string{
		"11111111111111111111111111111111",
		"22222222222222222222222222222222",
	}
	qa.Assignment.Assign("v1", "33333333333333333333333333333333")
	qa.MettaExpression = map[string]string{
		"11111111111111111111111111111111": "(Similarity human monkey)",
		"22222222222222222222222222222222": "bare_symbol",
	}

	tokens, err := qa.Tokenize()
	require.NoError(t, err)

	back, err := Untokenize(tokens)
	require.NoError(t, err)

	require.Equal(t, qa.Strength, back.Strength)
	require.Equal(t, qa.Importance, back.Importance)
	require.Equal(t, qa.Handles, back.Handles)
	v, ok := back.Assignment.Get("v1")
	require.True(t, ok)
	require.Equal(t, "33333333333333333333333333333333", v)
	require.Equal(t, qa.MettaExpression, back.MettaExpression)

	tokensAgain, err := back.Tokenize()
	require.NoError(t, err)
	require.Equal(t, tokens, tokensAgain)
}

func TestTokenizeRejectsTooManyHandles(t *testing.T) {
	qa := NewQueryAnswer()
	qa.Handles = make([]string, MaxNumberOfOperationClauses+1)
	for i := range qa.Handles {
		qa.Handles[i] = "11111111111111111111111111111111"
	}
	_, err := qa.Tokenize()
	require.ErrorIs(t, err, ErrInvalidTokenString)
}

func TestUntokenizeRejectsGarbage(t *testing.T) {
	_, err := Untokenize("not a valid token string")
	require.ErrorIs(t, err, ErrInvalidTokenString)
}

func TestMergeFailsOnIncompatibleAssignment(t *testing.T) {
	a := NewHandleAnswer("h1", 0.1)
	a.Assignment.Assign("v1", "x")
	b := NewHandleAnswer("h2", 0.2)
	b.Assignment.Assign("v1", "y")

	require.False(t, a.Merge(b))
}

func TestMergeTakesMaxImportanceAndProductStrength(t *testing.T) {
	a := NewHandleAnswer("h1", 0.1)
	a.Strength = 2
	b := NewHandleAnswer("h2", 0.4)
	b.Strength = 3

	require.True(t, a.Merge(b))
	require.Equal(t, 0.4, a.Importance)
	require.Equal(t, float64(6), a.Strength)
	require.ElementsMatch(t, []string{"h1", "h2"}, a.Handles)
}
