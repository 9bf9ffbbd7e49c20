package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeIsStable(t *testing.T) {
	h1 := Compute("Symbol human")
	h2 := Compute("Symbol human")
	require.Equal(t, h1, h2)
	require.Len(t, h1, HandleSize)
}

func TestNodeHandleMatchesTerminalLayout(t *testing.T) {
	h, err := NodeHandle("Symbol", "human")
	require.NoError(t, err)
	require.Equal(t, Compute("Symbol human"), h)
}

func TestLinkHandleIsCompositeOverTypeHandle(t *testing.T) {
	th := TypeHandle("Expression")
	h, err := LinkHandle("Expression", []string{"aaa", "bbb"})
	require.NoError(t, err)
	want, err := CompositeHandle([]string{th, "aaa", "bbb"})
	require.NoError(t, err)
	require.Equal(t, want, h)
}

func TestCompositeHandleRejectsOversizedElement(t *testing.T) {
	big := strings.Repeat("x", MaxLiteralOrSymbolSize+1)
	_, err := CompositeHandle([]string{big})
	require.ErrorIs(t, err, ErrInputTooLarge)
}

func TestNodeHandleRejectsOversizedTerminal(t *testing.T) {
	big := strings.Repeat("x", MaxHashableStringSize)
	_, err := NodeHandle("Symbol", big)
	require.ErrorIs(t, err, ErrInputTooLarge)
}

func TestWildcardHandleIsDeterministic(t *testing.T) {
	require.Equal(t, Compute(Wildcard), WildcardHandle)
}
