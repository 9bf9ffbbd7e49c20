package hebbian

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func repeatHex(digit string) string {
	return strings.Repeat(digit, 32)
}

func TestCorrelateBuildsPairwiseEdges(t *testing.T) {
	net := New()
	cor := NewCorrelator(net)

	h1, h2, h3, h4 := repeatHex("1"), repeatHex("2"), repeatHex("3"), repeatHex("4")

	require.NoError(t, cor.Correlate([]string{h1, h2, h3, h4}))

	handles := []string{h1, h2, h3, h4}
	for i := 0; i < len(handles); i++ {
		for j := i + 1; j < len(handles); j++ {
			count, err := net.EdgeCount(handles[i], handles[j])
			require.NoError(t, err)
			require.Equal(t, 1, count, "edge %s->%s", handles[i], handles[j])
			count, err = net.EdgeCount(handles[j], handles[i])
			require.NoError(t, err)
			require.Equal(t, 1, count, "edge %s->%s", handles[j], handles[i])
		}
	}

	h5, h6 := repeatHex("5"), repeatHex("6")
	require.NoError(t, cor.Correlate([]string{h1, h2, h5, h6}))

	count, err := net.EdgeCount(h1, h2)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = net.EdgeCount(h1, h5)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = net.EdgeCount(h3, h5)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestCorrelateIsOrderInsensitiveWithinAPair(t *testing.T) {
	net := New()
	cor := NewCorrelator(net)

	a, b := repeatHex("a"), repeatHex("b")
	require.NoError(t, cor.Correlate([]string{b, a}))

	count, err := net.EdgeCount(a, b)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = net.EdgeCount(b, a)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStimulateFavorsCorrelatedPair(t *testing.T) {
	net := New()
	cor := NewCorrelator(net)

	h0, h1, h2, h3 := repeatHex("0"), repeatHex("1"), repeatHex("2"), repeatHex("3")

	require.NoError(t, cor.Correlate([]string{h0, h1}))
	require.NoError(t, cor.Correlate([]string{h2, h3}))

	spreader := NewTokenSpreader(net, DefaultSpreaderConfig())
	require.NoError(t, spreader.Stimulate(map[string]float64{
		h0:     1,
		h1:     1,
		SumKey: 2,
	}))

	sumPair := net.Importance(h0) + net.Importance(h1)
	sumOthers := net.Importance(h2) + net.Importance(h3)
	require.Greater(t, sumPair, sumOthers)
}

func TestStimulateRequiresSum(t *testing.T) {
	net := New()
	spreader := NewTokenSpreader(net, DefaultSpreaderConfig())
	err := spreader.Stimulate(map[string]float64{repeatHex("f"): 1})
	require.ErrorIs(t, err, ErrMissingSum)
}

func TestStimulateConservesTokensOnEmptyNetwork(t *testing.T) {
	net := New()
	spreader := NewTokenSpreader(net, DefaultSpreaderConfig())

	require.NoError(t, spreader.Stimulate(map[string]float64{
		repeatHex("9"): 1,
		SumKey:         1,
	}))

	total := 0.0
	net.Traverse(true, func(rec *NodeRecord) bool {
		total += rec.GetImportance()
		return false
	})
	net.mu.Lock()
	total += net.tokensToDistribute
	net.mu.Unlock()

	require.InDelta(t, 1.0, total, 1e-9)
}

func TestStimulateConservesTokensWithExistingNodes(t *testing.T) {
	net := New()
	cor := NewCorrelator(net)
	h0, h1 := repeatHex("0"), repeatHex("1")
	require.NoError(t, cor.Correlate([]string{h0, h1}))

	spreader := NewTokenSpreader(net, DefaultSpreaderConfig())
	require.NoError(t, spreader.Stimulate(map[string]float64{
		h0:     1,
		h1:     1,
		SumKey: 2,
	}))

	total := 0.0
	net.Traverse(true, func(rec *NodeRecord) bool {
		total += rec.GetImportance()
		return false
	})
	net.mu.Lock()
	total += net.tokensToDistribute
	net.mu.Unlock()

	require.True(t, math.Abs(1.0-total) < 1e-9, "expected conservation, got total=%v", total)
}
