package attention

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/das-systems/das-core/hebbian"
)

func repeatHex(digit string) string {
	return strings.Repeat(digit, 32)
}

func TestServicePing(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	require.NoError(t, s.Ping())
}

func TestServiceDefaultContextIsGlobal(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	h := repeatHex("1")
	require.NoError(t, s.Correlate("", []string{h}))

	importances, err := s.GetImportance(DefaultContext, []string{h})
	require.NoError(t, err)
	require.Len(t, importances, 1)
}

func TestServiceUnknownHandleImportanceIsZero(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	importances, err := s.GetImportance("ctx", []string{repeatHex("9")})
	require.NoError(t, err)
	require.Equal(t, []float64{0}, importances)
}

func TestServiceContextsAreIsolated(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	h0, h1 := repeatHex("0"), repeatHex("1")
	require.NoError(t, s.Correlate("alpha", []string{h0, h1}))
	require.NoError(t, s.Stimulate("alpha", map[string]float64{h0: 1, h1: 1, hebbian.SumKey: 2}))

	betaImportance, err := s.GetImportance("beta", []string{h0})
	require.NoError(t, err)
	require.Equal(t, []float64{0}, betaImportance, "a context never stimulated should stay untouched")
}

func TestPoolStimulateAndCorrelate(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	pool := NewPool(s, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	h0, h1 := repeatHex("2"), repeatHex("3")
	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()

	require.NoError(t, pool.Correlate(reqCtx, "", []string{h0, h1}))
	require.NoError(t, pool.Stimulate(reqCtx, "", map[string]float64{h0: 1, h1: 1, hebbian.SumKey: 2}))

	importances, err := s.GetImportance("", []string{h0, h1})
	require.NoError(t, err)
	require.Greater(t, importances[0]+importances[1], 0.0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	require.NoError(t, pool.Shutdown(shutdownCtx))
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	s := NewService(hebbian.DefaultSpreaderConfig())
	pool := NewPool(s, 2, nil)
	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Shutdown(ctx))

	err := pool.Correlate(ctx, "", []string{repeatHex("4")})
	require.ErrorIs(t, err, ErrPoolStopped)
}

func TestEvenThreadCountSelector(t *testing.T) {
	var sel EvenThreadCount
	require.Equal(t, StimulateQueue, sel.Assign(0))
	require.Equal(t, CorrelateQueue, sel.Assign(1))
	require.Equal(t, StimulateQueue, sel.Assign(2))
	require.Equal(t, CorrelateQueue, sel.Assign(3))
}
