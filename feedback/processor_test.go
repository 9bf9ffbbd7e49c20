package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/atomstore"
	"github.com/das-systems/das-core/attention"
	"github.com/das-systems/das-core/hebbian"
)

func buildStore(t *testing.T) (*atomstore.Store, string, string, string) {
	t.Helper()
	store := atomstore.New("", nil)

	a, err := atom.NewNode("Symbol", "a", nil)
	require.NoError(t, err)
	b, err := atom.NewNode("Symbol", "b", nil)
	require.NoError(t, err)
	_, err = store.AddNode(a, false)
	require.NoError(t, err)
	_, err = store.AddNode(b, false)
	require.NoError(t, err)

	link, err := atom.NewLink("Expression", []string{a.Handle(), b.Handle()}, nil)
	require.NoError(t, err)
	linkHandle, err := store.AddLink(link, false)
	require.NoError(t, err)

	return store, linkHandle, a.Handle(), b.Handle()
}

func TestObserveExpandsClosureAndFlushesAtThreshold(t *testing.T) {
	store, linkHandle, aHandle, bHandle := buildStore(t)
	service := attention.NewService(hebbian.DefaultSpreaderConfig())

	p := NewProcessor(store, service, "")
	p.correlationThreshold = 3 // force a flush well before the production default

	require.NoError(t, p.Observe(context.Background(), []string{linkHandle}))

	require.Empty(t, p.order, "flush should have cleared the accumulator")
	require.Equal(t, 1, p.flushes)

	importances, err := service.GetImportance("", []string{aHandle, bHandle})
	require.NoError(t, err)
	require.Len(t, importances, 2)
}

func TestObserveStopsAfterMaxFlushes(t *testing.T) {
	store, linkHandle, _, _ := buildStore(t)
	service := attention.NewService(hebbian.DefaultSpreaderConfig())
	p := NewProcessor(store, service, "")
	p.correlationThreshold = 1
	p.maxFlushes = 1

	require.NoError(t, p.Observe(context.Background(), []string{linkHandle}))
	require.Equal(t, 1, p.flushes)

	require.NoError(t, p.Observe(context.Background(), []string{linkHandle}))
	require.Equal(t, 1, p.flushes, "a second flush should be a no-op once maxFlushes is reached")
}

func TestClosureStopsAtNonLinkHandles(t *testing.T) {
	store, linkHandle, aHandle, bHandle := buildStore(t)
	p := NewProcessor(store, attention.NewService(hebbian.DefaultSpreaderConfig()), "")

	closure := p.closure([]string{linkHandle})
	require.ElementsMatch(t, []string{linkHandle, aHandle, bHandle}, closure)
}
