package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/atomstore"
)

type zeroImportance struct{}

func (zeroImportance) GetImportance(context string, handles []string) ([]float64, error) {
	out := make([]float64, len(handles))
	return out, nil
}

func mustNode(t *testing.T, typeName, name string) *atom.Node {
	t.Helper()
	n, err := atom.NewNode(typeName, name, nil)
	require.NoError(t, err)
	return n
}

func mustTerminalNode(t *testing.T, typeName, name string) *Terminal {
	t.Helper()
	tm, err := NewNodeTerminal(typeName, name)
	require.NoError(t, err)
	return tm
}

func mustTerminalVariable(t *testing.T, name string) *Terminal {
	t.Helper()
	tm, err := NewVariableTerminal(name)
	require.NoError(t, err)
	return tm
}

// TestInsertAndQuery reproduces spec.md §8 scenario (a): a single
// LINK_TEMPLATE with two concrete targets and one variable matches exactly
// the one stored link, binding the variable to the remaining target.
func TestInsertAndQuery(t *testing.T) {
	store := atomstore.New("", nil)

	sim := mustNode(t, "Symbol", "Similarity")
	human := mustNode(t, "Symbol", "\"human\"")
	monkey := mustNode(t, "Symbol", "\"monkey\"")
	_, err := store.AddNode(sim, false)
	require.NoError(t, err)
	_, err = store.AddNode(human, false)
	require.NoError(t, err)
	_, err = store.AddNode(monkey, false)
	require.NoError(t, err)

	link, err := atom.NewLink("Expression", []string{sim.Handle(), human.Handle(), monkey.Handle()}, nil)
	require.NoError(t, err)
	linkHandle, err := store.AddLink(link, false)
	require.NoError(t, err)

	lt, err := NewLinkTemplate("Expression", []TemplateTarget{
		mustTerminalNode(t, "Symbol", "Similarity"),
		mustTerminalNode(t, "Symbol", "\"human\""),
		mustTerminalVariable(t, "v1"),
	}, store, zeroImportance{}, "")
	require.NoError(t, err)

	it := NewIterator(lt)
	require.NoError(t, it.Run(context.Background()))

	var answers []*QueryAnswer
	for !it.Finished() {
		if a, ok := it.Pop(); ok {
			answers = append(answers, a)
		}
	}

	require.Len(t, answers, 1)
	require.Equal(t, linkHandle, answers[0].Handles[0])
	v, ok := answers[0].Assignment.Get("v1")
	require.True(t, ok)
	require.Equal(t, monkey.Handle(), v)
}

// TestANDJoin reproduces spec.md §8 scenario (b): two LINK_TEMPLATEs sharing
// a variable are ANDed; only assignments consistent across both survive.
func TestANDJoin(t *testing.T) {
	store := atomstore.New("", nil)
	human := mustNode(t, "Symbol", "\"human\"")
	plant := mustNode(t, "Symbol", "\"plant\"")
	monkey := mustNode(t, "Symbol", "\"monkey\"")
	for _, n := range []*atom.Node{human, plant, monkey} {
		_, err := store.AddNode(n, false)
		require.NoError(t, err)
	}

	simLink, err := atom.NewLink("Expression", []string{
		mustNode(t, "Symbol", "Similarity").Handle(), monkey.Handle(), human.Handle(),
	}, nil)
	require.NoError(t, err)
	_, err = store.AddLink(simLink, false)
	require.NoError(t, err)

	inhLink, err := atom.NewLink("Expression", []string{
		mustNode(t, "Symbol", "Inheritance").Handle(), monkey.Handle(), plant.Handle(),
	}, nil)
	require.NoError(t, err)
	_, err = store.AddLink(inhLink, false)
	require.NoError(t, err)

	lt1, err := NewLinkTemplate("Expression", []TemplateTarget{
		mustTerminalNode(t, "Symbol", "Similarity"),
		mustTerminalVariable(t, "v1"),
		mustTerminalNode(t, "Symbol", "\"human\""),
	}, store, zeroImportance{}, "")
	require.NoError(t, err)

	lt2, err := NewLinkTemplate("Expression", []TemplateTarget{
		mustTerminalNode(t, "Symbol", "Inheritance"),
		mustTerminalVariable(t, "v1"),
		mustTerminalNode(t, "Symbol", "\"plant\""),
	}, store, zeroImportance{}, "")
	require.NoError(t, err)

	and, err := NewAND([]Source{lt1, lt2})
	require.NoError(t, err)

	it := NewIterator(and)
	require.NoError(t, it.Run(context.Background()))
	var answers []*QueryAnswer
	for !it.Finished() {
		if a, ok := it.Pop(); ok {
			answers = append(answers, a)
		}
	}

	require.Len(t, answers, 1)
	v, ok := answers[0].Assignment.Get("v1")
	require.True(t, ok)
	require.Equal(t, monkey.Handle(), v)
}

// TestORUnion reproduces spec.md §8 scenario (c): the union of two
// LINK_TEMPLATEs de-duplicated, preserving descending-importance order.
func TestORUnion(t *testing.T) {
	store := atomstore.New("", nil)
	human := mustNode(t, "Symbol", "\"human\"")
	snake := mustNode(t, "Symbol", "\"snake\"")
	monkey := mustNode(t, "Symbol", "\"monkey\"")
	for _, n := range []*atom.Node{human, snake, monkey} {
		_, err := store.AddNode(n, false)
		require.NoError(t, err)
	}

	simHuman, err := atom.NewLink("Expression", []string{
		mustNode(t, "Symbol", "Similarity").Handle(), monkey.Handle(), human.Handle(),
	}, nil)
	require.NoError(t, err)
	_, err = store.AddLink(simHuman, false)
	require.NoError(t, err)

	simSnake, err := atom.NewLink("Expression", []string{
		mustNode(t, "Symbol", "Similarity").Handle(), monkey.Handle(), snake.Handle(),
	}, nil)
	require.NoError(t, err)
	_, err = store.AddLink(simSnake, false)
	require.NoError(t, err)

	lt1, err := NewLinkTemplate("Expression", []TemplateTarget{
		mustTerminalNode(t, "Symbol", "Similarity"),
		mustTerminalVariable(t, "v1"),
		mustTerminalNode(t, "Symbol", "\"human\""),
	}, store, zeroImportance{}, "")
	require.NoError(t, err)

	lt2, err := NewLinkTemplate("Expression", []TemplateTarget{
		mustTerminalNode(t, "Symbol", "Similarity"),
		mustTerminalVariable(t, "v1"),
		mustTerminalNode(t, "Symbol", "\"snake\""),
	}, store, zeroImportance{}, "")
	require.NoError(t, err)

	or, err := NewOR([]Source{lt1, lt2})
	require.NoError(t, err)

	it := NewIterator(or)
	require.NoError(t, it.Run(context.Background()))
	var answers []*QueryAnswer
	for !it.Finished() {
		if a, ok := it.Pop(); ok {
			answers = append(answers, a)
		}
	}
	require.Len(t, answers, 2)
}
