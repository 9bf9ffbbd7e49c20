package atom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	atoms map[string]Atom
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{atoms: map[string]Atom{}}
}

func (d *fakeDecoder) put(a Atom) Atom {
	d.atoms[a.Handle()] = a
	return a
}

func (d *fakeDecoder) GetAtom(handle string) (Atom, error) {
	a, ok := d.atoms[handle]
	if !ok {
		return nil, ErrUnknownAtom
	}
	return a, nil
}

func TestNodeHandleAndMatch(t *testing.T) {
	n, err := NewNode("Symbol", "human", nil)
	require.NoError(t, err)
	require.Equal(t, 0, n.Arity())
	require.True(t, IsNode(n))

	a := NewAssignment()
	ok, err := n.Match(n.Handle(), a, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, a.VariableCount())

	ok, err = n.Match("not-the-handle", a, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNodeRejectsEmptyNameAndUndefinedType(t *testing.T) {
	_, err := NewNode("Symbol", "", nil)
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = NewNode(UndefinedType, "x", nil)
	require.ErrorIs(t, err, ErrUndefinedType)
}

func TestLinkHandleAndCompositeType(t *testing.T) {
	decoder := newFakeDecoder()
	human := decoder.put(mustNode(t, "Symbol", "human"))
	monkey := decoder.put(mustNode(t, "Symbol", "monkey"))

	link, err := NewLink("Expression", []string{human.Handle(), monkey.Handle()}, nil)
	require.NoError(t, err)
	decoder.put(link)
	require.Equal(t, 2, link.Arity())
	require.True(t, IsLink(link))

	cth, err := link.CompositeTypeHash(decoder)
	require.NoError(t, err)
	require.Len(t, cth, 32)

	metta, err := link.MettaRepresentation(decoder)
	require.NoError(t, err)
	require.Equal(t, "(human monkey)", metta)
}

func TestUntypedVariableBindsOnMatch(t *testing.T) {
	v, err := NewUntypedVariable("X")
	require.NoError(t, err)
	require.Equal(t, WildcardString, v.SchemaHandle())

	a := NewAssignment()
	ok, err := v.Match("someHandle0000000000000000000000", a, nil)
	require.NoError(t, err)
	require.True(t, ok)
	val, found := a.Get("X")
	require.True(t, found)
	require.Equal(t, "someHandle0000000000000000000000", val)

	ok, err = v.Match("otherHandle000000000000000000000", a, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLinkSchemaMatchesConcreteLinkAndBindsVariable(t *testing.T) {
	decoder := newFakeDecoder()
	human := decoder.put(mustNode(t, "Symbol", "human"))
	monkey := decoder.put(mustNode(t, "Symbol", "monkey"))
	link, err := NewLink("Expression", []string{human.Handle(), monkey.Handle()}, nil)
	require.NoError(t, err)
	decoder.put(link)

	schema, err := NewLinkSchema("Expression", 2, nil)
	require.NoError(t, err)
	require.NoError(t, schema.StackNode("Symbol", "human"))
	require.NoError(t, schema.StackUntypedVariable("X"))
	require.NoError(t, schema.Build())

	a := NewAssignment()
	ok, err := schema.Match(link.Handle(), a, decoder)
	require.NoError(t, err)
	require.True(t, ok)
	v, found := a.Get("X")
	require.True(t, found)
	require.Equal(t, monkey.Handle(), v)
}

func TestLinkSchemaRejectsNoVariableSchema(t *testing.T) {
	schema, err := NewLinkSchema("Expression", 2, nil)
	require.NoError(t, err)
	require.NoError(t, schema.StackNode("Symbol", "human"))
	require.NoError(t, schema.StackNode("Symbol", "monkey"))
	err = schema.Build()
	require.ErrorIs(t, err, ErrSchemaNoVariables)
}

func TestLinkSchemaFrozenAfterBuild(t *testing.T) {
	schema, err := NewLinkSchema("Expression", 1, nil)
	require.NoError(t, err)
	require.NoError(t, schema.StackUntypedVariable("X"))
	require.NoError(t, schema.Build())

	err = schema.StackUntypedVariable("Y")
	require.ErrorIs(t, err, ErrSchemaFrozen)
}

func TestLinkSchemaNestedLinkMatchesThroughInnerVariable(t *testing.T) {
	decoder := newFakeDecoder()
	human := decoder.put(mustNode(t, "Symbol", "human"))
	monkey := decoder.put(mustNode(t, "Symbol", "monkey"))
	inner, err := NewLink("Expression", []string{human.Handle(), monkey.Handle()}, nil)
	require.NoError(t, err)
	decoder.put(inner)
	outer, err := NewLink("Evaluation", []string{mustNode(t, "Symbol", "similarity").Handle(), inner.Handle()}, nil)
	require.NoError(t, err)
	decoder.put(mustNode(t, "Symbol", "similarity"))
	decoder.put(outer)

	schema, err := NewLinkSchema("Evaluation", 2, nil)
	require.NoError(t, err)
	require.NoError(t, schema.StackNode("Symbol", "similarity"))
	require.NoError(t, schema.StackNode("Symbol", "human"))
	require.NoError(t, schema.StackUntypedVariable("Y"))
	require.NoError(t, schema.StackLink("Expression", 2))
	require.NoError(t, schema.Build())

	a := NewAssignment()
	ok, err := schema.Match(outer.Handle(), a, decoder)
	require.NoError(t, err)
	require.True(t, ok)
	v, found := a.Get("Y")
	require.True(t, found)
	require.Equal(t, monkey.Handle(), v)
}

func TestAssignmentCompatibilityAndMerge(t *testing.T) {
	a := NewAssignment()
	require.True(t, a.Assign("X", "h1"))
	require.True(t, a.Assign("Y", "h2"))

	b := NewAssignment()
	require.True(t, b.Assign("X", "h1"))
	require.True(t, b.Assign("Z", "h3"))

	require.True(t, a.IsCompatible(b))

	c := NewAssignment()
	require.True(t, c.Assign("X", "different"))
	require.False(t, a.IsCompatible(c))

	merged := a.Clone()
	merged.AddAssignments(b)
	require.Equal(t, 3, merged.VariableCount())
}

func TestUniqueAssignmentRejectsSharedValue(t *testing.T) {
	a := NewAssignment()
	a.UniqueAssignment = true
	require.True(t, a.Assign("X", "h1"))
	require.False(t, a.Assign("Y", "h1"))
}

func mustNode(t *testing.T, typeName, name string) *Node {
	t.Helper()
	n, err := NewNode(typeName, name, nil)
	require.NoError(t, err)
	return n
}
