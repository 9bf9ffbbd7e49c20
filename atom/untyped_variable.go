package atom

import (
	"fmt"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// UntypedVariable is a wildcard node: it matches any node or link handle and
// binds its name to whatever it matched.
type UntypedVariable struct {
	name   string
	handle string
}

// NewUntypedVariable constructs an UntypedVariable bound to name.
func NewUntypedVariable(name string) (*UntypedVariable, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	h, err := hasher.NodeHandle(UndefinedType, name)
	if err != nil {
		return nil, err
	}
	return &UntypedVariable{name: name, handle: h}, nil
}

func (v *UntypedVariable) Type() string          { return UndefinedType }
func (v *UntypedVariable) Name() string          { return v.name }
func (v *UntypedVariable) Handle() string        { return v.handle }
func (v *UntypedVariable) SchemaHandle() string   { return WildcardString }
func (v *UntypedVariable) Arity() int             { return 0 }
func (v *UntypedVariable) NamedTypeHash() string  { return hasher.TypeHandle(UndefinedType) }

func (v *UntypedVariable) CompositeTypeHash(decoder HandleDecoder) (string, error) {
	return v.NamedTypeHash(), nil
}

func (v *UntypedVariable) MettaRepresentation(decoder HandleDecoder) (string, error) {
	return "$" + v.name, nil
}

// Match always succeeds, binding v's name to handle in assignment. It fails
// only if assignment already binds v's name to a different handle.
func (v *UntypedVariable) Match(handle string, assignment *Assignment, decoder HandleDecoder) (bool, error) {
	return assignment.Assign(v.name, handle), nil
}

// Merge implements handletrie.Value; UntypedVariable atoms are never stored
// directly in a trie (they only ever appear as LinkSchema targets), but the
// method is provided so the type satisfies the Atom interface uniformly.
func (v *UntypedVariable) Merge(other handletrie.Value) {}

func (v *UntypedVariable) String() string {
	return fmt.Sprintf("UntypedVariable(name: %q)", v.name)
}
