// Package atom implements the content-addressed atom model: Node, Link,
// LinkSchema and UntypedVariable, plus the Assignment type used to record
// variable bindings discovered while matching a pattern against a concrete
// atom.
//
// Every Atom also implements handletrie.Value (Merge/String); the atomstore
// package nonetheless stores each atom in the trie inside its own atomValue
// wrapper.
package atom

import (
	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"

	"golang.org/x/xerrors"
)

// UndefinedType is the reserved type name an UntypedVariable is built with;
// no ordinary Node or Link may declare it.
const UndefinedType = hasher.UndefinedType

// WildcardString is the reserved schema-handle placeholder used by Wildcard
// atoms (UntypedVariable, LinkSchema) in place of a concrete handle.
const WildcardString = hasher.Wildcard

// WildcardHandle is the handle of WildcardString itself.
var WildcardHandle = hasher.WildcardHandle

var (
	// ErrEmptyType is returned when an atom is constructed with an empty type.
	ErrEmptyType = xerrors.New("atom: type must not be empty")
	// ErrUndefinedType is returned when an ordinary Node/Link is constructed
	// with the reserved UndefinedType.
	ErrUndefinedType = xerrors.New("atom: type must not be the reserved undefined type")
	// ErrEmptyName is returned when a Node or UntypedVariable is given an
	// empty name.
	ErrEmptyName = xerrors.New("atom: name must not be empty")
	// ErrNoTargets is returned when a Link or LinkSchema is constructed with
	// zero targets.
	ErrNoTargets = xerrors.New("atom: link must have at least one target")
	// ErrSchemaNotFrozen is returned when a build-time-only accessor is
	// called on a LinkSchema before build() has completed.
	ErrSchemaNotFrozen = xerrors.New("atom: link schema has not been built yet")
	// ErrSchemaFrozen is returned when a mutating LinkSchema construction
	// call is made after build() has already run.
	ErrSchemaFrozen = xerrors.New("atom: link schema is already built")
	// ErrSchemaNoVariables is returned when build() would produce a
	// LinkSchema with no variable or nested-schema position, which can never
	// usefully match more than one concrete link.
	ErrSchemaNoVariables = xerrors.New("atom: link schema has no variables or nested schemas")
	// ErrUnknownAtom is returned by a HandleDecoder when asked to resolve a
	// handle it has no atom for.
	ErrUnknownAtom = xerrors.New("atom: unknown handle")
)

// Atom is the common contract implemented by Node, Link, LinkSchema and
// UntypedVariable.
type Atom interface {
	handletrie.Value

	// Type returns the atom's declared type name.
	Type() string
	// Handle returns this atom's content-addressed handle.
	Handle() string
	// SchemaHandle returns the handle this atom contributes when it appears
	// as a target inside a LinkSchema under construction: Handle() for
	// ordinary atoms, WildcardString for wildcard atoms.
	SchemaHandle() string
	// Arity returns 0 for nodes, the target count for links.
	Arity() int
	// NamedTypeHash returns hasher.TypeHandle(Type()).
	NamedTypeHash() string
	// CompositeTypeHash returns the hash of this atom's composite type
	// vector (its own named type hash, plus recursively each target's
	// composite type hash for links).
	CompositeTypeHash(decoder HandleDecoder) (string, error)
	// MettaRepresentation renders this atom as a MeTTa expression.
	MettaRepresentation(decoder HandleDecoder) (string, error)
	// Match reports whether handle (the handle of some concrete, stored
	// atom) matches this atom, recording any variable bindings required to
	// make that true into assignment.
	Match(handle string, assignment *Assignment, decoder HandleDecoder) (bool, error)
}

// IsNode reports whether a is a Node (or UntypedVariable: a wildcard node).
func IsNode(a Atom) bool { return a.Arity() == 0 }

// IsLink reports whether a is a Link (or LinkSchema: a wildcard link).
func IsLink(a Atom) bool { return a.Arity() > 0 }

// HandleDecoder resolves a stored handle back into its Atom. AtomStore
// implements this so atoms can recursively inspect their targets.
type HandleDecoder interface {
	GetAtom(handle string) (Atom, error)
}

func xerrorsInsufficientStack(have, want int) error {
	return xerrors.Errorf("atom: link schema stack has %d atoms, need %d: %w", have, want, ErrSchemaNotFrozen)
}

func xerrorsArityMismatch(arity, stackSize int) error {
	return xerrors.Errorf("atom: link schema arity %d, stack has %d atoms: %w", arity, stackSize, ErrNoTargets)
}

func validateType(typeName string) error {
	if typeName == "" {
		return ErrEmptyType
	}
	if typeName == UndefinedType {
		return ErrUndefinedType
	}
	return nil
}
