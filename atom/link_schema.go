package atom

import (
	"strings"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// LinkSchema is a wildcard link: a pattern built target-by-target through a
// construction-stack protocol (StackNode/StackUntypedVariable/StackLink,
// finished by Build) and frozen thereafter. It matches any concrete Link
// whose type, arity and targets are compatible, binding variables found at
// any nesting depth.
type LinkSchema struct {
	typeName string
	arity    int
	frozen   bool

	targets           []Atom
	compositeType     []string
	compositeTypeHash string
	handle            string
	metta             string
	attributes        Properties

	stack []Atom
}

// NewLinkSchema begins constructing a LinkSchema of the given type and
// arity. Push targets with StackNode/StackUntypedVariable/StackLink (in the
// order targets should appear; StackLink folds entries already on the stack
// into one nested target) until the stack holds exactly arity entries, then
// Build.
func NewLinkSchema(typeName string, arity int, attributes Properties) (*LinkSchema, error) {
	if err := validateType(typeName); err != nil {
		return nil, err
	}
	if arity == 0 {
		return nil, ErrNoTargets
	}
	return &LinkSchema{typeName: typeName, arity: arity, attributes: attributes}, nil
}

func (s *LinkSchema) checkNotFrozen() error {
	if s.frozen {
		return ErrSchemaFrozen
	}
	return nil
}

// StackAtom pushes any already-built Atom (a concrete Node or Link, an
// UntypedVariable, or even another frozen LinkSchema) directly onto the
// construction stack as the next target. StackNode and StackUntypedVariable
// are convenience wrappers around this for the two most common leaf kinds;
// StackAtom itself is what lets a query-language ATOM token (an arbitrary
// already-resolved atom used as a literal match target) or a concrete Link
// target take part in a schema the same way.
func (s *LinkSchema) StackAtom(a Atom) error {
	if err := s.checkNotFrozen(); err != nil {
		return err
	}
	s.stack = append(s.stack, a)
	return nil
}

// StackNode pushes a concrete Node target onto the construction stack.
func (s *LinkSchema) StackNode(typeName, name string) error {
	n, err := NewNode(typeName, name, nil)
	if err != nil {
		return err
	}
	return s.StackAtom(n)
}

// StackUntypedVariable pushes a wildcard variable target onto the
// construction stack.
func (s *LinkSchema) StackUntypedVariable(name string) error {
	v, err := NewUntypedVariable(name)
	if err != nil {
		return err
	}
	return s.StackAtom(v)
}

// StackLink pops the top linkArity atoms off the construction stack (in the
// order they were pushed) and pushes a single nested LinkSchema target built
// from them, implementing the nested-LinkTemplate construction the query
// pipeline relies on.
func (s *LinkSchema) StackLink(typeName string, linkArity int) error {
	if err := s.checkNotFrozen(); err != nil {
		return err
	}
	if linkArity == 0 {
		return ErrNoTargets
	}
	if len(s.stack) < linkArity {
		return xerrorsInsufficientStack(len(s.stack), linkArity)
	}
	split := len(s.stack) - linkArity
	popped := append([]Atom(nil), s.stack[split:]...)
	s.stack = s.stack[:split]

	nested, err := newNestedLinkSchema(typeName, popped)
	if err != nil {
		return err
	}
	s.stack = append(s.stack, nested)
	return nil
}

// Build finishes construction: the stack must hold exactly arity atoms, each
// becomes a target in order, and the schema is frozen. At least one target
// (at the top level) must be a variable or nested schema; a LinkSchema with
// no variables can never match more than the single link it already
// describes in full, which is the Link constructor's job instead.
func (s *LinkSchema) Build() error {
	if err := s.checkNotFrozen(); err != nil {
		return err
	}
	if len(s.stack) != s.arity {
		return xerrorsArityMismatch(s.arity, len(s.stack))
	}
	for _, a := range s.stack {
		if err := s.addTarget(a); err != nil {
			return err
		}
	}
	s.stack = nil
	if err := s.validate(); err != nil {
		return err
	}
	return nil
}

func (s *LinkSchema) addTarget(a Atom) error {
	s.targets = append(s.targets, a)
	cth, err := a.CompositeTypeHash(nil)
	if err != nil {
		return err
	}
	s.compositeType = append(s.compositeType, cth)
	rep, err := a.MettaRepresentation(nil)
	if err != nil {
		return err
	}
	if len(s.targets) == 1 {
		s.metta = "(" + rep
	} else {
		s.metta += " " + rep
	}
	if len(s.targets) == s.arity {
		s.metta += ")"
		s.frozen = true

		schemaHandles := make([]string, len(s.targets))
		for i, t := range s.targets {
			schemaHandles[i] = t.SchemaHandle()
		}
		handle, err := hasher.LinkHandle(s.typeName, schemaHandles)
		if err != nil {
			return err
		}
		s.handle = handle

		fullComposite := append([]string{s.NamedTypeHash()}, s.compositeType...)
		compositeHash, err := hasher.CompositeHandle(fullComposite)
		if err != nil {
			return err
		}
		s.compositeTypeHash = compositeHash
	}
	return nil
}

func (s *LinkSchema) validate() error {
	for _, t := range s.targets {
		if t.SchemaHandle() == WildcardString {
			return nil
		}
	}
	return ErrSchemaNoVariables
}

// newNestedLinkSchema builds an already-frozen LinkSchema from atoms already
// popped off an enclosing construction stack. It skips the "must have at
// least one variable" check, which only binds at the outermost Build call.
func newNestedLinkSchema(typeName string, targets []Atom) (*LinkSchema, error) {
	if err := validateType(typeName); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	s := &LinkSchema{typeName: typeName, arity: len(targets)}
	for _, a := range targets {
		if err := s.addTarget(a); err != nil {
			return nil, err
		}
	}
	s.frozen = true
	return s, nil
}

func (s *LinkSchema) Type() string         { return s.typeName }
func (s *LinkSchema) Handle() string       { return s.handle }
func (s *LinkSchema) SchemaHandle() string { return WildcardString }
func (s *LinkSchema) Arity() int           { return s.arity }
func (s *LinkSchema) Targets() []Atom      { return s.targets }
func (s *LinkSchema) NamedTypeHash() string {
	return hasher.TypeHandle(s.typeName)
}

func (s *LinkSchema) CompositeTypeHash(decoder HandleDecoder) (string, error) {
	if !s.frozen {
		return "", ErrSchemaNotFrozen
	}
	return s.compositeTypeHash, nil
}

func (s *LinkSchema) MettaRepresentation(decoder HandleDecoder) (string, error) {
	if !s.frozen {
		return "", ErrSchemaNotFrozen
	}
	return s.metta, nil
}

// Match resolves handle to a concrete Link through decoder and checks type,
// arity and every target position, recursing through nested LinkSchema
// targets and binding UntypedVariable targets into assignment.
func (s *LinkSchema) Match(handle string, assignment *Assignment, decoder HandleDecoder) (bool, error) {
	candidate, err := decoder.GetAtom(handle)
	if err != nil {
		return false, err
	}
	return s.MatchAtom(candidate, assignment, decoder)
}

// MatchAtom behaves like Match, but takes an already-resolved candidate atom
// instead of a handle to look up. Callers that already hold the candidate
// (e.g. the atomstore indexing a link it is in the middle of inserting) use
// this to avoid a redundant, potentially lock-reentering decoder round trip
// for the top-level candidate; nested LinkSchema targets still resolve
// their own sub-handles through decoder as usual.
func (s *LinkSchema) MatchAtom(candidate Atom, assignment *Assignment, decoder HandleDecoder) (bool, error) {
	if !s.frozen {
		return false, ErrSchemaNotFrozen
	}
	link, ok := candidate.(*Link)
	if !ok || link.Arity() != s.arity {
		return false, nil
	}
	if s.typeName != WildcardString && link.Type() != s.typeName {
		return false, nil
	}
	for i, target := range s.targets {
		matched, err := target.Match(link.targets[i], assignment, decoder)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// Merge implements handletrie.Value; LinkSchemas are patterns, not stored
// atoms, but the method is provided so the type satisfies Atom uniformly.
func (s *LinkSchema) Merge(other handletrie.Value) {}

func (s *LinkSchema) String() string {
	if !s.frozen {
		return "LinkSchema(type: " + s.typeName + ", <unbuilt>)"
	}
	handles := make([]string, len(s.targets))
	for i, t := range s.targets {
		handles[i] = t.SchemaHandle()
	}
	return "LinkSchema(type: '" + s.typeName + "', targets: [" + strings.Join(handles, ", ") + "], custom_attributes: " + s.attributes.String() + ")"
}
