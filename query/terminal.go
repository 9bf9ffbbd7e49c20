package query

import (
	"context"

	"github.com/das-systems/das-core/atom"
)

// Terminal is an immutable leaf describing a concrete Node, a concrete Link,
// or an UntypedVariable. Used as a shape descriptor inside a LinkTemplate's
// target list; when placed directly as the root of a query it produces
// exactly one QueryAnswer identifying its own handle.
type Terminal struct {
	atom       atom.Atom
	isVariable bool
	name       string
	out        *AnswerQueue
}

// NewNodeTerminal describes a concrete Node target.
func NewNodeTerminal(typeName, name string) (*Terminal, error) {
	n, err := atom.NewNode(typeName, name, nil)
	if err != nil {
		return nil, err
	}
	return &Terminal{atom: n, out: NewAnswerQueue()}, nil
}

// NewAtomTerminal references an already-known handle, resolved against
// decoder, corresponding to the ATOM query token.
func NewAtomTerminal(handle string, decoder atom.HandleDecoder) (*Terminal, error) {
	a, err := decoder.GetAtom(handle)
	if err != nil {
		return nil, err
	}
	return &Terminal{atom: a, out: NewAnswerQueue()}, nil
}

// NewLinkTerminal describes a concrete Link target built from the handles of
// its (already-terminal, non-variable) sub-targets.
func NewLinkTerminal(typeName string, targetHandles []string) (*Terminal, error) {
	l, err := atom.NewLink(typeName, targetHandles, nil)
	if err != nil {
		return nil, err
	}
	return &Terminal{atom: l, out: NewAnswerQueue()}, nil
}

// NewVariableTerminal describes an untyped variable target.
func NewVariableTerminal(name string) (*Terminal, error) {
	v, err := atom.NewUntypedVariable(name)
	if err != nil {
		return nil, err
	}
	return &Terminal{atom: v, isVariable: true, name: name, out: NewAnswerQueue()}, nil
}

func (t *Terminal) IsVariable() bool  { return t.isVariable }
func (t *Terminal) Name() string      { return t.name }
func (t *Terminal) Atom() atom.Atom   { return t.atom }
func (t *Terminal) Handle() string    { return t.atom.Handle() }
func (t *Terminal) Output() *AnswerQueue { return t.out }

// Run produces exactly one answer identifying the terminal's own handle,
// with importance 0 (terminals used as a query root carry no ranking).
func (t *Terminal) Run(ctx context.Context) error {
	defer t.out.Finish()
	t.out.Enqueue(NewHandleAnswer(t.atom.Handle(), 0))
	return nil
}
