package atom

import (
	"fmt"
	"strings"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// Link is a composite atom: a typed tuple of target handles.
type Link struct {
	typeName   string
	targets    []string
	attributes Properties
	handle     string
}

// NewLink constructs a Link over the given target handles, computing and
// caching its handle.
func NewLink(typeName string, targets []string, attributes Properties) (*Link, error) {
	if err := validateType(typeName); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	h, err := hasher.LinkHandle(typeName, targets)
	if err != nil {
		return nil, err
	}
	return &Link{typeName: typeName, targets: append([]string(nil), targets...), attributes: attributes, handle: h}, nil
}

func (l *Link) Type() string           { return l.typeName }
func (l *Link) Targets() []string      { return l.targets }
func (l *Link) Attributes() Properties { return l.attributes }
func (l *Link) Handle() string         { return l.handle }
func (l *Link) SchemaHandle() string   { return l.handle }
func (l *Link) Arity() int             { return len(l.targets) }
func (l *Link) NamedTypeHash() string  { return hasher.TypeHandle(l.typeName) }

// CompositeTypeHash hashes this link's composite type vector: its own named
// type hash followed by each target's composite type hash, resolved
// recursively through decoder.
func (l *Link) CompositeTypeHash(decoder HandleDecoder) (string, error) {
	elements := make([]string, 0, len(l.targets)+1)
	elements = append(elements, l.NamedTypeHash())
	for _, target := range l.targets {
		a, err := decoder.GetAtom(target)
		if err != nil {
			return "", err
		}
		th, err := a.CompositeTypeHash(decoder)
		if err != nil {
			return "", err
		}
		elements = append(elements, th)
	}
	return hasher.CompositeHandle(elements)
}

// MettaRepresentation renders "(target0 target1 ...)", resolving each target
// recursively through decoder.
func (l *Link) MettaRepresentation(decoder HandleDecoder) (string, error) {
	parts := make([]string, len(l.targets))
	for i, target := range l.targets {
		a, err := decoder.GetAtom(target)
		if err != nil {
			return "", err
		}
		rep, err := a.MettaRepresentation(decoder)
		if err != nil {
			return "", err
		}
		parts[i] = rep
	}
	return "(" + strings.Join(parts, " ") + ")", nil
}

// Match reports whether handle equals this Link's own handle: links are
// concrete, so matching never produces a new variable binding.
func (l *Link) Match(handle string, assignment *Assignment, decoder HandleDecoder) (bool, error) {
	return handle == l.handle, nil
}

// Merge implements handletrie.Value: two Link insertions under the same
// handle are, by construction, the same atom, so merging is a no-op.
func (l *Link) Merge(other handletrie.Value) {}

func (l *Link) String() string {
	return fmt.Sprintf("Link(type: %q, targets: [%s], custom_attributes: %s)", l.typeName, strings.Join(l.targets, ", "), l.attributes)
}
