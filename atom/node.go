package atom

import (
	"fmt"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// Node is a terminal atom: a typed, named leaf of the hypergraph.
type Node struct {
	typeName   string
	name       string
	attributes Properties
	handle     string
}

// NewNode constructs a Node, computing and caching its handle.
func NewNode(typeName, name string, attributes Properties) (*Node, error) {
	if err := validateType(typeName); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	h, err := hasher.NodeHandle(typeName, name)
	if err != nil {
		return nil, err
	}
	return &Node{typeName: typeName, name: name, attributes: attributes, handle: h}, nil
}

func (n *Node) Type() string           { return n.typeName }
func (n *Node) Name() string           { return n.name }
func (n *Node) Attributes() Properties { return n.attributes }
func (n *Node) Handle() string         { return n.handle }
func (n *Node) SchemaHandle() string   { return n.handle }
func (n *Node) Arity() int             { return 0 }
func (n *Node) NamedTypeHash() string  { return hasher.TypeHandle(n.typeName) }

func (n *Node) CompositeTypeHash(decoder HandleDecoder) (string, error) {
	return n.NamedTypeHash(), nil
}

func (n *Node) MettaRepresentation(decoder HandleDecoder) (string, error) {
	return n.name, nil
}

// Match reports whether handle equals this Node's own handle: nodes are
// concrete, so matching never produces a new variable binding.
func (n *Node) Match(handle string, assignment *Assignment, decoder HandleDecoder) (bool, error) {
	return handle == n.handle, nil
}

// Merge implements handletrie.Value: two Node insertions under the same
// handle are, by construction, the same atom, so merging is a no-op.
func (n *Node) Merge(other handletrie.Value) {}

func (n *Node) String() string {
	return fmt.Sprintf("Node(type: %q, name: %q, custom_attributes: %s)", n.typeName, n.name, n.attributes)
}
