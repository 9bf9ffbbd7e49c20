package hebbian

import (
	"sync"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// Network is one Hebbian graph: a HandleTrie of NodeRecords, each owning its
// own HandleTrie of outgoing EdgeRecords (§3.5). A Network is the unit the
// Attention subsystem partitions by context (§4.8): one Network per context.
type Network struct {
	nodes *handletrie.Trie

	// mu guards largestArity and tokensToDistribute, the two pieces of
	// network-wide (not per-node) state.
	mu                 sync.Mutex
	largestArity       int
	tokensToDistribute float64

	// stimMu serialises whole stimulate cycles against each other and
	// against correlate's structural writes (see DESIGN.md: the three
	// root-locked traversals a cycle performs need to appear atomic to a
	// concurrent correlate call, which Traverse's per-traversal root lock
	// alone would not guarantee across the three of them).
	stimMu sync.Mutex
}

// New returns an empty Network seeded with 1.0 token to distribute, the
// "unit of tokens" spec.md §4.7 step 2 says the network starts with.
func New() *Network {
	return &Network{
		nodes:              handletrie.New(hasher.HandleSize),
		tokensToDistribute: 1.0,
	}
}

// AlienateTokens atomically reads and resets the tokens-to-distribute
// accumulator (§4.7 step 2).
func (net *Network) AlienateTokens() float64 {
	net.mu.Lock()
	defer net.mu.Unlock()
	t := net.tokensToDistribute
	net.tokensToDistribute = 0
	return t
}

// LargestArity returns the largest Arity observed across all nodes, used by
// the spreading rate calculation (§4.7 step 4).
func (net *Network) LargestArity() int {
	net.mu.Lock()
	defer net.mu.Unlock()
	return net.largestArity
}

// EnsureNode inserts (or merges into) a NodeRecord for handle, returning the
// resulting stored record.
func (net *Network) EnsureNode(handle string) (*NodeRecord, error) {
	v, err := net.nodes.Insert(handle, NewNodeRecord(handle))
	if err != nil {
		return nil, err
	}
	return v.(*NodeRecord), nil
}

// LookupNode returns the NodeRecord for handle, if one has been observed.
func (net *Network) LookupNode(handle string) (*NodeRecord, bool, error) {
	v, ok, err := net.nodes.Lookup(handle)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.(*NodeRecord), true, nil
}

// Importance returns handle's current importance, or 0 if it has never been
// observed (the documented "unknown handles map to 0" contract of §4.8).
func (net *Network) Importance(handle string) float64 {
	rec, ok, err := net.LookupNode(handle)
	if err != nil || !ok {
		return 0
	}
	return rec.GetImportance()
}

// Importances resolves a batch of handles in input order (§4.8
// get_importance).
func (net *Network) Importances(handles []string) []float64 {
	out := make([]float64, len(handles))
	for i, h := range handles {
		out[i] = net.Importance(h)
	}
	return out
}

// addDirectedEdge records one observation of handle hi -> hj, creating the
// edge on first sight (bumping source's Arity and the network's
// LargestArity) or merging an observation count into it otherwise.
//
// The existence check (Lookup) and the Insert that follows it are not one
// atomic operation: a second goroutine inserting the same edge concurrently
// could also see "not found" and also bump Arity, double-counting it by at
// most one per race. This mirrors the bookkeeping nicety spec.md §4.6
// describes ("the first time an edge is created...") rather than a
// linearizable counter, and is an accepted, documented trade-off — see
// DESIGN.md.
func (net *Network) addDirectedEdge(source, target *NodeRecord) error {
	_, existed, err := source.Neighbours.Lookup(target.Handle)
	if err != nil {
		return err
	}
	if _, err := source.Neighbours.Insert(target.Handle, NewEdgeRecord(1, source, target)); err != nil {
		return err
	}
	if existed {
		return nil
	}

	source.mu.Lock()
	source.Arity++
	arity := source.Arity
	source.mu.Unlock()

	net.mu.Lock()
	if arity > net.largestArity {
		net.largestArity = arity
	}
	net.mu.Unlock()
	return nil
}

// EdgeCount returns the observation count of the directed edge source->target,
// or 0 if it does not exist. Exposed mainly for tests (spec.md §8 scenario d).
func (net *Network) EdgeCount(source, target string) (int, error) {
	rec, ok, err := net.LookupNode(source)
	if err != nil || !ok {
		return 0, err
	}
	v, ok, err := rec.Neighbours.Lookup(target)
	if err != nil || !ok {
		return 0, err
	}
	return v.(*EdgeRecord).GetCount(), nil
}

// Traverse walks every stored NodeRecord, matching handletrie.Trie.Traverse's
// contract (visit returning true aborts early).
func (net *Network) Traverse(keepRootLocked bool, visit func(*NodeRecord) bool) {
	net.nodes.Traverse(keepRootLocked, func(node *handletrie.Node) bool {
		v := node.Value()
		if v == nil {
			return false
		}
		return visit(v.(*NodeRecord))
	})
}
