// Package hebbian implements the Hebbian attention network of spec.md
// §3.5: a HandleTrie of per-atom NodeRecords, each holding its own
// HandleTrie of directed EdgeRecords to its neighbours, plus the two
// updaters that mutate it (Correlator, TokenSpreader).
package hebbian

import (
	"fmt"
	"sync"

	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

// NodeRecord is the per-atom record described in §3.5: arity, observation
// count, importance and the pending stimulus still to be spread, plus its
// own HandleTrie of outgoing EdgeRecords.
//
// Fields are guarded by an internal mutex rather than relying solely on the
// owning HandleTrie's per-node lock: Trie.Lookup releases its node lock
// before returning the value (so a caller reading Importance after Lookup
// would otherwise race against a concurrent TokenSpreader cycle mutating it
// during Traverse). This is a deliberate departure from "lock discipline
// lives entirely in the trie" — see DESIGN.md.
type NodeRecord struct {
	mu sync.Mutex

	Handle          string
	Arity           int
	Count           int
	Importance      float64
	StimuliToSpread float64
	Neighbours      *handletrie.Trie
}

// NewNodeRecord returns a fresh record for handle with Count=1 (the
// Correlator's "insert a Node record with count=1" contract) and its own
// empty neighbour trie.
func NewNodeRecord(handle string) *NodeRecord {
	return &NodeRecord{
		Handle:     handle,
		Count:      1,
		Neighbours: handletrie.New(hasher.HandleSize),
	}
}

// Merge implements handletrie.Value: repeated insertion under the same
// handle adds counts and importance (§3.5).
func (n *NodeRecord) Merge(other handletrie.Value) {
	o := other.(*NodeRecord)
	o.mu.Lock()
	addCount, addImportance := o.Count, o.Importance
	o.mu.Unlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.Count += addCount
	n.Importance += addImportance
}

func (n *NodeRecord) String() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fmt.Sprintf("NodeRecord(handle: %s, arity: %d, count: %d, importance: %.10f)",
		n.Handle, n.Arity, n.Count, n.Importance)
}

// GetImportance returns the record's current importance under its own lock.
func (n *NodeRecord) GetImportance() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Importance
}

// EdgeRecord is a directed edge between two nodes, carrying back-references
// to both endpoints' NodeRecords for fast traversal during spreading (§4.6).
type EdgeRecord struct {
	mu sync.Mutex

	Count  int
	Source *NodeRecord
	Target *NodeRecord
}

// NewEdgeRecord returns a fresh edge with the given initial count.
func NewEdgeRecord(count int, source, target *NodeRecord) *EdgeRecord {
	return &EdgeRecord{Count: count, Source: source, Target: target}
}

// Merge implements handletrie.Value: repeated insertion of the same
// directed edge adds counts (§4.6).
func (e *EdgeRecord) Merge(other handletrie.Value) {
	o := other.(*EdgeRecord)
	o.mu.Lock()
	addCount := o.Count
	o.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Count += addCount
}

func (e *EdgeRecord) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("EdgeRecord(count: %d, %s -> %s)", e.Count, e.Source.Handle, e.Target.Handle)
}

// GetCount returns the edge's current observation count under its own lock.
func (e *EdgeRecord) GetCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Count
}
