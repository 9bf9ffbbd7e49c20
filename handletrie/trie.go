// Package handletrie implements the concurrent prefix trie ("HandleTrie")
// used by both the atom store and the Hebbian attention network to map
// fixed-length 32-hex-digit handles to values, with lock-coupled ("crabbing")
// concurrent readers and writers and a merge-on-collision insert contract.
//
// The algorithm follows the teacher's trie256p nibble-path encoding for the
// hex alphabet and the original das AttentionBroker's HandleTrie.cc for the
// insert/lookup/traverse crabbing discipline: a writer always holds the
// cursor and its parent locked while restructuring, and locks are released
// bottom-up so no other writer ever observes a half-built split.
package handletrie

import (
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// AlphabetSize is the trie's branching factor: one slot per hex nibble.
const AlphabetSize = 16

// ErrInvalidKeySize is returned when a key's length does not match the
// trie's configured KeySize.
var ErrInvalidKeySize = xerrors.New("handletrie: invalid key size")

// ErrInvalidKeyChar is returned when a key contains a byte outside [0-9a-fA-F].
var ErrInvalidKeyChar = xerrors.New("handletrie: invalid key character")

// Value is the interface stored at trie leaves. Merge is invoked when an
// insert collides with an already-stored value for the same key; it is
// expected to fold other's contribution into the receiver (e.g. add counts).
// Merge is called on the value already present in the trie, with the
// newly-inserted (now discarded) value as the argument.
type Value interface {
	Merge(other Value)
	String() string
}

var tlb [256]uint8
var tlbInitOnce sync.Once

func initTLB() {
	for i := range tlb {
		tlb[i] = 0xFF
	}
	for i := byte(0); i < 10; i++ {
		tlb['0'+i] = i
	}
	for i := uint8(0); i < 6; i++ {
		tlb['a'+byte(i)] = 10 + i
		tlb['A'+byte(i)] = 10 + i
	}
}

func nibble(c byte) (uint8, bool) {
	tlbInitOnce.Do(initTLB)
	v := tlb[c]
	if v == 0xFF {
		return 0, false
	}
	return v, true
}

// Node is a trie node exposed to traversal visitors. Suffix and Value are
// only meaningful when IsLeaf is true (suffixStart > 0 in the original
// algorithm's terms — i.e. this node terminated a key).
type Node struct {
	mu          sync.Mutex
	children    [AlphabetSize]*Node
	suffix      string
	suffixStart int // 0 means "interior node", >0 means this node holds a key
	value       Value
}

// IsLeaf reports whether this node terminates a stored key.
func (n *Node) IsLeaf() bool { return n.suffixStart > 0 }

// Suffix returns the full key stored at this leaf. Only valid when IsLeaf().
func (n *Node) Suffix() string { return n.suffix }

// Value returns the value stored at this leaf, or nil if it was removed.
// Only valid when IsLeaf().
func (n *Node) Value() Value { return n.value }

// SetValue overwrites the value stored at this leaf. Callers must only do
// this from within a Traverse visitor, which already holds the node's lock.
func (n *Node) SetValue(v Value) { n.value = v }

// Trie is the concurrent, fixed-key-size prefix tree.
type Trie struct {
	keySize int
	root    *Node
}

// New creates a Trie over keys of exactly keySize hex characters (32 for
// atomspace handles).
func New(keySize int) *Trie {
	return &Trie{keySize: keySize, root: &Node{}}
}

// KeySize returns the configured fixed key length.
func (t *Trie) KeySize() int { return t.keySize }

func (t *Trie) validateKey(key string) error {
	if len(key) != t.keySize {
		return xerrors.Errorf("handletrie: key length %d, want %d: %w", len(key), t.keySize, ErrInvalidKeySize)
	}
	for i := 0; i < len(key); i++ {
		if _, ok := nibble(key[i]); !ok {
			return xerrors.Errorf("handletrie: byte %q at position %d: %w", key[i], i, ErrInvalidKeyChar)
		}
	}
	return nil
}

// Insert stores value under key. If key is already present, the existing
// value's Merge is called with the new value and the existing (now updated)
// value is returned; otherwise the new value is stored and returned.
func (t *Trie) Insert(key string, value Value) (Value, error) {
	if err := t.validateKey(key); err != nil {
		return nil, err
	}

	cursor := t.root
	parent := t.root
	keyCursor := 0
	cursor.mu.Lock()
	for {
		c, _ := nibble(key[keyCursor])
		if cursor.children[c] == nil {
			if cursor.suffixStart > 0 {
				cPred, _ := nibble(key[keyCursor-1])
				if key[keyCursor] == cursor.suffix[keyCursor] {
					child := &Node{}
					child.mu.Lock()
					child.children[c] = cursor
					cursor.suffixStart++
					parent.children[cPred] = child
					parent.mu.Unlock()
					parent = child
					keyCursor++
					continue
				}
				child := &Node{suffix: key, suffixStart: keyCursor + 1, value: value}
				cTreeCursor, _ := nibble(cursor.suffix[cursor.suffixStart])
				cursor.suffixStart++
				split := &Node{}
				split.children[c] = child
				split.children[cTreeCursor] = cursor
				parent.children[cPred] = split
				parent.mu.Unlock()
				if cursor != parent {
					cursor.mu.Unlock()
				}
				return child.value, nil
			}
			child := &Node{suffix: key, suffixStart: keyCursor + 1, value: value}
			cursor.children[c] = child
			parent.mu.Unlock()
			if cursor != parent {
				cursor.mu.Unlock()
			}
			return child.value, nil
		}

		if cursor != parent {
			parent.mu.Unlock()
			parent = cursor
		}
		cursor = cursor.children[c]
		cursor.mu.Lock()
		if cursor.suffixStart > 0 {
			match := true
			for i := keyCursor; i < len(key); i++ {
				if key[i] != cursor.suffix[i] {
					match = false
					break
				}
			}
			if match {
				if cursor.value == nil {
					cursor.value = value
				} else {
					cursor.value.Merge(value)
				}
				if cursor != parent {
					parent.mu.Unlock()
				}
				cursor.mu.Unlock()
				return cursor.value, nil
			}
		}
		keyCursor++
	}
}

// Lookup returns the value stored at key, or (nil, false) if absent.
func (t *Trie) Lookup(key string) (Value, bool, error) {
	if err := t.validateKey(key); err != nil {
		return nil, false, err
	}

	cursor := t.root
	keyCursor := 0
	cursor.mu.Lock()
	for cursor != nil {
		if cursor.suffixStart > 0 {
			match := true
			for i := keyCursor; i < len(key); i++ {
				if key[i] != cursor.suffix[i] {
					match = false
					break
				}
			}
			v := cursor.value
			cursor.mu.Unlock()
			if !match || v == nil {
				return nil, false, nil
			}
			return v, true, nil
		}
		c, _ := nibble(key[keyCursor])
		child := cursor.children[c]
		cursor.mu.Unlock()
		cursor = child
		keyCursor++
		if cursor != nil {
			cursor.mu.Lock()
		}
	}
	return nil, false, nil
}

// Remove clears the value slot at key. The leaf node itself may remain;
// reclaiming emptied sub-trees is not required by the contract.
func (t *Trie) Remove(key string) error {
	if err := t.validateKey(key); err != nil {
		return err
	}
	cursor := t.root
	keyCursor := 0
	cursor.mu.Lock()
	for cursor != nil {
		if cursor.suffixStart > 0 {
			match := true
			for i := keyCursor; i < len(key); i++ {
				if key[i] != cursor.suffix[i] {
					match = false
					break
				}
			}
			if match {
				cursor.value = nil
			}
			cursor.mu.Unlock()
			return nil
		}
		c, _ := nibble(key[keyCursor])
		child := cursor.children[c]
		cursor.mu.Unlock()
		cursor = child
		keyCursor++
		if cursor != nil {
			cursor.mu.Lock()
		}
	}
	return nil
}

// VisitFunc is called once per leaf encountered during Traverse, with that
// leaf's node locked. Returning true aborts the traversal immediately.
type VisitFunc func(node *Node) bool

// Traverse walks every stored leaf in the trie, in-order over the hex
// alphabet. If keepRootLocked is true the root stays locked for the whole
// call, giving the visitor snapshot-like isolation from concurrent writers;
// otherwise each subtree's lock is released as soon as its children have
// been queued.
func (t *Trie) Traverse(keepRootLocked bool, visit VisitFunc) {
	stack := []*Node{t.root}
	for len(stack) > 0 {
		cursor := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cursor.mu.Lock()
		if cursor.suffixStart > 0 {
			if visit(cursor) {
				if keepRootLocked && t.root != cursor {
					t.root.mu.Unlock()
				}
				cursor.mu.Unlock()
				return
			}
		} else {
			for i := AlphabetSize - 1; i >= 0; i-- {
				if cursor.children[i] != nil {
					stack = append(stack, cursor.children[i])
				}
			}
		}
		if !keepRootLocked || cursor != t.root {
			cursor.mu.Unlock()
		}
	}
	if keepRootLocked {
		t.root.mu.Unlock()
	}
}

// NormalizeKey folds uppercase hex digits to lowercase, matching the
// original's TLB acceptance of both cases while the stored suffix is always
// compared byte-for-byte — callers should normalize before Insert/Lookup so
// two case variants of the same handle are treated identically.
func NormalizeKey(key string) string {
	return strings.ToLower(key)
}
