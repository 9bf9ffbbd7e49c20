// Package atomstore implements the in-memory AtomStore: content-addressed
// storage of atoms plus the pattern and incoming-set indexes the query
// pipeline relies on.
//
// Two locks guard the store's state: trieMu serializes structural changes
// to the atoms trie together with the index updates that must appear atomic
// alongside them (an insert is never visible to a pattern-index reader
// before its pattern entries are), and indexMu guards the pattern and
// incoming-set maps on their own. Lock order is always trieMu before
// indexMu, and the two are never held across a recursive call back into the
// store — see DESIGN.md for why this departs from the lock order used by
// the original's query_for_pattern.
package atomstore

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

var (
	// ErrNotFound is returned when a handle has no stored atom.
	ErrNotFound = xerrors.New("atomstore: atom not found")
	// ErrAlreadyExists is returned by an Add* call with throwIfExists=true
	// when the atom's handle is already present.
	ErrAlreadyExists = xerrors.New("atomstore: atom already exists")
	// ErrInUse is returned when deleting a node that is still referenced by
	// links, with deleteLinkTargets not set.
	ErrInUse = xerrors.New("atomstore: atom is referenced by other atoms")
	// ErrWrongKind is returned when an operation that requires a Node is
	// given a Link's handle, or vice versa.
	ErrWrongKind = xerrors.New("atomstore: atom is not of the expected kind")
)

type atomValue struct {
	atom atom.Atom
}

func (v *atomValue) Merge(other handletrie.Value) {
	v.atom = other.(*atomValue).atom
}

func (v *atomValue) String() string { return v.atom.String() }

// Store is the in-memory AtomStore: one atoms trie plus the pattern and
// incoming-set indexes built from it.
type Store struct {
	context string
	log     logrus.FieldLogger

	trieMu sync.Mutex
	atoms  *handletrie.Trie

	indexMu      sync.Mutex
	patternIndex map[string]map[string]struct{}
	incomingSets map[string]map[string]struct{}
	schemas      map[int]*patternSchema
	nextPriority int
	linkTypes    map[string]struct{}
}

type patternSchema struct {
	schema       *atom.LinkSchema
	indexEntries [][]string
}

// New creates an empty Store scoped to context (an opaque partition label;
// the empty string is the default/global context).
func New(context string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		context:      context,
		log:          log.WithField("context", context),
		atoms:        handletrie.New(hasher.HandleSize),
		patternIndex: map[string]map[string]struct{}{},
		incomingSets: map[string]map[string]struct{}{},
		schemas:      map[int]*patternSchema{},
		linkTypes:    map[string]struct{}{},
	}
}

// KnownLinkTypes returns every distinct link type name ever stored, in no
// particular order. Used by LinkTemplate (§4.5.2) to fall back to a
// per-type union scan when a template's type is the WILDCARD sentinel: the
// pattern index is keyed by each link's concrete type, so there is no single
// pattern handle meaning "any type". A type is never removed from this set
// when its last link is deleted, trading a harmless empty-result query for
// not having to refcount type usage.
func (s *Store) KnownLinkTypes() []string {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	out := make([]string, 0, len(s.linkTypes))
	for t := range s.linkTypes {
		out = append(out, t)
	}
	return out
}

// GetAtom implements atom.HandleDecoder, resolving a stored handle back to
// its atom.
func (s *Store) GetAtom(handle string) (atom.Atom, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	return s.getAtomLocked(handle)
}

func (s *Store) getAtomLocked(handle string) (atom.Atom, error) {
	v, ok, err := s.atoms.Lookup(handle)
	if err != nil {
		return nil, err
	}
	if !ok || v == nil {
		return nil, xerrors.Errorf("atomstore: handle %s: %w", handle, ErrNotFound)
	}
	return v.(*atomValue).atom, nil
}

// AtomExists reports whether handle is stored, as either a node or a link.
func (s *Store) AtomExists(handle string) bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	_, err := s.getAtomLocked(handle)
	return err == nil
}

// NodeExists reports whether handle is stored as a node.
func (s *Store) NodeExists(handle string) bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	a, err := s.getAtomLocked(handle)
	return err == nil && atom.IsNode(a)
}

// LinkExists reports whether handle is stored as a link.
func (s *Store) LinkExists(handle string) bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	a, err := s.getAtomLocked(handle)
	return err == nil && atom.IsLink(a)
}

// AtomsExist returns the subset of handles that are stored.
func (s *Store) AtomsExist(handles []string) map[string]bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	out := make(map[string]bool, len(handles))
	for _, h := range handles {
		_, err := s.getAtomLocked(h)
		out[h] = err == nil
	}
	return out
}

// NodesExist returns the subset of handles that are stored as nodes.
func (s *Store) NodesExist(handles []string) map[string]bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	out := make(map[string]bool, len(handles))
	for _, h := range handles {
		a, err := s.getAtomLocked(h)
		out[h] = err == nil && atom.IsNode(a)
	}
	return out
}

// LinksExist returns the subset of handles that are stored as links.
func (s *Store) LinksExist(handles []string) map[string]bool {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	out := make(map[string]bool, len(handles))
	for _, h := range handles {
		a, err := s.getAtomLocked(h)
		out[h] = err == nil && atom.IsLink(a)
	}
	return out
}
