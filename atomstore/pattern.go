package atomstore

import (
	"sort"

	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/handletrie"
	"github.com/das-systems/das-core/hasher"
)

func xerrorsMissingVariable(name string) error {
	return xerrors.Errorf("atomstore: pattern schema assignment missing variable %q", name)
}

// Reserved index-entry tokens, matching the original's pattern-schema
// grammar: "_" copies the link's own target handle at that position, "*"
// substitutes the wildcard literal (a "don't care" position), anything else
// names a schema variable whose bound value is substituted.
const (
	indexTokenLiteralTarget = "_"
	indexTokenWildcard      = hasher.Wildcard
)

// lockedDecoder adapts a Store already held under trieMu into an
// atom.HandleDecoder that resolves handles without attempting to re-acquire
// the lock — used only while trieMu is already held by the calling
// goroutine (see AddLinks).
type lockedDecoder struct{ s *Store }

func (d lockedDecoder) GetAtom(handle string) (atom.Atom, error) {
	return d.s.getAtomLocked(handle)
}

// AddPatternIndexSchema registers a custom pattern-index schema at the next
// priority (higher priority values are tried first): schema must already be
// built, and indexEntries lists the index-entry token rows to emit for every
// link that matches schema. Returns the assigned priority.
func (s *Store) AddPatternIndexSchema(schema *atom.LinkSchema, indexEntries [][]string) int {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.nextPriority++
	priority := s.nextPriority
	s.schemas[priority] = &patternSchema{schema: schema, indexEntries: indexEntries}
	return priority
}

// matchPatternIndexSchemaLocked returns the pattern handles a newly-inserted
// link should be indexed under. Must be called with trieMu held (link has
// already been inserted into the atoms trie) and indexMu held.
func (s *Store) matchPatternIndexSchemaLocked(link *atom.Link) ([]string, error) {
	priorities := make([]int, 0, len(s.schemas))
	for p := range s.schemas {
		priorities = append(priorities, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(priorities)))

	decoder := lockedDecoder{s}
	for _, p := range priorities {
		sch := s.schemas[p]
		assignment := atom.NewAssignment()
		matched, err := sch.schema.MatchAtom(link, assignment, decoder)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		handles := make([]string, 0, len(sch.indexEntries))
		for _, entry := range sch.indexEntries {
			hashEntries := make([]string, len(entry))
			for i, token := range entry {
				switch token {
				case indexTokenLiteralTarget:
					hashEntries[i] = link.Targets()[i]
				case indexTokenWildcard:
					hashEntries[i] = hasher.Wildcard
				default:
					v, ok := assignment.Get(token)
					if !ok {
						return nil, xerrorsMissingVariable(token)
					}
					hashEntries[i] = v
				}
			}
			h, err := hasher.LinkHandle(link.Type(), hashEntries)
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
		}
		return handles, nil
	}

	// Default schema: every 2^arity subset of positions marked wildcard,
	// the rest fixed to the link's own target handle.
	return defaultPatternHandles(link)
}

func defaultPatternHandles(link *atom.Link) ([]string, error) {
	arity := link.Arity()
	total := 1 << uint(arity)
	handles := make([]string, 0, total)
	for mask := 0; mask < total; mask++ {
		entry := make([]string, arity)
		for i := 0; i < arity; i++ {
			if mask&(1<<uint(i)) != 0 {
				entry[i] = hasher.Wildcard
			} else {
				entry[i] = link.Targets()[i]
			}
		}
		h, err := hasher.LinkHandle(link.Type(), entry)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (s *Store) addPatternLocked(patternHandle, atomHandle string) {
	bucket, ok := s.patternIndex[patternHandle]
	if !ok {
		bucket = map[string]struct{}{}
		s.patternIndex[patternHandle] = bucket
	}
	bucket[atomHandle] = struct{}{}
}

func (s *Store) deletePatternLocked(patternHandle, atomHandle string) {
	bucket, ok := s.patternIndex[patternHandle]
	if !ok {
		return
	}
	delete(bucket, atomHandle)
	if len(bucket) == 0 {
		delete(s.patternIndex, patternHandle)
	}
}

// QueryForPattern returns every stored link handle matching schema. It
// consults the pattern index for candidates, then re-validates each
// candidate against the trie (a link may have been deleted since it was
// indexed, or the index may be stale after a schema change).
func (s *Store) QueryForPattern(schema *atom.LinkSchema) ([]string, error) {
	patternHandle := schema.Handle()

	s.indexMu.Lock()
	bucket := s.patternIndex[patternHandle]
	candidates := make([]string, 0, len(bucket))
	for h := range bucket {
		candidates = append(candidates, h)
	}
	s.indexMu.Unlock()

	result := make([]string, 0, len(candidates))
	for _, h := range candidates {
		a, err := s.GetAtom(h)
		if err != nil {
			continue
		}
		if !atom.IsLink(a) {
			continue
		}
		assignment := atom.NewAssignment()
		matched, err := schema.MatchAtom(a, assignment, s)
		if err != nil {
			return nil, err
		}
		if matched {
			result = append(result, h)
		}
	}
	return result, nil
}

// ReIndexPatterns rebuilds the pattern index from scratch by walking every
// stored link. If flushPatterns is true the existing index is discarded
// first; otherwise new entries are added alongside whatever is already
// there (useful right after AddPatternIndexSchema widens the schema set).
func (s *Store) ReIndexPatterns(flushPatterns bool) error {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if flushPatterns {
		s.patternIndex = map[string]map[string]struct{}{}
	}

	var walkErr error
	s.atoms.Traverse(false, func(node *handletrie.Node) bool {
		v := node.Value()
		if v == nil {
			return false
		}
		av, ok := v.(*atomValue)
		if !ok || !atom.IsLink(av.atom) {
			return false
		}
		link := av.atom.(*atom.Link)
		patterns, err := s.matchPatternIndexSchemaLocked(link)
		if err != nil {
			walkErr = err
			return true
		}
		for _, p := range patterns {
			s.addPatternLocked(p, link.Handle())
		}
		return false
	})
	return walkErr
}
