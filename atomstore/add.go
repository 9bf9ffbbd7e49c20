package atomstore

import (
	"github.com/das-systems/das-core/atom"
)

// AddAtom dispatches to AddNode or AddLink by arity.
func (s *Store) AddAtom(a atom.Atom, throwIfExists bool) (string, error) {
	if atom.IsNode(a) {
		return s.AddNode(a, throwIfExists)
	}
	return s.AddLink(a, throwIfExists)
}

// AddNode stores a node atom, returning its handle. If the handle already
// exists and throwIfExists is false, the existing handle is returned with no
// error (content-addressed idempotence); if throwIfExists is true, it
// returns ErrAlreadyExists instead.
func (s *Store) AddNode(n atom.Atom, throwIfExists bool) (string, error) {
	handle := n.Handle()
	s.trieMu.Lock()
	defer s.trieMu.Unlock()

	if _, err := s.getAtomLocked(handle); err == nil {
		if throwIfExists {
			return "", ErrAlreadyExists
		}
		return handle, nil
	}
	if _, err := s.atoms.Insert(handle, &atomValue{atom: n}); err != nil {
		return "", err
	}
	return handle, nil
}

// AddLink stores a link atom, updating the incoming-set and pattern indexes,
// and returns its handle. Existence semantics match AddNode.
func (s *Store) AddLink(l atom.Atom, throwIfExists bool) (string, error) {
	handles, err := s.AddLinks([]atom.Atom{l}, throwIfExists)
	if err != nil {
		return "", err
	}
	if len(handles) == 0 {
		return "", nil
	}
	return handles[0], nil
}

// AddNodes stores a batch of node atoms.
func (s *Store) AddNodes(nodes []atom.Atom, throwIfExists bool) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	s.trieMu.Lock()
	defer s.trieMu.Unlock()

	handles := make([]string, len(nodes))
	for i, n := range nodes {
		handle := n.Handle()
		handles[i] = handle
		if _, err := s.getAtomLocked(handle); err == nil {
			if throwIfExists {
				return nil, ErrAlreadyExists
			}
			continue
		}
		if _, err := s.atoms.Insert(handle, &atomValue{atom: n}); err != nil {
			return nil, err
		}
	}
	return handles, nil
}

// AddLinks stores a batch of link atoms, updating indexes for each newly
// inserted link.
func (s *Store) AddLinks(links []atom.Atom, throwIfExists bool) ([]string, error) {
	if len(links) == 0 {
		return nil, nil
	}
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	handles := make([]string, len(links))
	for i, l := range links {
		link, ok := l.(*atom.Link)
		if !ok {
			return nil, ErrWrongKind
		}
		handle := link.Handle()
		handles[i] = handle

		if _, err := s.getAtomLocked(handle); err == nil {
			if throwIfExists {
				return nil, ErrAlreadyExists
			}
			continue
		}

		if _, err := s.atoms.Insert(handle, &atomValue{atom: link}); err != nil {
			return nil, err
		}
		s.linkTypes[link.Type()] = struct{}{}
		for _, target := range link.Targets() {
			s.addIncomingSetLocked(target, handle)
		}
		patterns, err := s.matchPatternIndexSchemaLocked(link)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			s.addPatternLocked(p, handle)
		}
	}
	return handles, nil
}

// AddAtoms stores a mixed batch of nodes and links.
func (s *Store) AddAtoms(atoms []atom.Atom, throwIfExists bool) ([]string, error) {
	var nodes, links []atom.Atom
	for _, a := range atoms {
		if atom.IsNode(a) {
			nodes = append(nodes, a)
		} else {
			links = append(links, a)
		}
	}
	nodeHandles, err := s.AddNodes(nodes, throwIfExists)
	if err != nil {
		return nil, err
	}
	linkHandles, err := s.AddLinks(links, throwIfExists)
	if err != nil {
		return nil, err
	}
	return append(nodeHandles, linkHandles...), nil
}
