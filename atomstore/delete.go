package atomstore

import (
	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
)

// DeleteAtom dispatches to DeleteNode or DeleteLink, whichever matches the
// stored atom's kind.
func (s *Store) DeleteAtom(handle string, deleteLinkTargets bool) (bool, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.deleteAtomLocked(handle, deleteLinkTargets)
}

// DeleteNode removes a node. It fails (returns false, ErrInUse) if the node is
// still referenced by links and deleteLinkTargets is false; if
// deleteLinkTargets is true, every referencing link is deleted first.
func (s *Store) DeleteNode(handle string, deleteLinkTargets bool) (bool, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.deleteNodeLocked(handle, deleteLinkTargets)
}

// DeleteLink removes a link, updating incoming-set and pattern indexes. If
// deleteLinkTargets is true, any target left with no other incoming link is
// deleted too (recursively).
func (s *Store) DeleteLink(handle string, deleteLinkTargets bool) (bool, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.deleteLinkLocked(handle, deleteLinkTargets)
}

func (s *Store) deleteAtomLocked(handle string, deleteLinkTargets bool) (bool, error) {
	ok, err := s.deleteNodeLocked(handle, deleteLinkTargets)
	if err != nil || ok {
		return ok, err
	}
	return s.deleteLinkLocked(handle, deleteLinkTargets)
}

func (s *Store) deleteNodeLocked(handle string, deleteLinkTargets bool) (bool, error) {
	a, err := s.getAtomLocked(handle)
	if err != nil {
		return false, nil
	}
	if !atom.IsNode(a) {
		return false, nil
	}

	referencing := s.incomingSets[handle]
	if len(referencing) > 0 {
		if !deleteLinkTargets {
			return false, ErrInUse
		}
		linkHandles := make([]string, 0, len(referencing))
		for h := range referencing {
			linkHandles = append(linkHandles, h)
		}
		for _, lh := range linkHandles {
			if _, err := s.deleteLinkLocked(lh, deleteLinkTargets); err != nil {
				return false, err
			}
		}
	}

	if err := s.atoms.Remove(handle); err != nil {
		return false, err
	}
	delete(s.incomingSets, handle)
	return true, nil
}

func (s *Store) deleteLinkLocked(handle string, deleteLinkTargets bool) (bool, error) {
	a, err := s.getAtomLocked(handle)
	if err != nil {
		return false, nil
	}
	if !atom.IsLink(a) {
		return false, nil
	}
	link := a.(*atom.Link)
	targets := append([]string(nil), link.Targets()...)

	for _, target := range targets {
		s.deleteIncomingSetLocked(target, handle)
		if deleteLinkTargets {
			if len(s.incomingSets[target]) == 0 {
				if _, err := s.deleteAtomLocked(target, deleteLinkTargets); err != nil {
					return false, err
				}
			}
		}
	}

	patterns, err := s.matchPatternIndexSchemaLocked(link)
	if err != nil {
		return false, err
	}
	for _, p := range patterns {
		s.deletePatternLocked(p, handle)
	}

	if err := s.atoms.Remove(handle); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAtoms, DeleteNodes and DeleteLinks delete each handle in turn,
// returning the count actually removed.

func (s *Store) DeleteAtoms(handles []string, deleteLinkTargets bool) (int, error) {
	return s.deleteBatch(handles, deleteLinkTargets, (*Store).deleteAtomLocked)
}

func (s *Store) DeleteNodes(handles []string, deleteLinkTargets bool) (int, error) {
	return s.deleteBatch(handles, deleteLinkTargets, (*Store).deleteNodeLocked)
}

func (s *Store) DeleteLinks(handles []string, deleteLinkTargets bool) (int, error) {
	return s.deleteBatch(handles, deleteLinkTargets, (*Store).deleteLinkLocked)
}

func (s *Store) deleteBatch(handles []string, deleteLinkTargets bool, one func(*Store, string, bool) (bool, error)) (int, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	count := 0
	for _, h := range handles {
		ok, err := one(s, h, deleteLinkTargets)
		if err != nil && !xerrors.Is(err, ErrInUse) {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}
