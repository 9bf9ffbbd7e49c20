package atomstore

import "github.com/das-systems/das-core/atom"

func (s *Store) addIncomingSetLocked(targetHandle, linkHandle string) {
	bucket, ok := s.incomingSets[targetHandle]
	if !ok {
		bucket = map[string]struct{}{}
		s.incomingSets[targetHandle] = bucket
	}
	bucket[linkHandle] = struct{}{}
}

func (s *Store) deleteIncomingSetLocked(targetHandle, linkHandle string) {
	bucket, ok := s.incomingSets[targetHandle]
	if !ok {
		return
	}
	delete(bucket, linkHandle)
	if len(bucket) == 0 {
		delete(s.incomingSets, targetHandle)
	}
}

// QueryForTargets returns the target handles of the link stored at handle.
func (s *Store) QueryForTargets(handle string) ([]string, error) {
	s.trieMu.Lock()
	defer s.trieMu.Unlock()
	a, err := s.getAtomLocked(handle)
	if err != nil {
		return nil, err
	}
	link, ok := a.(*atom.Link)
	if !ok {
		return nil, ErrWrongKind
	}
	return append([]string(nil), link.Targets()...), nil
}

// QueryForIncomingSet returns the handles of every stored link that
// references handle as one of its targets.
func (s *Store) QueryForIncomingSet(handle string) []string {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	bucket := s.incomingSets[handle]
	out := make([]string, 0, len(bucket))
	for h := range bucket {
		out = append(out, h)
	}
	return out
}
