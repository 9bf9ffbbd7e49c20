package hebbian

import "sort"

// Correlator implements the updater of §4.6: given a list of atom handles
// observed together in a single query answer, it strengthens the network's
// Hebbian edges among every pair of them.
type Correlator struct {
	net *Network
}

// NewCorrelator returns a Correlator writing into net.
func NewCorrelator(net *Network) *Correlator {
	return &Correlator{net: net}
}

// Correlate records one co-occurrence event: every handle gets (or merges
// into) a Node record, and every distinct pair gets a symmetric pair of
// directed edges, each with count incremented by one.
func (c *Correlator) Correlate(handles []string) error {
	if len(handles) == 0 {
		return nil
	}

	c.net.stimMu.Lock()
	defer c.net.stimMu.Unlock()

	unique := dedupe(handles)
	records := make(map[string]*NodeRecord, len(unique))
	for _, h := range unique {
		rec, err := c.net.EnsureNode(h)
		if err != nil {
			return err
		}
		records[h] = rec
	}

	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			hi, hj := unique[i], unique[j]
			if err := c.net.addDirectedEdge(records[hi], records[hj]); err != nil {
				return err
			}
			if err := c.net.addDirectedEdge(records[hj], records[hi]); err != nil {
				return err
			}
		}
	}
	return nil
}

func dedupe(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
