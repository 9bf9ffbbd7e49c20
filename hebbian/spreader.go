package hebbian

import (
	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/handletrie"
)

// SumKey is the special key in a stimulate request's handle-count map
// holding the total count to normalize wages against (§4.7).
const SumKey = "SUM"

// ErrMissingSum is returned by Stimulate when the request's handle-count map
// has no SumKey entry.
var ErrMissingSum = xerrors.New("hebbian: stimulate request missing SUM")

// SpreaderConfig holds the TokenSpreader's tunables, defaulting to the
// values spec.md §4.7 documents.
type SpreaderConfig struct {
	RentRate                float64
	SpreadingRateLowerBound float64
	SpreadingRateUpperBound float64
	// MaxStimulatePerCycle is not consulted by Stimulate itself. The
	// default's value (10, the same as feedback.MaxStimulatePerCycle) is what
	// attention.NewPool uses as its bound on concurrent in-flight Stimulate
	// calls; the feedback package caps its own flushes with its own constant
	// and does not read this field. spec.md documents its existence but not
	// its numeric default — see DESIGN.md.
	MaxStimulatePerCycle int
}

// DefaultSpreaderConfig returns the documented defaults.
func DefaultSpreaderConfig() SpreaderConfig {
	return SpreaderConfig{
		RentRate:                0.50,
		SpreadingRateLowerBound: 0.01,
		SpreadingRateUpperBound: 0.10,
		MaxStimulatePerCycle:    10,
	}
}

// TokenSpreader runs the one-cycle importance-flow algorithm of §4.7 against
// a Network.
type TokenSpreader struct {
	net *Network
	cfg SpreaderConfig
}

// NewTokenSpreader returns a TokenSpreader over net with cfg.
func NewTokenSpreader(net *Network, cfg SpreaderConfig) *TokenSpreader {
	return &TokenSpreader{net: net, cfg: cfg}
}

// Stimulate runs one cycle: collect rent, combine with freshly-alienated
// tokens, pay wages from counts, consolidate each node's importance and
// compute how much it has to spread, then spread it to neighbours weighted
// by edge count.
//
// Any wage share computed for a handle with no existing NodeRecord (it has
// never been correlated) cannot be delivered; rather than vanish, it is
// folded back into the network's tokens-to-distribute accumulator so the
// §8 scenario-5 conservation invariant (Σ importance + tokens_to_distribute
// == 1.0 ± ε, checked against an otherwise-empty network) holds even when
// the request names handles the network has not seen yet.
func (ts *TokenSpreader) Stimulate(counts map[string]float64) error {
	ts.net.stimMu.Lock()
	defer ts.net.stimMu.Unlock()

	sum, ok := counts[SumKey]
	if !ok {
		return ErrMissingSum
	}

	rents := map[string]float64{}
	totalRent := 0.0

	// Step 1: collect rent.
	ts.net.Traverse(true, func(rec *NodeRecord) bool {
		rent := ts.cfg.RentRate * rec.GetImportance()
		rents[rec.Handle] = rent
		totalRent += rent
		return false
	})

	tokensToDistribute := ts.net.AlienateTokens() + totalRent

	// Step 2/3: wages, proportional to each handle's share of SUM.
	wages := map[string]float64{}
	if sum != 0 {
		for h, c := range counts {
			if h == SumKey {
				continue
			}
			wages[h] = (c / sum) * tokensToDistribute
		}
	}

	largestArity := ts.net.LargestArity()

	// Step 4: consolidate importance and compute per-node spread amount.
	delivered := 0.0
	ts.net.Traverse(true, func(rec *NodeRecord) bool {
		rec.mu.Lock()
		wage := wages[rec.Handle]
		delivered += wage
		rec.Importance += wage - rents[rec.Handle]

		arityRatio := 0.0
		if largestArity > 0 {
			arityRatio = float64(rec.Arity) / float64(largestArity)
		}
		spreadingRate := ts.cfg.SpreadingRateLowerBound + (ts.cfg.SpreadingRateUpperBound-ts.cfg.SpreadingRateLowerBound)*arityRatio
		toSpread := rec.Importance * spreadingRate
		rec.Importance -= toSpread
		rec.StimuliToSpread = toSpread
		rec.mu.Unlock()
		return false
	})

	totalWages := 0.0
	for _, w := range wages {
		totalWages += w
	}
	if undelivered := totalWages - delivered; undelivered > 0 {
		ts.net.mu.Lock()
		ts.net.tokensToDistribute += undelivered
		ts.net.mu.Unlock()
	}

	// Step 5: spread each node's stashed stimulus to its neighbours,
	// weighted by each edge's share of the node's total observation count.
	ts.net.Traverse(true, func(rec *NodeRecord) bool {
		rec.mu.Lock()
		count := rec.Count
		stimuliToSpread := rec.StimuliToSpread
		rec.mu.Unlock()
		if count == 0 || stimuliToSpread == 0 {
			return false
		}

		type weighted struct {
			target *NodeRecord
			weight float64
		}
		var neighbours []weighted
		sumWeights := 0.0
		rec.Neighbours.Traverse(true, func(edgeNode *handletrie.Node) bool {
			v := edgeNode.Value()
			if v == nil {
				return false
			}
			edge := v.(*EdgeRecord)
			w := float64(edge.GetCount()) / float64(count)
			neighbours = append(neighbours, weighted{target: edge.Target, weight: w})
			sumWeights += w
			return false
		})

		if sumWeights > 0 {
			for _, n := range neighbours {
				stimulus := (n.weight / sumWeights) * stimuliToSpread
				n.target.mu.Lock()
				n.target.Importance += stimulus
				n.target.mu.Unlock()
			}
			rec.mu.Lock()
			rec.StimuliToSpread = 0
			rec.mu.Unlock()
		} else {
			// No neighbours to spread to: the stimulus has nowhere to go,
			// so it stays with this node instead of vanishing from the
			// token total.
			rec.mu.Lock()
			rec.Importance += rec.StimuliToSpread
			rec.StimuliToSpread = 0
			rec.mu.Unlock()
		}
		return false
	})

	return nil
}
