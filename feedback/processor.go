// Package feedback implements the query-answer feedback path of spec.md
// §4.9: a post-processor that watches query answers flow out of a sink and
// turns them into Attention correlate/stimulate calls.
package feedback

import (
	"context"

	"github.com/das-systems/das-core/hebbian"
)

// MaxCorrelationsWithoutStimulate is the default flush threshold (§4.9).
const MaxCorrelationsWithoutStimulate = 1000

// MaxStimulatePerCycle bounds how many times a single Processor (i.e. a
// single query) will flush before it stops stimulating altogether, even if
// more answers keep arriving.
const MaxStimulatePerCycle = 10

// AtomStore is the subset of atomstore.Store the feedback path needs: the
// recursive target-closure resolver.
type AtomStore interface {
	QueryForTargets(handle string) ([]string, error)
}

// Attention is the subset of attention.Service the feedback path drives.
type Attention interface {
	Correlate(requestContext string, handles []string) error
	Stimulate(requestContext string, counts map[string]float64) error
}

// Processor accumulates a correlation set and a joint-count map across a
// stream of query answers for a single query, flushing to Attention once
// the correlation set reaches MaxCorrelationsWithoutStimulate, and stops
// flushing at all once it has flushed MaxStimulatePerCycle times.
type Processor struct {
	store   AtomStore
	att     Attention
	context string

	correlationThreshold int
	maxFlushes           int

	correlationSet map[string]struct{}
	order          []string
	jointCounts    map[string]float64
	flushes        int
}

// NewProcessor returns a Processor driving att under requestContext,
// resolving target closures through store.
func NewProcessor(store AtomStore, att Attention, requestContext string) *Processor {
	return &Processor{
		store:                 store,
		att:                   att,
		context:               requestContext,
		correlationThreshold:  MaxCorrelationsWithoutStimulate,
		maxFlushes:            MaxStimulatePerCycle,
		correlationSet:        map[string]struct{}{},
		jointCounts:           map[string]float64{},
	}
}

// Observe folds one answer's handles (plus their recursive target closure)
// into the accumulators, flushing to Attention if the correlation set has
// grown large enough. Callers pass a QueryAnswer's own Handles field
// directly; Processor has no compile-time dependency on the query package.
func (p *Processor) Observe(ctx context.Context, answerHandles []string) error {
	closure := p.closure(answerHandles)
	for _, h := range closure {
		if _, ok := p.correlationSet[h]; !ok {
			p.correlationSet[h] = struct{}{}
			p.order = append(p.order, h)
		}
		p.jointCounts[h]++
	}

	if len(p.correlationSet) >= p.correlationThreshold {
		return p.Flush(ctx)
	}
	return nil
}

// closure resolves the recursive target closure of handles via
// AtomStore.QueryForTargets, stopping at any handle whose targets cannot be
// resolved (a Node, an UntypedVariable, or a handle not stored at all are
// all legitimate leaves here — the error just means "this handle has no
// further targets to walk").
func (p *Processor) closure(handles []string) []string {
	seen := map[string]struct{}{}
	var out []string
	queue := append([]string(nil), handles...)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)

		targets, err := p.store.QueryForTargets(h)
		if err != nil {
			continue
		}
		queue = append(queue, targets...)
	}
	return out
}

// Flush sends a correlate call with the accumulated set, then a stimulate
// call with the joint-count map plus SumKey, then clears both (§4.9). Once
// MaxStimulatePerCycle flushes have happened for this Processor, Flush
// clears the accumulators without calling Attention at all.
func (p *Processor) Flush(ctx context.Context) error {
	if len(p.order) == 0 {
		return nil
	}
	if p.flushes >= p.maxFlushes {
		p.reset()
		return nil
	}

	handles := append([]string(nil), p.order...)
	if err := p.att.Correlate(p.context, handles); err != nil {
		return err
	}

	sum := 0.0
	counts := make(map[string]float64, len(p.jointCounts)+1)
	for h, c := range p.jointCounts {
		counts[h] = c
		sum += c
	}
	counts[hebbian.SumKey] = sum
	if err := p.att.Stimulate(p.context, counts); err != nil {
		return err
	}

	p.flushes++
	p.reset()
	return nil
}

func (p *Processor) reset() {
	p.correlationSet = map[string]struct{}{}
	p.order = nil
	p.jointCounts = map[string]float64{}
}
