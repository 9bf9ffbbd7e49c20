package query

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// queuePollInterval is how often a consumer re-checks an upstream queue it
// is waiting to finish, matching §5's "upstream sleep()s on a short interval
// when waiting" back-pressure model.
const queuePollInterval = time.Millisecond

// ErrCancelled is returned by an operator when an input signals cancellation
// mid-join (§4.5.3, §7 InvalidInput/Cancelled error kinds).
var ErrCancelled = xerrors.New("query: cancelled")

// AND is the k-ary join operator of §4.5.3. Each input is a Source whose
// answers arrive in non-increasing importance order; AND emits every
// combination of compatible assignments (one constituent per input), merged
// answer importance the max of its components and strength their product,
// itself in non-increasing merged-importance order.
type AND struct {
	inputs []Source
	out    *AnswerQueue
}

// NewAND joins k (k >= 1) inputs.
func NewAND(inputs []Source) (*AND, error) {
	if len(inputs) == 0 {
		return nil, xerrors.New("query: AND requires at least one input")
	}
	return &AND{inputs: inputs, out: NewAnswerQueue()}, nil
}

func (a *AND) Output() *AnswerQueue { return a.out }

// Run drives every input to completion concurrently (each input owns its
// own worker per §5), then emits the cross product of compatible answers.
// Inputs already deliver their own answers in descending importance order;
// draining each fully before joining is equivalent to maintaining a
// per-input max-heap of "answers seen so far" (§4.5.3's algorithm sketch)
// since no further, higher-importance answer can arrive from a finished
// input.
func (a *AND) Run(ctx context.Context) error {
	defer a.out.Finish()

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range a.inputs {
		in := in
		g.Go(func() error { return in.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return xerrors.Errorf("%w: %v", ErrCancelled, err)
	}

	lists := make([][]*QueryAnswer, len(a.inputs))
	for i, in := range a.inputs {
		lists[i] = drainSorted(in.Output())
	}

	merged := crossJoin(lists)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Importance > merged[j].Importance
	})

	for _, m := range merged {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		a.out.Enqueue(m)
	}
	return nil
}

// drainSorted waits for in to finish (polling: §5's "park-the-thread"
// suspension model, no cooperative async scheduler) and returns every
// answer it produced, in the order it produced them.
func drainSorted(q *AnswerQueue) []*QueryAnswer {
	var answers []*QueryAnswer
	for {
		answers = append(answers, q.DrainAll()...)
		if q.Finished() {
			return answers
		}
		time.Sleep(queuePollInterval)
	}
}

// crossJoin builds every compatible combination across lists, one element
// per list, folding via QueryAnswer.Merge (assignment-compatibility check,
// max importance, product strength, union of handles).
func crossJoin(lists [][]*QueryAnswer) []*QueryAnswer {
	if len(lists) == 0 {
		return nil
	}
	results := make([]*QueryAnswer, 0, len(lists[0]))
	for _, a := range lists[0] {
		results = append(results, a.Copy())
	}
	for _, list := range lists[1:] {
		var next []*QueryAnswer
		for _, r := range results {
			for _, b := range list {
				merged := r.Copy()
				if merged.Merge(b) {
					next = append(next, merged)
				}
			}
		}
		results = next
	}
	return results
}
