package query

import (
	"container/heap"
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// OR is the union operator of §4.5.4: it merges its inputs' answers,
// de-duplicating on (handles, assignment) and preserving non-increasing
// importance order via a k-way merge.
type OR struct {
	inputs []Source
	out    *AnswerQueue
}

// NewOR unions k (k >= 1) inputs.
func NewOR(inputs []Source) (*OR, error) {
	if len(inputs) == 0 {
		return nil, xerrors.New("query: OR requires at least one input")
	}
	return &OR{inputs: inputs, out: NewAnswerQueue()}, nil
}

func (o *OR) Output() *AnswerQueue { return o.out }

type orHeapItem struct {
	answer   *QueryAnswer
	listIdx  int
	elemIdx  int
}

type orHeap []orHeapItem

func (h orHeap) Len() int            { return len(h) }
func (h orHeap) Less(i, j int) bool  { return h[i].answer.Importance > h[j].answer.Importance }
func (h orHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *orHeap) Push(x interface{}) { *h = append(*h, x.(orHeapItem)) }
func (h *orHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Run drives every input to completion concurrently, then k-way merges
// their (already importance-sorted) answer lists, dropping any answer whose
// dedupe key (handles + assignment) was already emitted by a
// higher-or-equal-importance predecessor — "B-answers demoted in order of
// importance" per spec scenario (c).
func (o *OR) Run(ctx context.Context) error {
	defer o.out.Finish()

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range o.inputs {
		in := in
		g.Go(func() error { return in.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return xerrors.Errorf("%w: %v", ErrCancelled, err)
	}

	lists := make([][]*QueryAnswer, len(o.inputs))
	for i, in := range o.inputs {
		lists[i] = drainSorted(in.Output())
	}

	h := &orHeap{}
	heap.Init(h)
	for li, list := range lists {
		if len(list) > 0 {
			heap.Push(h, orHeapItem{answer: list[0], listIdx: li, elemIdx: 0})
		}
	}

	seen := map[string]struct{}{}
	for h.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item := heap.Pop(h).(orHeapItem)
		list := lists[item.listIdx]
		if item.elemIdx+1 < len(list) {
			heap.Push(h, orHeapItem{answer: list[item.elemIdx+1], listIdx: item.listIdx, elemIdx: item.elemIdx + 1})
		}

		key := item.answer.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		o.out.Enqueue(item.answer)
	}
	return nil
}
