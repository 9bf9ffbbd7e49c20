package query

import (
	"context"
	"time"
)

// Sink is the root of a query DAG: it runs its single upstream element to
// completion and exposes the results in whatever shape it specializes in
// (Iterator: one answer at a time; CountSink: a final tally).
type Sink interface {
	Run(ctx context.Context) error
}

// Iterator is the sink described in §4.5.5: callers Pop answers one at a
// time, polling Finished to know when upstream is exhausted.
type Iterator struct {
	upstream Source
	started  bool
}

// NewIterator wraps upstream as the root of a query.
func NewIterator(upstream Source) *Iterator {
	return &Iterator{upstream: upstream}
}

// Run starts the upstream element's worker. It must be called before
// Pop/Finished report anything meaningful; Pop does not call it.
func (it *Iterator) Run(ctx context.Context) error {
	if it.started {
		return nil
	}
	it.started = true
	go it.upstream.Run(ctx)
	return nil
}

// Pop returns the next answer, or (nil, false) if the queue is momentarily
// empty. Callers are expected to poll when Finished() is also false.
func (it *Iterator) Pop() (*QueryAnswer, bool) {
	return it.upstream.Output().Dequeue()
}

// Finished reports whether upstream has signalled done AND every answer it
// produced has been popped.
func (it *Iterator) Finished() bool {
	return it.upstream.Output().Finished()
}

// CountSink is the variant sink of §4.5.6: it discards answers but counts
// them, exposing the final tally once Run returns.
type CountSink struct {
	upstream Source
	count    int
}

// NewCountSink wraps upstream, counting its answers instead of surfacing them.
func NewCountSink(upstream Source) *CountSink {
	return &CountSink{upstream: upstream}
}

// Run drives upstream to completion (in its own goroutine, per §5) and
// tallies every answer it emits, blocking until upstream finishes.
func (c *CountSink) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.upstream.Run(ctx) }()

	out := c.upstream.Output()
	for {
		if a, ok := out.Dequeue(); ok {
			_ = a
			c.count++
			continue
		}
		if out.Finished() {
			break
		}
		time.Sleep(queuePollInterval)
	}
	return <-errCh
}

// Count returns the final tally. Only meaningful after Run has returned.
func (c *CountSink) Count() int { return c.count }
