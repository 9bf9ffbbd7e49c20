package attention

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/hebbian"
)

// DefaultWorkerCount is the pool's default thread count (§4.8).
const DefaultWorkerCount = 10

// ErrPoolStopped is returned by Stimulate/Correlate once Shutdown has been
// called.
var ErrPoolStopped = xerrors.New("attention: pool is stopped")

type stimulateRequest struct {
	context string
	counts  map[string]float64
	done    chan error
}

type correlateRequest struct {
	context string
	handles []string
	done    chan error
}

// Pool is the fixed-size worker-thread pool of §4.8: numWorkers goroutines,
// each permanently assigned by a RequestSelector to consume either the
// stimulate queue or the correlate queue, driving calls into a Service.
type Pool struct {
	service    *Service
	selector   RequestSelector
	numWorkers int

	stimulateCh chan *stimulateRequest
	correlateCh chan *correlateRequest

	// sem bounds the number of concurrent in-flight stimulate cycles to
	// MaxStimulatePerCycle (spec's MAX_STIMULATE_PER_CYCLE, §4.9):
	// Stimulate takes Network.stimMu for the whole cycle, so letting
	// unbounded callers queue up behind it just grows memory without
	// improving throughput.
	sem *semaphore.Weighted

	mu      sync.Mutex
	started bool
	stopped bool
	g       *errgroup.Group
	cancel  context.CancelFunc
}

// NewPool returns a Pool over service. numWorkers <= 0 defaults to
// DefaultWorkerCount; a nil selector defaults to EvenThreadCount.
func NewPool(service *Service, numWorkers int, selector RequestSelector) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkerCount
	}
	if selector == nil {
		selector = EvenThreadCount{}
	}
	maxInFlight := hebbian.DefaultSpreaderConfig().MaxStimulatePerCycle
	return &Pool{
		service:     service,
		selector:    selector,
		numWorkers:  numWorkers,
		stimulateCh: make(chan *stimulateRequest),
		correlateCh: make(chan *correlateRequest),
		sem:         semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// Start launches numWorkers goroutines, each bound by the selector to one
// queue, supervised by an errgroup so a worker error surfaces through
// Shutdown rather than being silently dropped.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	gctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	g, gctx := errgroup.WithContext(gctx)
	p.g = g

	for i := 0; i < p.numWorkers; i++ {
		queue := p.selector.Assign(i)
		g.Go(func() error { return p.runWorker(gctx, queue) })
	}
}

func (p *Pool) runWorker(ctx context.Context, queue Queue) error {
	for {
		switch queue {
		case StimulateQueue:
			select {
			case <-ctx.Done():
				return nil
			case req, ok := <-p.stimulateCh:
				if !ok {
					return nil
				}
				req.done <- p.service.Stimulate(req.context, req.counts)
			}
		case CorrelateQueue:
			select {
			case <-ctx.Done():
				return nil
			case req, ok := <-p.correlateCh:
				if !ok {
					return nil
				}
				req.done <- p.service.Correlate(req.context, req.handles)
			}
		}
	}
}

// Stimulate enqueues a stimulate request and blocks for its result,
// respecting ctx cancellation on every wait.
func (p *Pool) Stimulate(ctx context.Context, requestContext string, counts map[string]float64) error {
	if p.isStopped() {
		return ErrPoolStopped
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	req := &stimulateRequest{context: requestContext, counts: counts, done: make(chan error, 1)}
	select {
	case p.stimulateCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Correlate enqueues a correlate request and blocks for its result.
func (p *Pool) Correlate(ctx context.Context, requestContext string, handles []string) error {
	if p.isStopped() {
		return ErrPoolStopped
	}
	req := &correlateRequest{context: requestContext, handles: handles, done: make(chan error, 1)}
	select {
	case p.correlateCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Shutdown implements the original's WorkerThreads.graceful_stop(): new
// submissions are refused immediately, already-queued requests are allowed
// to drain, and Shutdown blocks until every worker has exited or ctx is
// cancelled first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stimulateCh)
	close(p.correlateCh)
	g := p.g
	cancel := p.cancel
	p.mu.Unlock()

	if g == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}
