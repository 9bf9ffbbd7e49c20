package query

import "sync"

// AnswerQueue is a thread-safe FIFO of QueryAnswers with "finished" marker
// semantics: a producer calls Finish once it will never enqueue again, and a
// consumer polls Empty/Finished to know when to stop waiting. Grounded on
// the original's SharedQueue (a mutex-guarded ring buffer); Go's slice
// append already gives us the growth SharedQueue hand-rolls.
type AnswerQueue struct {
	mu       sync.Mutex
	items    []*QueryAnswer
	finished bool
}

// NewAnswerQueue returns an empty, unfinished queue.
func NewAnswerQueue() *AnswerQueue {
	return &AnswerQueue{}
}

// Enqueue appends an answer. Enqueuing after Finish is a caller bug but is
// tolerated (the answer is simply appended); pipeline elements are expected
// to call Finish only once they are truly done producing.
func (q *AnswerQueue) Enqueue(answer *QueryAnswer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, answer)
}

// Dequeue pops the oldest answer, or returns (nil, false) if the queue is
// momentarily empty.
func (q *AnswerQueue) Dequeue() (*QueryAnswer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	answer := q.items[0]
	q.items = q.items[1:]
	return answer, true
}

// Finish marks the queue as never receiving further answers.
func (q *AnswerQueue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
}

// Empty reports whether the queue currently holds no answers.
func (q *AnswerQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Finished reports whether Finish has been called AND the queue has been
// fully drained — the point at which a downstream consumer should stop
// polling.
func (q *AnswerQueue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished && len(q.items) == 0
}

// DrainAll removes and returns every answer currently queued, without
// regard to the finished flag. Used by operators that collect a source to
// completion before joining (AND/OR) rather than streaming incrementally.
func (q *AnswerQueue) DrainAll() []*QueryAnswer {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
