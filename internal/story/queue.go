package story

import (
	"errors"
	"sync"

	"github.com/Neperienx/TTS-local/internal/engine"
)

var errQueueClosed = errors.New("job queue closed")

// pageJob is one page's synthesis work order.
type pageJob struct {
	page int
	req  engine.Request
}

// jobQueue is the bounded FIFO between the dispatcher and the
// synthesis workers. enqueue blocks while the queue is full so the
// dispatcher cannot outrun synthesis, and dequeue keeps draining
// queued jobs after close before reporting shutdown.
type jobQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	jobs     []pageJob
	maxSize  int
	closed   bool
}

func newJobQueue(maxSize int) *jobQueue {
	if maxSize < 1 {
		maxSize = 1
	}
	q := &jobQueue{maxSize: maxSize}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

func (q *jobQueue) enqueue(j pageJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) >= q.maxSize && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return errQueueClosed
	}

	q.jobs = append(q.jobs, j)
	q.notEmpty.Signal()
	return nil
}

// dequeue returns the next job in FIFO order. The second return is
// false once the queue is closed and drained.
func (q *jobQueue) dequeue() (pageJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.jobs) == 0 {
		return pageJob{}, false
	}

	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.notFull.Signal()
	return j, true
}

// close stops further enqueues and wakes all waiters. Queued jobs stay
// dequeueable.
func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *jobQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
