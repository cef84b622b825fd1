// Package writequeue serializes every mutation of the local store on one
// worker goroutine.
//
// Callers enqueue named operations and return immediately. Operations run
// in FIFO order against the store's write handle. The queue keeps a multiset
// of in-flight operation names and notifies listeners when it leaves and
// re-enters quiescence (no operation in flight).
package writequeue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/studiosync/internal/logging"
)

var ErrClosed = errors.New("write queue closed")

// Op is one mutation. It owns its transaction scope; use dbx.WithTx when
// more than one statement must be atomic.
type Op func(ctx context.Context, db *sql.DB) error

// Listener observes quiescence transitions. Both methods are called with
// the queue's lock held and must not call back into the queue.
type Listener interface {
	WriteStarted()
	WritesDrained()
}

// ErrorHandler receives operation failures after they have been logged.
type ErrorHandler func(name string, err error)

type job struct {
	name string
	op   Op
}

type Queue struct {
	db  *sql.DB
	log logging.Logger

	mu        sync.Mutex
	pending   []job
	inFlight  map[string]int
	count     int
	closed    bool
	stopping  bool
	idle      chan struct{}
	listeners []Listener
	onError   ErrorHandler

	wake chan struct{}
	done chan struct{}
}

func New(db *sql.DB, log logging.Logger) *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		db:       db,
		log:      log.With("module", "writequeue"),
		inFlight: make(map[string]int),
		idle:     idle,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// AddListener registers l. Register listeners before the first Enqueue.
func (q *Queue) AddListener(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

func (q *Queue) OnError(h ErrorHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = h
}

// Enqueue schedules op. It never blocks on storage.
func (q *Queue) Enqueue(name string, op Op) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warn(context.Background(), "write dropped, queue closed", "op", name)
		return ErrClosed
	}
	q.push(name, op)
	return nil
}

func (q *Queue) push(name string, op Op) {
	q.pending = append(q.pending, job{name: name, op: op})
	q.inFlight[name]++
	q.count++

	if q.count == 1 {
		q.idle = make(chan struct{})
		for _, l := range q.listeners {
			l.WriteStarted()
		}
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) finish(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight[name]--; q.inFlight[name] <= 0 {
		delete(q.inFlight, name)
	}
	q.count--

	if q.count == 0 {
		close(q.idle)
		for _, l := range q.listeners {
			l.WritesDrained()
		}
	}
}

// IsQuiescent reports whether no operation is queued or running.
func (q *Queue) IsQuiescent() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// InFlight returns a copy of the in-flight multiset.
func (q *Queue) InFlight() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]int, len(q.inFlight))
	for k, v := range q.inFlight {
		out[k] = v
	}
	return out
}

// AwaitQuiescent blocks until the queue is quiescent or ctx is done. It
// reports whether quiescence was reached.
func (q *Queue) AwaitQuiescent(ctx context.Context) bool {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run executes queued operations until the queue is closed and drained, or
// until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.done)

	for {
		j, ok := q.next(ctx)
		if !ok {
			return ctx.Err()
		}
		q.exec(ctx, j)
	}
}

func (q *Queue) next(ctx context.Context) (job, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			j := q.pending[0]
			q.pending[0] = job{}
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return j, true
		}
		stopping := q.stopping
		q.mu.Unlock()

		if stopping {
			return job{}, false
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return job{}, false
		}
	}
}

func (q *Queue) exec(ctx context.Context, j job) {
	defer q.finish(j.name)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return j.op(ctx, q.db)
	}()
	if err == nil {
		return
	}

	q.log.Error(ctx, "write failed", "op", j.name, "error", err)

	q.mu.Lock()
	h := q.onError
	q.mu.Unlock()
	if h != nil {
		h(j.name, err)
	}
}

// Close refuses further writes, runs a VACUUM as the last operation, waits
// for the queue to drain and stops the worker. ctx bounds the wait.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.push("vacuum", vacuum)
	q.mu.Unlock()

	drained := q.AwaitQuiescent(ctx)

	q.mu.Lock()
	q.stopping = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}

	if !drained {
		return fmt.Errorf("write queue not drained: %w", ctx.Err())
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write worker did not stop: %w", ctx.Err())
	}
}

func vacuum(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `VACUUM`)
	return err
}
