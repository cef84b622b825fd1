// Package notify coalesces per-row change events into one batch per
// quiescent period of the write queue.
//
// Writers buffer events with Inserted, AvailabilityChanged and Updated. The
// Aggregator is registered as a writequeue.Listener: when the queue drains it
// arms a debounce timer, and a write starting before the timer fires stops
// it, so a burst spanning the debounce boundary coalesces into one batch.
// When the timer fires the non-empty buckets are delivered in the order
// inserted, availability, updated, followed by a single ready signal.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/logging"
)

const DefaultDebounce = time.Second

type Aggregator struct {
	debounce time.Duration
	log      logging.Logger

	mu      sync.Mutex
	buf     models.Batch
	busy    bool
	gen     uint64
	timer   *time.Timer
	stopped bool

	onInserted     []func([]models.Inserted)
	onAvailability []func([]models.AvailabilityChange)
	onUpdated      []func([]string)
	onReady        []func()
	onBatch        []func(models.Batch)
}

func New(debounce time.Duration, log logging.Logger) *Aggregator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Aggregator{debounce: debounce, log: log.With("module", "notify")}
}

func (a *Aggregator) OnInserted(fn func([]models.Inserted)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onInserted = append(a.onInserted, fn)
}

func (a *Aggregator) OnAvailabilityChanged(fn func([]models.AvailabilityChange)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAvailability = append(a.onAvailability, fn)
}

func (a *Aggregator) OnUpdated(fn func([]string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdated = append(a.onUpdated, fn)
}

func (a *Aggregator) OnReady(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReady = append(a.onReady, fn)
}

// Subscribe registers fn for the whole batch, delivered before the
// per-bucket callbacks.
func (a *Aggregator) Subscribe(fn func(models.Batch)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onBatch = append(a.onBatch, fn)
}

func (a *Aggregator) Inserted(uuid, table string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Inserted = append(a.buf.Inserted, models.Inserted{UUID: uuid, Table: table})
}

func (a *Aggregator) AvailabilityChanged(uuid string, available bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Availability = append(a.buf.Availability, models.AvailabilityChange{UUID: uuid, Available: available})
}

func (a *Aggregator) Updated(uuid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Updated = append(a.buf.Updated, uuid)
}

// WriteStarted implements writequeue.Listener.
func (a *Aggregator) WriteStarted() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.busy = true
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
	}
}

// WritesDrained implements writequeue.Listener.
func (a *Aggregator) WritesDrained() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.busy = false
	a.gen++
	if a.stopped {
		return
	}
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, func() { a.fire(gen) })
}

func (a *Aggregator) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || a.busy || gen != a.gen {
		a.mu.Unlock()
		return
	}
	batch := a.buf
	a.buf = models.Batch{}

	onBatch := append(([]func(models.Batch))(nil), a.onBatch...)
	onInserted := append(([]func([]models.Inserted))(nil), a.onInserted...)
	onAvailability := append(([]func([]models.AvailabilityChange))(nil), a.onAvailability...)
	onUpdated := append(([]func([]string))(nil), a.onUpdated...)
	onReady := append(([]func())(nil), a.onReady...)
	a.mu.Unlock()

	a.log.Debug(context.Background(), "emitting change batch",
		"inserted", len(batch.Inserted),
		"availability", len(batch.Availability),
		"updated", len(batch.Updated))

	for _, fn := range onBatch {
		fn(batch)
	}
	if len(batch.Inserted) > 0 {
		for _, fn := range onInserted {
			fn(batch.Inserted)
		}
	}
	if len(batch.Availability) > 0 {
		for _, fn := range onAvailability {
			fn(batch.Availability)
		}
	}
	if len(batch.Updated) > 0 {
		for _, fn := range onUpdated {
			fn(batch.Updated)
		}
	}
	for _, fn := range onReady {
		fn()
	}
}

// Stop cancels a pending emission. Buffered events are dropped.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
}
