package laminar

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// ConcurrencyPolicy computes the worker slot count for a dispatcher at
// startup. Policies are evaluated once; the result is clamped to at
// least one slot.
type ConcurrencyPolicy func() int

// FixedWorkers returns a policy with a constant slot count.
func FixedWorkers(n int) ConcurrencyPolicy {
	return func() int { return n }
}

// MemoryScaledWorkers derives the slot count from free system memory,
// one slot per perWorkerBytes, capped at NumCPU. Falls back to a
// single slot when the memory query fails or the platform has no
// free-memory probe.
func MemoryScaledWorkers(perWorkerBytes uint64) ConcurrencyPolicy {
	return func() int {
		if perWorkerBytes == 0 {
			return 1
		}
		free, ok := freeSystemMemory()
		if !ok {
			return 1
		}
		n := int(free / perWorkerBytes)
		if limit := runtime.NumCPU(); n > limit {
			n = limit
		}
		if n < 1 {
			n = 1
		}
		return n
	}
}

// Dispatcher queue defaults
const (
	DefaultPrimaryCapacity  = 65536
	DefaultOverflowCapacity = 100000
)

// Dispatcher lifecycle states
const (
	dispatcherCreated int32 = iota
	dispatcherRunning
	dispatcherDraining
	dispatcherStopped
)

// DispatcherConfig tunes the asynchronous delivery pipeline.
type DispatcherConfig struct {
	// PrimaryCapacity is the main queue size. Defaults to
	// DefaultPrimaryCapacity.
	PrimaryCapacity int
	// OverflowCapacity bounds the burst-absorbing secondary queue.
	// Defaults to DefaultOverflowCapacity.
	OverflowCapacity int
	// Concurrency computes the worker slot count. Defaults to
	// FixedWorkers(1), which preserves per-producer FIFO through the
	// async path; larger counts trade ordering for throughput.
	Concurrency ConcurrencyPolicy
	// DiagnosticsToStderr enables internal failure reporting.
	DiagnosticsToStderr bool
}

// AsyncDispatcher decouples producers from sink I/O. Producers enqueue
// without ever blocking: a record lands on the primary queue, spills to
// the bounded overflow queue, or is counted dropped. A pump goroutine
// drains the queues (primary first) and hands each record to a
// capacity-limited worker pool that routes it into sinks. A panic while
// processing one record is confined to that record.
type AsyncDispatcher struct {
	router   *LayerRouter
	primary  chan *Record
	overflow chan *Record

	pool     *ants.Pool
	stop     chan struct{}
	pumpDone chan struct{}
	inflight sync.WaitGroup

	state        atomic.Int32
	dropped      atomic.Uint64
	workerPanics atomic.Uint64
	concurrency  ConcurrencyPolicy
	diagnostics  bool
}

// NewAsyncDispatcher creates a dispatcher in the Created state. Records
// may be enqueued immediately; nothing is consumed until Start.
func NewAsyncDispatcher(router *LayerRouter, cfg DispatcherConfig) *AsyncDispatcher {
	if cfg.PrimaryCapacity <= 0 {
		cfg.PrimaryCapacity = DefaultPrimaryCapacity
	}
	if cfg.OverflowCapacity <= 0 {
		cfg.OverflowCapacity = DefaultOverflowCapacity
	}
	d := &AsyncDispatcher{
		router:      router,
		primary:     make(chan *Record, cfg.PrimaryCapacity),
		overflow:    make(chan *Record, cfg.OverflowCapacity),
		stop:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
		diagnostics: cfg.DiagnosticsToStderr,
	}
	d.concurrency = cfg.Concurrency
	return d
}

// Start transitions Created -> Running, sizes the worker pool from the
// concurrency policy and begins draining the queues.
func (d *AsyncDispatcher) Start() error {
	if !d.state.CompareAndSwap(dispatcherCreated, dispatcherRunning) {
		return fmtErrorf("dispatcher already started")
	}

	slots := 1
	if d.concurrency != nil {
		if n := d.concurrency(); n > 0 {
			slots = n
		}
	}

	pool, err := ants.NewPool(slots)
	if err != nil {
		d.state.Store(dispatcherCreated)
		return fmtErrorf("failed to create worker pool: %w", err)
	}
	d.pool = pool

	go d.pump()
	return nil
}

// Enqueue attempts a non-blocking placement of the record: primary
// queue first, then overflow. Returns false, with droppedCount
// incremented, when both are full or the dispatcher is past Running.
// Enqueue never blocks the caller.
func (d *AsyncDispatcher) Enqueue(r *Record) bool {
	switch d.state.Load() {
	case dispatcherCreated, dispatcherRunning:
	default:
		d.dropped.Add(1)
		releaseRecord(r)
		return false
	}

	select {
	case d.primary <- r:
		return true
	default:
	}
	select {
	case d.overflow <- r:
		return true
	default:
	}

	d.dropped.Add(1)
	releaseRecord(r)
	return false
}

// pump drains the queues, strictly preferring primary. Records that
// spilled to overflow may therefore be processed after later records
// that stayed in primary; that relaxation is the documented cost of
// burst absorption.
func (d *AsyncDispatcher) pump() {
	defer close(d.pumpDone)
	for {
		select {
		case r := <-d.primary:
			d.submit(r)
			continue
		default:
		}

		select {
		case r := <-d.primary:
			d.submit(r)
		case r := <-d.overflow:
			d.submit(r)
		case <-d.stop:
			return
		}
	}
}

// submit hands one record to the worker pool. Submit blocks the pump
// when all slots are busy; producers stay unaffected behind the
// queues. If the pool rejects the task (released during shutdown), the
// record is processed inline so it is not lost from accounting.
func (d *AsyncDispatcher) submit(r *Record) {
	d.inflight.Add(1)
	err := d.pool.Submit(func() {
		defer d.inflight.Done()
		d.process(r)
	})
	if err != nil {
		d.process(r)
		d.inflight.Done()
	}
}

// process routes one record into its resolved sinks. A panic from any
// sink is caught here, counted, reported to stderr and does not
// disturb other in-flight work.
func (d *AsyncDispatcher) process(r *Record) {
	defer func() {
		if rec := recover(); rec != nil {
			d.workerPanics.Add(1)
			internalLogf(d.diagnostics, "worker recovered from panic: %v\n", rec)
		}
		releaseRecord(r)
	}()

	for _, s := range d.router.Resolve(r.Layer) {
		s.Accept(r)
	}
}

// Drain transitions to Draining, consumes queued work until both
// queues are empty or the deadline elapses, counts any leftovers as
// dropped, closes every sink and transitions to Stopped. Safe to call
// more than once; later calls are no-ops.
func (d *AsyncDispatcher) Drain(grace time.Duration) error {
	if d.state.CompareAndSwap(dispatcherCreated, dispatcherDraining) {
		// Never started: nothing is consuming, discard and account
		d.discardQueued()
		err := d.closeSinks()
		d.state.Store(dispatcherStopped)
		d.discardQueued()
		return err
	}
	if !d.state.CompareAndSwap(dispatcherRunning, dispatcherDraining) {
		return nil
	}

	deadline := time.Now().Add(grace)
	deadlineExceeded := false
	for len(d.primary) > 0 || len(d.overflow) > 0 {
		if !time.Now().Before(deadline) {
			deadlineExceeded = true
			break
		}
		time.Sleep(minWaitTime)
	}

	close(d.stop)
	<-d.pumpDone
	d.discardQueued()

	// Wait for in-flight workers, bounded by the remaining grace
	workersDone := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-time.After(time.Until(deadline)):
		deadlineExceeded = true
	}
	d.pool.Release()

	err := d.closeSinks()
	d.state.Store(dispatcherStopped)
	// Sweep again: a producer that observed Running just before the
	// first discard can still have landed a record on the queues
	d.discardQueued()

	if deadlineExceeded {
		err = combineErrors(err, fmtErrorf("drain deadline (%v) exceeded, remaining records dropped", grace))
	}
	return err
}

// discardQueued empties both queues, counting every leftover record as
// dropped so accounting stays exact.
func (d *AsyncDispatcher) discardQueued() {
	for {
		select {
		case r := <-d.primary:
			d.dropped.Add(1)
			releaseRecord(r)
		default:
			goto overflow
		}
	}
overflow:
	for {
		select {
		case r := <-d.overflow:
			d.dropped.Add(1)
			releaseRecord(r)
		default:
			return
		}
	}
}

func (d *AsyncDispatcher) closeSinks() error {
	var err error
	for _, s := range d.router.Sinks() {
		err = combineErrors(err, s.Close())
	}
	return err
}

// Dropped returns the count of records rejected at the saturation
// boundary or abandoned at the drain deadline.
func (d *AsyncDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// WorkerPanics returns the count of panics recovered at the worker
// boundary.
func (d *AsyncDispatcher) WorkerPanics() uint64 {
	return d.workerPanics.Load()
}

// QueueDepths returns the current primary and overflow queue lengths.
func (d *AsyncDispatcher) QueueDepths() (primary, overflow int) {
	return len(d.primary), len(d.overflow)
}
