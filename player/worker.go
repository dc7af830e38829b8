package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// taskQueueDepth is the bounded-channel capacity spec.md §9's Design Note
// calls for: "A bounded channel with backpressure-free semantics (drop
// only on shutdown) is sufficient."
const taskQueueDepth = 256

// WorkerThread is the single-consumer FIFO task queue named in spec.md
// §4.1: exactly one dedicated goroutine per session drains it and is the
// only goroutine ever allowed to touch the session's Context.
//
// Grounded on internal/pipeline/pipeline.go's Run select-loop, adapted
// from a multi-channel frame-forwarding loop into a single task queue.
type WorkerThread struct {
	log   *slog.Logger
	ctx   *Context
	sink  EventSink
	tasks chan Task

	depth   atomic.Int32
	dropped atomic.Int64

	done chan struct{}
}

// NewWorkerThread constructs a WorkerThread for playerCtx, delivering
// client-facing events to sink. Call Run in its own goroutine, then Post
// tasks from any goroutine.
func NewWorkerThread(playerCtx *Context, sink EventSink, log *slog.Logger) *WorkerThread {
	if sink == nil {
		sink = NullEventSink{}
	}
	return &WorkerThread{
		log:   log.With("component", "worker", "session", playerCtx.SessionID),
		ctx:   playerCtx,
		sink:  sink,
		tasks: make(chan Task, taskQueueDepth),
		done:  make(chan struct{}),
	}
}

// Post enqueues a task. Per spec.md §9, the queue drops rather than
// blocks once full — only acceptable because the only legitimate source of
// unbounded queueing is a session already shutting down.
func (w *WorkerThread) Post(t Task) {
	select {
	case w.tasks <- t:
		w.depth.Add(1)
	default:
		w.dropped.Add(1)
		w.log.Warn("worker task queue full, dropping task", "session", w.ctx.SessionID)
	}
}

// QueueDepth reports the number of tasks currently queued, for debugapi.
func (w *WorkerThread) QueueDepth() int32 { return w.depth.Load() }

// DroppedTasks reports the cumulative count of tasks dropped due to a full
// queue.
func (w *WorkerThread) DroppedTasks() int64 { return w.dropped.Load() }

// Run drains the task queue until ctx is cancelled.
// Shutdown is cooperative: once ctx is done, Run drains whatever is
// already queued (the "drain successors, then a join" behavior spec.md
// §4.1 asks for) before returning.
func (w *WorkerThread) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case t, ok := <-w.tasks:
			if !ok {
				return
			}
			w.depth.Add(-1)
			w.execute(t)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

// drain executes every task already queued, without blocking for more.
func (w *WorkerThread) drain() {
	for {
		select {
		case t := <-w.tasks:
			w.depth.Add(-1)
			w.execute(t)
		default:
			return
		}
	}
}

func (w *WorkerThread) execute(t Task) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("task panicked, session entering failure", "session", w.ctx.SessionID, "panic", r)
			w.ctx.MarkFailure(fmt.Errorf("task panic: %v", r))
		}
	}()
	t.Execute(w.ctx, w.sink, w.log)
}

// Done returns a channel closed once Run has returned.
func (w *WorkerThread) Done() <-chan struct{} { return w.done }
