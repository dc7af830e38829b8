package player

import (
	"time"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/player/tasks"
)

// positionTickInterval is the cadence of the position-report timer
// spec.md §4.1's Play task starts and Pause/Stop stop.
const positionTickInterval = 500 * time.Millisecond

// positionTimer polls the pipeline's position on a schedule and posts
// UpdatePosition tasks, standing in for the "position/underflow timer"
// spec.md §4.1 names without prescribing an implementation.
type positionTimer struct {
	pipeline gst.Pipeline
	worker   *WorkerThread
	stop     chan struct{}
	stopped  chan struct{}
}

func newPositionTimer(pipeline gst.Pipeline, worker *WorkerThread) *positionTimer {
	return &positionTimer{pipeline: pipeline, worker: worker}
}

// Start begins ticking. Safe to call once per Play; callers must Stop
// before calling Start again.
func (t *positionTimer) Start() {
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.stopped = make(chan struct{})
	go func() {
		defer close(t.stopped)
		ticker := time.NewTicker(positionTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.worker.Post(&tasks.UpdatePosition{PositionNs: t.pipeline.Position()})
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop halts the timer and waits for its goroutine to exit.
func (t *positionTimer) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.stopped
	t.stop = nil
}
