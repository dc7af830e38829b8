package player

import (
	"log/slog"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/player/tasks"
)

// DispatcherThread is the GstDispatcherThread named in spec.md §4.2: a
// dedicated goroutine that blocks on the pipeline's bus and translates
// each message into a WorkerThread task, never touching the pipeline
// directly beyond popping messages.
type DispatcherThread struct {
	log    *slog.Logger
	bus    gst.Bus
	worker *WorkerThread
}

// NewDispatcherThread constructs a DispatcherThread that pops messages
// from bus and posts translated tasks onto worker.
func NewDispatcherThread(bus gst.Bus, worker *WorkerThread, log *slog.Logger) *DispatcherThread {
	return &DispatcherThread{
		log:    log.With("component", "dispatcher"),
		bus:    bus,
		worker: worker,
	}
}

// Run blocks popping bus messages until the bus is closed (the "posted
// wakeup message causes clean exit" shutdown spec.md §4.2 describes --
// here expressed as Bus.Close unblocking Pop rather than a sentinel
// message, since Go channels support that directly).
func (d *DispatcherThread) Run() {
	for {
		msg, ok := d.bus.Pop()
		if !ok {
			d.log.Debug("bus closed, dispatcher exiting")
			return
		}
		d.worker.Post(d.translate(msg))
	}
}

func (d *DispatcherThread) translate(msg gst.Message) Task {
	switch msg.Type {
	case gst.MsgStateChanged:
		return &tasks.UpdateState{NewState: msg.NewState}
	case gst.MsgEOS:
		return &tasks.SetEos{SourceName: msg.SourceName}
	case gst.MsgQoS:
		return &tasks.NotifyQos{SourceName: msg.SourceName, Processed: msg.QoSProcessed, Dropped: msg.QoSDropped}
	case gst.MsgWarning:
		return &tasks.Failure{Err: msg.Err, Warning: true}
	case gst.MsgError:
		return &tasks.Failure{Err: msg.Err}
	default:
		return &tasks.Failure{Err: nil, Warning: true}
	}
}
