// Package gst defines the thin capability seam between player.GstPlayer and
// the underlying media pipeline, per spec.md §9 Design Notes: "Wrap the C
// API behind a thin capability set (PipelineOps, BusOps, ElementOps)
// mockable for tests; the task layer uses only those capabilities."
//
// The concrete GStreamer element graph is explicitly out of scope
// (spec.md §1); this package only defines the interfaces the task layer
// needs and a Null backend that implements them in-memory, used by tests
// and as the default when no real bridge is wired in. The shape mirrors
// the corpus's own way of decoupling an orchestrator from its sink
// (internal/pipeline/pipeline.go's Broadcaster interface).
package gst

import "time"

// State is the GStreamer pipeline state, per spec.md §4.1's state machine.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "NULL"
	}
}

// MessageType identifies the kind of message GstDispatcherThread pops off
// the bus, per spec.md §4.2.
type MessageType int

const (
	MsgStateChanged MessageType = iota
	MsgEOS
	MsgQoS
	MsgWarning
	MsgError
)

// Message is one bus message, translated by GstDispatcherThread into a
// WorkerThread task.
type Message struct {
	Type        MessageType
	NewState    State
	SourceName  string // which element/appsrc the message concerns, when applicable
	QoSDropped  uint64
	QoSProcessed uint64
	Err         error
}

// Pipeline is the capability set the task layer needs from a GStreamer
// pipeline element graph: state changes, seeking, rate control, appsrc
// pushes, and element discovery. All calls are expected to run only on the
// owning WorkerThread goroutine.
type Pipeline interface {
	// SetState requests a pipeline state change and returns a non-nil error
	// if the change failed.
	SetState(s State) error
	State() State

	// Seek performs a flushing seek to positionNs.
	Seek(positionNs int64) error

	// Position reports the pipeline's last known playback position, used
	// by the position-report timer started on Play and stopped on
	// Pause/Stop per spec.md §4.1.
	Position() int64

	// SetInstantRateChange sends the custom-instant-rate-change event (or,
	// for sinks that don't support it, the amlhalasink segment fallback)
	// described in spec.md §4.1's SetPlaybackRate task.
	SetInstantRateChange(rate float64) error

	// PushBuffer pushes one buffer of compressed samples into the named
	// appsrc (audioAppSrc/videoAppSrc).
	PushBuffer(appsrcName string, data []byte, ptsNs, durationNs int64) error

	// SetCaps applies new caps to the named appsrc, used by AttachSamples
	// when the codec config changes mid-stream.
	SetCaps(appsrcName string, caps string) error

	// FindElement reports whether an element (e.g. "video-sink") exists in
	// the graph, used by RenderFrame and SetupElement.
	FindElement(name string) (Element, bool)

	// Bus returns the pipeline's message bus for GstDispatcherThread.
	Bus() Bus
}

// Bus is the capability set GstDispatcherThread needs: blocking pop of the
// next message.
type Bus interface {
	// Pop blocks until a message is available or the bus is closed, in
	// which case ok is false.
	Pop() (Message, bool)
	// Close unblocks any pending Pop and causes subsequent calls to return
	// ok=false; used for GstDispatcherThread's cooperative shutdown.
	Close()
}

// Element is the capability set SetupElement/RenderFrame need from a
// discovered pipeline element: property get/set and signal emission.
type Element interface {
	Name() string
	HasProperty(name string) bool
	SetProperty(name string, value any) error
	GetProperty(name string) (any, bool)
	// Emit invokes a GObject signal by name, e.g. "step" for frame-stepping.
	Emit(signal string, args ...any) error
}

// FinishSetupDeadline is the default SetupSource finish-setup timeout named
// in spec.md §4.1's task table.
const FinishSetupDeadline = 200 * time.Millisecond
