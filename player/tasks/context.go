// Package tasks implements the canonical task table from spec.md §4.1:
// one Task type per row, each executed exclusively on a session's
// WorkerThread goroutine against its PlayerContext. This package also
// defines Context, EventSink, and the Task interface themselves (rather
// than the player package) so that player.WorkerThread/DispatcherThread
// can depend on tasks without tasks needing to depend back on player.
package tasks

import (
	"log/slog"
	"time"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/wire"
)

// PipelineState is the pipeline-level state machine named in spec.md
// §4.1, a superset of gst.State that adds the Seeking and Failure states the
// task layer tracks above the raw GStreamer state.
type PipelineState int

const (
	PipelineNull PipelineState = iota
	PipelineReady
	PipelinePaused
	PipelinePlaying
	PipelineSeeking
	PipelineFailure
)

func (s PipelineState) String() string {
	switch s {
	case PipelineReady:
		return "Ready"
	case PipelinePaused:
		return "Paused"
	case PipelinePlaying:
		return "Playing"
	case PipelineSeeking:
		return "Seeking"
	case PipelineFailure:
		return "Failure"
	default:
		return "Null"
	}
}

// sourceState is the per-source bookkeeping the task table mutates:
// needData/EOS/underflow flags and the negotiated caps string.
type sourceState struct {
	source        mediasource.Source
	caps          string
	needData      bool
	eos           bool
	underflow     bool
	setupComplete bool
}

// Context is the PlayerContext named in spec.md §4.1: all of the
// server-side state for one session's pipeline, touched only by tasks
// running on the owning WorkerThread.
type Context struct {
	SessionID int32

	Pipeline gst.Pipeline

	state PipelineState

	sources map[int32]*sourceState

	rialtoSrcElement    string // element name set by SetupSource
	finishSetupDue      bool
	finishSetupDeadline time.Time

	playbackRate        float64
	pendingPlaybackRate *float64

	audioNeedData bool
	videoNeedData bool

	positionNs int64

	lastFailure error
}

// NewContext constructs a Context in PipelineNull bound to pipeline.
func NewContext(sessionID int32, pipeline gst.Pipeline) *Context {
	return &Context{
		SessionID:    sessionID,
		Pipeline:     pipeline,
		state:        PipelineNull,
		sources:      make(map[int32]*sourceState),
		playbackRate: 1.0,
	}
}

// State returns the current pipeline-level state. Safe to call from any
// goroutine: it is only ever written from the WorkerThread, and this
// getter is only meaningful when called from a task or after the
// WorkerThread has drained (no concurrent writer is possible then).
func (c *Context) State() PipelineState { return c.state }

// PositionNs returns the last known playback position.
func (c *Context) PositionNs() int64 { return c.positionNs }

// PlaybackRate returns the currently applied rate (distinct from any
// pendingPlaybackRate stashed while below Playing).
func (c *Context) PlaybackRate() float64 { return c.playbackRate }

// PendingPlaybackRate returns the rate stashed by SetPlaybackRate while
// below Playing, and whether one is pending.
func (c *Context) PendingPlaybackRate() (float64, bool) {
	if c.pendingPlaybackRate == nil {
		return 0, false
	}
	return *c.pendingPlaybackRate, true
}

// AudioNeedData and VideoNeedData report the per-stream-type need-data
// flags spec.md §8 names directly ("after stop, both audioNeedData and
// videoNeedData are false").
func (c *Context) AudioNeedData() bool { return c.audioNeedData }
func (c *Context) VideoNeedData() bool { return c.videoNeedData }

// LastFailure returns the error that moved the context into PipelineFailure,
// or nil.
func (c *Context) LastFailure() error { return c.lastFailure }

// MarkFailure transitions the context into PipelineFailure and records err,
// per spec.md §4.1's "Task exceptions are caught and logged... otherwise the
// session enters Failure" failure semantics. Only the owning WorkerThread
// (directly, or via a task's Execute method) may call this.
func (c *Context) MarkFailure(err error) {
	c.state = PipelineFailure
	c.lastFailure = err
}

// SourceIDs returns the ids of every attached source, for tests and
// debugapi reporting.
func (c *Context) SourceIDs() []int32 {
	ids := make([]int32, 0, len(c.sources))
	for id := range c.sources {
		ids = append(ids, id)
	}
	return ids
}

// Source returns the descriptor for sourceID, if attached.
func (c *Context) Source(sourceID int32) (mediasource.Source, bool) {
	s, ok := c.sources[sourceID]
	if !ok {
		return mediasource.Source{}, false
	}
	return s.source, true
}

// NeedsData reports whether sourceID currently has an outstanding
// NeedMediaDataEvent, per spec.md §8's need-data invariants.
func (c *Context) NeedsData(sourceID int32) bool {
	s, ok := c.sources[sourceID]
	return ok && s.needData
}

// appsrcName returns the appsrc element name convention used throughout the
// task table for a source type: audioAppSrc/videoAppSrc.
func appsrcName(t mediasource.Type) string {
	if t == mediasource.TypeVideo {
		return "videoAppSrc"
	}
	return "audioAppSrc"
}

// sourceIDByAppsrc resolves a bus message's SourceName (an appsrc element
// name) back to the attached source it concerns.
func (c *Context) sourceIDByAppsrc(appsrc string) (int32, bool) {
	for id, s := range c.sources {
		if appsrcName(s.source.Type) == appsrc {
			return id, true
		}
	}
	return 0, false
}

// EventSink is the client-facing event callback surface a session's tasks
// deliver onto. Per spec.md §9's "cyclic ownership" design note, the
// concrete session holds this as a weak back-reference (a plain field that
// may be nilled out on teardown) rather than the Context owning the
// session; Context itself only ever sees the interface.
type EventSink interface {
	OnPlaybackStateChange(sessionID int32, state wire.PlaybackState)
	OnNetworkStateChange(sessionID int32, state wire.NetworkState)
	OnPositionChange(sessionID int32, positionNs int64)
	OnNeedMediaData(sessionID, sourceID int32, frameCount uint32, requestID int32)
	OnQos(sessionID, sourceID int32, processed, dropped uint64)
}

// NullEventSink discards every callback. Used when a session's client has
// disconnected but in-flight tasks still need somewhere safe to deliver to.
type NullEventSink struct{}

func (NullEventSink) OnPlaybackStateChange(int32, wire.PlaybackState) {}
func (NullEventSink) OnNetworkStateChange(int32, wire.NetworkState)   {}
func (NullEventSink) OnPositionChange(int32, int64)                  {}
func (NullEventSink) OnNeedMediaData(int32, int32, uint32, int32)     {}
func (NullEventSink) OnQos(int32, int32, uint64, uint64)              {}

// Task is a value-typed action executed on a session's WorkerThread, per
// spec.md §4.1's task contract: tasks never throw into the queue, failures
// are logged and reflected in Context state by the task itself.
type Task interface {
	Execute(ctx *Context, sink EventSink, log *slog.Logger)
}
