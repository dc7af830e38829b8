package tasks

import (
	"log/slog"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/wire"
)

// UpdateState reflects a pipeline state-changed bus message into Context
// and the client, per spec.md §4.2 ("state-changed → UpdateState").
type UpdateState struct {
	NewState gst.State
}

func (t *UpdateState) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if ctx.state == PipelineFailure {
		return
	}

	var playback wire.PlaybackState
	switch t.NewState {
	case gst.StateReady:
		ctx.state = PipelineReady
		playback = wire.PlaybackStateStopped
	case gst.StatePaused:
		ctx.state = PipelinePaused
		playback = wire.PlaybackStatePaused
	case gst.StatePlaying:
		ctx.state = PipelinePlaying
		applyPendingRate(ctx)
		playback = wire.PlaybackStatePlaying
	default:
		ctx.state = PipelineNull
		playback = wire.PlaybackStateStopped
	}

	sink.OnPlaybackStateChange(ctx.SessionID, playback)
}

// applyPendingRate implements spec.md §4.1's tie-break: "SetPlaybackRate
// while < Playing is deferred... and applied on the next transition to
// Playing," and spec.md §8's invariant that pendingPlaybackRate is cleared
// whenever Playing is reached.
func applyPendingRate(ctx *Context) {
	if ctx.pendingPlaybackRate == nil {
		return
	}
	rate := *ctx.pendingPlaybackRate
	if ctx.Pipeline != nil {
		_ = ctx.Pipeline.SetInstantRateChange(rate)
	}
	ctx.playbackRate = rate
	ctx.pendingPlaybackRate = nil
}

// UpdatePosition reports the pipeline's position to the client, posted by
// the position timer started on Play and stopped on Pause/Stop per
// spec.md §4.1.
type UpdatePosition struct {
	PositionNs int64
}

func (t *UpdatePosition) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if ctx.state != PipelinePlaying {
		return
	}
	ctx.positionNs = t.PositionNs
	sink.OnPositionChange(ctx.SessionID, t.PositionNs)
}

// SetEos marks a source end-of-stream, per spec.md §4.2 ("EOS → SetEos").
type SetEos struct {
	SourceName string
}

func (t *SetEos) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	id, ok := ctx.sourceIDByAppsrc(t.SourceName)
	if !ok {
		return
	}
	ctx.sources[id].eos = true
	log.Debug("source reached eos", "session", ctx.SessionID, "source", id)
}

// NotifyQos forwards a QoS bus message to the client, per spec.md §4.2
// ("QoS → NotifyQos").
type NotifyQos struct {
	SourceName string
	Processed  uint64
	Dropped    uint64
}

func (t *NotifyQos) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	sourceID, ok := ctx.sourceIDByAppsrc(t.SourceName)
	if !ok {
		return
	}
	sink.OnQos(ctx.SessionID, sourceID, t.Processed, t.Dropped)
}

// Failure reflects a bus warning/error into Context and the client, per
// spec.md §4.2 ("warning/error → Failure") and §4.1's "Any pipeline
// state-change failure is surfaced as NetworkState.Failure" rule. Warning
// messages are logged but do not transition pipeline state.
type Failure struct {
	Err     error
	Warning bool
}

func (t *Failure) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if t.Warning {
		log.Warn("pipeline warning", "session", ctx.SessionID, "error", t.Err)
		return
	}
	log.Error("pipeline error", "session", ctx.SessionID, "error", t.Err)
	ctx.MarkFailure(t.Err)
	sink.OnNetworkStateChange(ctx.SessionID, wire.NetworkStateFailure)
}
