package tasks

import (
	"fmt"
	"log/slog"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/wire"
)

// changePipelineState requests a GStreamer state change and surfaces any
// failure as NetworkState.Failure, the shared helper spec.md §4.1's task
// table calls "changePipelineState" from Play/Pause/Stop/FinishSourceSetup.
func changePipelineState(ctx *Context, sink EventSink, log *slog.Logger, target gst.State, onOk PipelineState) error {
	if ctx.Pipeline == nil {
		ctx.state = onOk
		return nil
	}
	if err := ctx.Pipeline.SetState(target); err != nil {
		log.Warn("pipeline state change failed", "session", ctx.SessionID, "target", target, "error", err)
		ctx.MarkFailure(err)
		sink.OnNetworkStateChange(ctx.SessionID, wire.NetworkStateFailure)
		return err
	}
	ctx.state = onOk
	return nil
}

// Play requests Playing and, once the state change succeeds, applies any
// pendingPlaybackRate, per spec.md §4.1. The position timer is not part of
// this task: player.GstPlayer.Play starts it after this task replies, and it
// posts UpdatePosition tasks on a schedule.
type Play struct {
	Reply chan<- error
}

func (t *Play) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	err := changePipelineState(ctx, sink, log, gst.StatePlaying, PipelinePlaying)
	if err == nil {
		applyPendingRate(ctx)
	}
	if t.Reply != nil {
		t.Reply <- err
	}
}

// Pause requests Paused, per spec.md §4.1. player.GstPlayer.Pause stops the
// position timer before posting this task.
type Pause struct {
	Reply chan<- error
}

func (t *Pause) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	err := changePipelineState(ctx, sink, log, gst.StatePaused, PipelinePaused)
	if t.Reply != nil {
		t.Reply <- err
	}
}

// Stop requests Null and clears need-data flags and any pending rate, per
// spec.md §4.1 ("Stop clears both needData flags and any pending rate") and
// §8's invariant that audioNeedData/videoNeedData are both false after Stop.
// player.GstPlayer.Stop stops the position timer before posting this task.
type Stop struct {
	Reply chan<- error
}

func (t *Stop) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	err := changePipelineState(ctx, sink, log, gst.StateNull, PipelineNull)
	ctx.audioNeedData = false
	ctx.videoNeedData = false
	ctx.pendingPlaybackRate = nil
	for _, s := range ctx.sources {
		s.needData = false
	}
	if t.Reply != nil {
		t.Reply <- err
	}
}

// SetPosition seeks the pipeline and clears per-source EOS/underflow flags,
// per spec.md §4.1. Per spec.md §8, after this succeeds the caller (the
// client-side coordinator, via the session's NeedDataRequest map) is
// responsible for dropping outstanding NeedDataRequests; this task only
// handles the server-side pipeline seek and flag reset.
type SetPosition struct {
	PositionNs int64
	Reply      chan<- error
}

func (t *SetPosition) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	priorState := ctx.state
	ctx.state = PipelineSeeking

	var err error
	if ctx.Pipeline != nil {
		err = ctx.Pipeline.Seek(t.PositionNs)
	}
	if err != nil {
		log.Warn("setPosition: seek failed", "session", ctx.SessionID, "error", err)
		ctx.MarkFailure(err)
		sink.OnNetworkStateChange(ctx.SessionID, wire.NetworkStateFailure)
		if t.Reply != nil {
			t.Reply <- err
		}
		return
	}

	ctx.positionNs = t.PositionNs
	for _, s := range ctx.sources {
		s.eos = false
		s.underflow = false
	}
	ctx.state = priorState
	sink.OnPositionChange(ctx.SessionID, t.PositionNs)

	if t.Reply != nil {
		t.Reply <- nil
	}
}

// SetPlaybackRate applies the rate immediately if the pipeline is at or
// above Playing, otherwise stashes pendingPlaybackRate, per spec.md §4.1.
type SetPlaybackRate struct {
	Rate  float64
	Reply chan<- error
}

func (t *SetPlaybackRate) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if ctx.state == PipelinePlaying {
		var err error
		if ctx.Pipeline != nil {
			err = ctx.Pipeline.SetInstantRateChange(t.Rate)
		}
		if err != nil {
			log.Warn("setPlaybackRate failed", "session", ctx.SessionID, "error", err)
			if t.Reply != nil {
				t.Reply <- err
			}
			return
		}
		ctx.playbackRate = t.Rate
		ctx.pendingPlaybackRate = nil
	} else {
		rate := t.Rate
		ctx.pendingPlaybackRate = &rate
	}
	if t.Reply != nil {
		t.Reply <- nil
	}
}

// RenderFrame finds video-sink and, if it exposes frame-step-on-preroll,
// pulses it and steps one buffer, per spec.md §4.1.
type RenderFrame struct {
	Reply chan<- error
}

func (t *RenderFrame) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if ctx.Pipeline == nil {
		t.reply(nil)
		return
	}
	el, ok := ctx.Pipeline.FindElement("video-sink")
	if !ok {
		t.reply(fmt.Errorf("player: video-sink element not found"))
		return
	}
	if !el.HasProperty("frame-step-on-preroll") {
		t.reply(nil)
		return
	}
	if err := el.SetProperty("frame-step-on-preroll", true); err != nil {
		t.reply(err)
		return
	}
	t.reply(el.Emit("step", 1))
}

func (t *RenderFrame) reply(err error) {
	if t.Reply != nil {
		t.Reply <- err
	}
}
