package tasks

import (
	"fmt"
	"log/slog"

	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/wire"
)

// NeedData marks a source's needData flag and enqueues a NeedMediaDataEvent
// toward the client, per spec.md §4.1. RequestID is allocated by the
// caller (the session owns the monotonic request-id counter named in
// spec.md §3's NeedDataRequest).
type NeedData struct {
	SourceID   int32
	FrameCount uint32
	RequestID  int32
}

func (t *NeedData) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	s, ok := ctx.sources[t.SourceID]
	if !ok {
		log.Warn("needData: unknown source", "session", ctx.SessionID, "source", t.SourceID)
		return
	}
	s.needData = true
	setStreamNeedData(ctx, s.source.Type, true)
	sink.OnNeedMediaData(ctx.SessionID, t.SourceID, t.FrameCount, t.RequestID)
}

// EnoughData clears a source's needData flag, per spec.md §4.1.
type EnoughData struct {
	SourceID int32
}

func (t *EnoughData) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	s, ok := ctx.sources[t.SourceID]
	if !ok {
		return
	}
	s.needData = false
	setStreamNeedData(ctx, s.source.Type, false)
}

func setStreamNeedData(ctx *Context, t mediasource.Type, v bool) {
	if t == mediasource.TypeVideo {
		ctx.videoNeedData = v
	} else {
		ctx.audioNeedData = v
	}
}

// SampleBuffer is one compressed sample pushed into an appsrc by
// AttachSamples.
type SampleBuffer struct {
	Data       []byte
	PTSNs      int64
	DurationNs int64
}

// AttachSamples pushes buffers into the appropriate appsrc and lazily
// updates caps on a codec-parameter change, per spec.md §4.1.
type AttachSamples struct {
	SourceID int32
	Buffers  []SampleBuffer
	NewCaps  string // non-empty when rate/channel or width/height changed
	Reply    chan<- error
}

func (t *AttachSamples) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	s, ok := ctx.sources[t.SourceID]
	if !ok {
		t.reply(fmt.Errorf("player: source %d not attached", t.SourceID))
		return
	}
	if ctx.Pipeline == nil {
		t.reply(nil)
		return
	}

	appsrc := appsrcName(s.source.Type)

	if t.NewCaps != "" && t.NewCaps != s.caps {
		if err := ctx.Pipeline.SetCaps(appsrc, t.NewCaps); err != nil {
			log.Warn("attachSamples: SetCaps failed", "session", ctx.SessionID, "source", t.SourceID, "error", err)
			t.reply(err)
			return
		}
		s.caps = t.NewCaps
	}

	for _, b := range t.Buffers {
		if err := ctx.Pipeline.PushBuffer(appsrc, b.Data, b.PTSNs, b.DurationNs); err != nil {
			log.Warn("attachSamples: PushBuffer failed", "session", ctx.SessionID, "source", t.SourceID, "error", err)
			t.reply(err)
			return
		}
	}

	s.underflow = false
	t.reply(nil)
}

func (t *AttachSamples) reply(err error) {
	if t.Reply != nil {
		t.Reply <- err
	}
}

// Underflow raises a source's underflow flag and notifies the client of
// buffering, per spec.md §4.1.
type Underflow struct {
	SourceID int32
}

func (t *Underflow) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	s, ok := ctx.sources[t.SourceID]
	if !ok {
		return
	}
	s.underflow = true
	log.Debug("underflow", "session", ctx.SessionID, "source", t.SourceID)
	sink.OnNetworkStateChange(ctx.SessionID, wire.NetworkStateBuffering)
}
