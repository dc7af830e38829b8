package tasks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/wire"
)

// AttachSource builds the source's caps and registers it in Context, per
// spec.md §4.1's "Build GstCaps from MediaSource, register source in
// context; idempotent per sourceId." SourceID is assigned by the caller
// (the session's monotonically non-decreasing counter) before the task is
// constructed — registration, not allocation, is the WorkerThread's job.
type AttachSource struct {
	Source mediasource.Source
	Reply  chan<- error
}

func (t *AttachSource) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if _, exists := ctx.sources[t.Source.SourceID]; exists {
		// idempotent per sourceId: re-attaching the same id is a no-op success.
		t.reply(nil)
		return
	}

	caps := buildCaps(t.Source)
	if ctx.Pipeline != nil {
		if err := ctx.Pipeline.SetCaps(appsrcName(t.Source.Type), caps); err != nil {
			log.Warn("attachSource: SetCaps failed", "session", ctx.SessionID, "source", t.Source.SourceID, "error", err)
			t.reply(err)
			return
		}
	}

	ctx.sources[t.Source.SourceID] = &sourceState{source: t.Source, caps: caps}
	t.reply(nil)
}

func (t *AttachSource) reply(err error) {
	if t.Reply != nil {
		t.Reply <- err
	}
}

// buildCaps derives a caps string from a MediaSource, preferring the raw
// caps string when present per spec.md §9 Open Question (a). For audio
// sources carrying an AudioConfig, channel and sample-rate are appended as
// GstCaps fields so the pipeline's appsrc negotiates against them instead
// of relying on in-band codec data alone.
func buildCaps(s mediasource.Source) string {
	base := s.EffectiveMimeType()
	if base == "" {
		base = "unknown/unknown"
	}
	if s.Audio == nil {
		return base
	}
	caps := base
	if s.Audio.Channels > 0 {
		caps += fmt.Sprintf(", channels=(int)%d", s.Audio.Channels)
	}
	if s.Audio.SampleRate > 0 {
		caps += fmt.Sprintf(", rate=(int)%d", s.Audio.SampleRate)
	}
	return caps
}

// RemoveSource detaches and clears caps for a sourceId, per spec.md §4.1.
type RemoveSource struct {
	SourceID int32
	Reply    chan<- error
}

func (t *RemoveSource) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if _, ok := ctx.sources[t.SourceID]; !ok {
		t.reply(fmt.Errorf("player: source %d not attached", t.SourceID))
		return
	}
	delete(ctx.sources, t.SourceID)
	t.reply(nil)
}

func (t *RemoveSource) reply(err error) {
	if t.Reply != nil {
		t.Reply <- err
	}
}

// SetupSource stores the rialtosrc element reference and schedules a
// finish-setup deadline, per spec.md §4.1. finishSourceSetupTimer's expiry
// is modeled as a FinishSourceSetup task posted by the caller after
// gst.FinishSetupDeadline elapses (see player.GstPlayer.SetupSource, which
// arms that timer); this task only records when that deadline is.
type SetupSource struct {
	ElementName string
	Now         time.Time
}

func (t *SetupSource) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	ctx.rialtoSrcElement = t.ElementName
	ctx.finishSetupDue = true
	deadline := gst.FinishSetupDeadline
	ctx.finishSetupDeadline = t.Now.Add(deadline)
}

// SetupElement configures a discovered element (e.g. westerossink
// rectangle, decryptor binding), per spec.md §4.1.
type SetupElement struct {
	ElementName string
	Properties  map[string]any
}

func (t *SetupElement) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if ctx.Pipeline == nil {
		return
	}
	el, ok := ctx.Pipeline.FindElement(t.ElementName)
	if !ok {
		log.Warn("setupElement: element not found", "session", ctx.SessionID, "element", t.ElementName)
		return
	}
	for name, value := range t.Properties {
		if !el.HasProperty(name) {
			continue
		}
		if err := el.SetProperty(name, value); err != nil {
			log.Warn("setupElement: SetProperty failed", "session", ctx.SessionID, "element", t.ElementName, "property", name, "error", err)
		}
	}
}

// FinishSourceSetup commits the initial pipeline state once sources are
// ready, per spec.md §4.1. "Ready" here means every attached source has
// had AttachSource applied; a session with zero sources is considered
// ready once the finish-setup deadline fires regardless.
type FinishSourceSetup struct{}

func (t *FinishSourceSetup) Execute(ctx *Context, sink EventSink, log *slog.Logger) {
	if !ctx.finishSetupDue {
		return
	}
	ctx.finishSetupDue = false

	for _, s := range ctx.sources {
		s.setupComplete = true
	}

	if ctx.Pipeline == nil {
		return
	}
	if err := ctx.Pipeline.SetState(gst.StatePaused); err != nil {
		log.Warn("finishSourceSetup: SetState failed", "session", ctx.SessionID, "error", err)
		ctx.MarkFailure(err)
		sink.OnNetworkStateChange(ctx.SessionID, wire.NetworkStateFailure)
	}
}
