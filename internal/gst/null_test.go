package gst

import (
	"errors"
	"testing"
)

func TestNullPipelineSetStateRecordsAndBroadcasts(t *testing.T) {
	p := NewNullPipeline()

	if err := p.SetState(StatePaused); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if p.State() != StatePaused {
		t.Fatalf("expected StatePaused, got %v", p.State())
	}

	msg, ok := p.Bus().Pop()
	if !ok {
		t.Fatal("expected a bus message")
	}
	if msg.Type != MsgStateChanged || msg.NewState != StatePaused {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestNullPipelineFailSetStateClearsAfterOneUse(t *testing.T) {
	p := NewNullPipeline()
	wantErr := errors.New("boom")
	p.FailSetState = wantErr

	if err := p.SetState(StatePlaying); err != wantErr {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := p.SetState(StatePlaying); err != nil {
		t.Fatalf("expected no error on second call, got %v", err)
	}
}

func TestNullPipelinePushBufferTracksPerAppsrc(t *testing.T) {
	p := NewNullPipeline()

	if err := p.PushBuffer("audioAppSrc", []byte("a1"), 0, 1); err != nil {
		t.Fatalf("PushBuffer: %v", err)
	}
	if err := p.PushBuffer("audioAppSrc", []byte("a2"), 1, 1); err != nil {
		t.Fatalf("PushBuffer: %v", err)
	}

	got := p.PushedBuffers("audioAppSrc")
	if len(got) != 2 {
		t.Fatalf("expected 2 buffers, got %d", len(got))
	}
	if string(got[0]) != "a1" || string(got[1]) != "a2" {
		t.Fatalf("unexpected buffer contents: %v", got)
	}
}

func TestNullPipelineFindElement(t *testing.T) {
	p := NewNullPipeline()
	p.AddElement(NewNullElement("video-sink", map[string]any{"frame-step-on-preroll": true}))

	el, ok := p.FindElement("video-sink")
	if !ok {
		t.Fatal("expected to find video-sink")
	}
	if !el.HasProperty("frame-step-on-preroll") {
		t.Fatal("expected frame-step-on-preroll property")
	}

	if _, ok := p.FindElement("missing"); ok {
		t.Fatal("expected missing element to not be found")
	}
}

func TestNullElementEmitTracksSignals(t *testing.T) {
	e := NewNullElement("video-sink", nil)
	if err := e.Emit("step"); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got := e.Signals(); len(got) != 1 || got[0] != "step" {
		t.Fatalf("unexpected signals: %v", got)
	}
}

func TestNullBusCloseUnblocksPop(t *testing.T) {
	p := NewNullPipeline()
	bus := p.Bus()
	bus.Close()

	if _, ok := bus.Pop(); ok {
		t.Fatal("expected Pop to report ok=false after Close")
	}
}

func TestNullPipelineInjectMessage(t *testing.T) {
	p := NewNullPipeline()
	p.InjectMessage(Message{Type: MsgEOS, SourceName: "videoAppSrc"})

	msg, ok := p.Bus().Pop()
	if !ok {
		t.Fatal("expected injected message")
	}
	if msg.Type != MsgEOS || msg.SourceName != "videoAppSrc" {
		t.Fatalf("unexpected message %+v", msg)
	}
}
