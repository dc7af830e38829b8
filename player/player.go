package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/player/tasks"
)

// GstPlayer is the per-session facade spec.md §4.1–§4.2 describe
// collectively: a PlayerContext, its owning WorkerThread, and the
// GstDispatcherThread translating bus messages into tasks for it.
type GstPlayer struct {
	log        *slog.Logger
	Context    *Context
	Worker     *WorkerThread
	dispatcher *DispatcherThread
	posTimer   *positionTimer
}

// NewGstPlayer constructs a GstPlayer for sessionID backed by pipeline,
// delivering client events to sink. Call Run to start its goroutines.
func NewGstPlayer(sessionID int32, pipeline gst.Pipeline, sink EventSink, log *slog.Logger) *GstPlayer {
	playerCtx := NewContext(sessionID, pipeline)
	worker := NewWorkerThread(playerCtx, sink, log)
	dispatcher := NewDispatcherThread(pipeline.Bus(), worker, log)
	return &GstPlayer{
		log:        log.With("component", "gstplayer", "session", sessionID),
		Context:    playerCtx,
		Worker:     worker,
		dispatcher: dispatcher,
		posTimer:   newPositionTimer(pipeline, worker),
	}
}

// Run starts the DispatcherThread goroutine and runs the WorkerThread on
// the calling goroutine until ctx is cancelled, then closes the bus and
// waits for the dispatcher to exit.
func (p *GstPlayer) Run(ctx context.Context) {
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		p.dispatcher.Run()
	}()

	p.Worker.Run(ctx)
	p.posTimer.Stop()

	p.Context.Pipeline.Bus().Close()
	<-dispatcherDone
}

// Post enqueues a task for this session's WorkerThread.
func (p *GstPlayer) Post(t Task) { p.Worker.Post(t) }

// the following helpers wrap the task table's Reply-channel convention
// with a synchronous call, for use by session RPC handlers.

func (p *GstPlayer) AttachSource(source mediasource.Source) error {
	reply := make(chan error, 1)
	p.Post(&tasks.AttachSource{Source: source, Reply: reply})
	return <-reply
}

func (p *GstPlayer) RemoveSource(sourceID int32) error {
	reply := make(chan error, 1)
	p.Post(&tasks.RemoveSource{SourceID: sourceID, Reply: reply})
	return <-reply
}

func (p *GstPlayer) Play() error {
	reply := make(chan error, 1)
	p.Post(&tasks.Play{Reply: reply})
	err := <-reply
	if err == nil {
		p.posTimer.Start()
	}
	return err
}

func (p *GstPlayer) Pause() error {
	p.posTimer.Stop()
	reply := make(chan error, 1)
	p.Post(&tasks.Pause{Reply: reply})
	return <-reply
}

func (p *GstPlayer) Stop() error {
	p.posTimer.Stop()
	reply := make(chan error, 1)
	p.Post(&tasks.Stop{Reply: reply})
	return <-reply
}

func (p *GstPlayer) SetPosition(positionNs int64) error {
	reply := make(chan error, 1)
	p.Post(&tasks.SetPosition{PositionNs: positionNs, Reply: reply})
	return <-reply
}

func (p *GstPlayer) SetPlaybackRate(rate float64) error {
	reply := make(chan error, 1)
	p.Post(&tasks.SetPlaybackRate{Rate: rate, Reply: reply})
	return <-reply
}

func (p *GstPlayer) RenderFrame() error {
	reply := make(chan error, 1)
	p.Post(&tasks.RenderFrame{Reply: reply})
	return <-reply
}

func (p *GstPlayer) AttachSamples(sourceID int32, buffers []tasks.SampleBuffer, newCaps string) error {
	reply := make(chan error, 1)
	p.Post(&tasks.AttachSamples{SourceID: sourceID, Buffers: buffers, NewCaps: newCaps, Reply: reply})
	return <-reply
}

func (p *GstPlayer) NeedData(sourceID int32, frameCount uint32, requestID int32) {
	p.Post(&tasks.NeedData{SourceID: sourceID, FrameCount: frameCount, RequestID: requestID})
}

func (p *GstPlayer) EnoughData(sourceID int32) {
	p.Post(&tasks.EnoughData{SourceID: sourceID})
}

func (p *GstPlayer) Underflow(sourceID int32) {
	p.Post(&tasks.Underflow{SourceID: sourceID})
}

func (p *GstPlayer) FinishSourceSetup() {
	p.Post(&tasks.FinishSourceSetup{})
}

// SetupSource posts the SetupSource task and arms the finish-setup
// deadline timer, per spec.md §4.1: "schedule a finish-setup deadline
// (default 200 ms)". On expiry it posts FinishSourceSetup, which finalizes
// whatever sources are known at that point.
func (p *GstPlayer) SetupSource(elementName string) {
	p.Post(&tasks.SetupSource{ElementName: elementName, Now: time.Now()})
	time.AfterFunc(gst.FinishSetupDeadline, p.FinishSourceSetup)
}
