// Package playback implements the top-level PlaybackService named in
// spec.md §2: it owns the maxPlaybacks session slots, serializes session
// creation/destruction on a single MainThread task queue, and is the
// gateway the session-management RPC handlers call into. Per-session
// operations bypass MainThread entirely and go straight to the session's
// own WorkerThread, per spec.md §5.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/session"
	"github.com/rialto-go/rialto/shm"
)

// mainThreadQueueDepth bounds the MainThread task channel. Unlike
// player.WorkerThread.Post, which drops a task when its queue is full, post
// runs the task inline on the caller's goroutine.
const mainThreadQueueDepth = 64

// PipelineFactory builds the GStreamer capability-seam pipeline for a new
// session. Production wiring supplies a real GStreamer bridge; tests and
// the Null backend use internal/gst.NewNullPipeline.
type PipelineFactory func(sessionID int32) gst.Pipeline

type sessionEntry struct {
	sess   *session.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// Service is the server-side PlaybackService: maxPlaybacks session slots,
// the shared-memory region they draw partitions from, and the MainThread
// queue that serializes CreateSession/DestroySession.
type Service struct {
	log          *slog.Logger
	maxPlaybacks int
	shmBuf       *shm.Buffer
	newPipeline  PipelineFactory

	tasks chan func()

	nextSessionID atomic.Int32

	sessions map[int32]*sessionEntry
}

// New constructs a Service. Call Run to start its MainThread goroutine.
func New(maxPlaybacks int, shmBuf *shm.Buffer, newPipeline PipelineFactory, log *slog.Logger) *Service {
	if newPipeline == nil {
		newPipeline = func(int32) gst.Pipeline { return gst.NewNullPipeline() }
	}
	return &Service{
		log:          log.With("component", "playback.Service"),
		maxPlaybacks: maxPlaybacks,
		shmBuf:       shmBuf,
		newPipeline:  newPipeline,
		tasks:        make(chan func(), mainThreadQueueDepth),
		sessions:     make(map[int32]*sessionEntry),
	}
}

// Run drains the MainThread task queue until ctx is cancelled, then stops
// every remaining session.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

func (s *Service) post(fn func()) {
	select {
	case s.tasks <- fn:
	default:
		s.log.Warn("MainThread queue full, running task inline")
		fn()
	}
}

// CreateSession allocates a session slot, constructs its pipeline and
// Session, and starts its GstPlayer goroutines. Fails if maxPlaybacks
// slots are already in use or the shared-memory partition table is full.
func (s *Service) CreateSession(req session.VideoRequirements) (*session.Session, error) {
	type result struct {
		sess *session.Session
		err  error
	}
	reply := make(chan result, 1)

	s.post(func() {
		if len(s.sessions) >= s.maxPlaybacks {
			reply <- result{err: fmt.Errorf("playback: maxPlaybacks (%d) reached", s.maxPlaybacks)}
			return
		}
		id := s.nextSessionID.Add(1) - 1
		pipeline := s.newPipeline(id)
		sess, err := session.New(id, req, pipeline, s.shmBuf, s.log)
		if err != nil {
			reply <- result{err: fmt.Errorf("playback: %w", err)}
			return
		}

		runCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			sess.Player().Run(runCtx)
		}()

		s.sessions[id] = &sessionEntry{sess: sess, cancel: cancel, done: done}
		s.log.Info("session created", "session", id, "sessions_in_use", len(s.sessions))
		reply <- result{sess: sess}
	})

	res := <-reply
	return res.sess, res.err
}

// DestroySession stops and removes sessionID's session. Returns false if no
// such session exists, satisfying spec.md §8's "a second destroySession
// returns false" property.
func (s *Service) DestroySession(sessionID int32) bool {
	reply := make(chan bool, 1)
	s.post(func() {
		entry, ok := s.sessions[sessionID]
		if !ok {
			reply <- false
			return
		}
		delete(s.sessions, sessionID)
		reply <- true

		entry.cancel()
		<-entry.done
		if err := entry.sess.Close(); err != nil {
			s.log.Warn("error releasing session resources", "session", sessionID, "error", err)
		}
		s.log.Info("session destroyed", "session", sessionID, "sessions_in_use", len(s.sessions))
	})
	return <-reply
}

// Session returns the live Session for sessionID, for dispatching
// per-session RPCs directly to its WorkerThread without going through
// MainThread.
func (s *Service) Session(sessionID int32) (*session.Session, bool) {
	reply := make(chan *session.Session, 1)
	s.post(func() {
		entry, ok := s.sessions[sessionID]
		if !ok {
			reply <- nil
			return
		}
		reply <- entry.sess
	})
	sess := <-reply
	return sess, sess != nil
}

// Sessions returns a snapshot of every live session id, for debugapi.
func (s *Service) Sessions() []int32 {
	reply := make(chan []int32, 1)
	s.post(func() {
		ids := make([]int32, 0, len(s.sessions))
		for id := range s.sessions {
			ids = append(ids, id)
		}
		reply <- ids
	})
	return <-reply
}

func (s *Service) stopAll() {
	for id, entry := range s.sessions {
		entry.cancel()
		<-entry.done
		if err := entry.sess.Close(); err != nil {
			s.log.Warn("error releasing session resources during shutdown", "session", id, "error", err)
		}
	}
	s.sessions = make(map[int32]*sessionEntry)
}
