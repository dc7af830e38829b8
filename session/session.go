// Package session implements the server-side per-session object named
// MediaPipelineServerInternal in spec.md §2: it owns a player.GstPlayer,
// assigns source/request ids, tracks outstanding NeedDataRequests so an
// inbound haveData RPC can be resolved back to a source, and forwards
// player events to the client over a ClientSink.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/player"
	"github.com/rialto-go/rialto/player/tasks"
	"github.com/rialto-go/rialto/shm"
	"github.com/rialto-go/rialto/wire"
)

// VideoRequirements carries the maxWidth/maxHeight hint from createSession,
// per spec.md §6.
type VideoRequirements struct {
	MaxWidth  int32
	MaxHeight int32
}

// ClientSink is the RPC-facing surface a Session forwards player events
// onto. Implementations live in the transport layer; this package only
// depends on the interface, matching spec.md §9's "weak back-reference"
// cyclic-ownership fix.
type ClientSink interface {
	SendPlaybackStateChange(sessionID int32, state wire.PlaybackState)
	SendNetworkStateChange(sessionID int32, state wire.NetworkState)
	SendPositionChange(sessionID int32, positionNs int64)
	SendNeedMediaData(sessionID, sourceID int32, frameCount uint32, requestID int32, shmInfo *wire.ShmInfo)
	SendQos(sessionID, sourceID int32, processed, dropped uint64)
}

// NullClientSink discards every callback, used once a client has
// disconnected but the session has not yet been torn down.
type NullClientSink struct{}

func (NullClientSink) SendPlaybackStateChange(int32, wire.PlaybackState)           {}
func (NullClientSink) SendNetworkStateChange(int32, wire.NetworkState)             {}
func (NullClientSink) SendPositionChange(int32, int64)                             {}
func (NullClientSink) SendNeedMediaData(int32, int32, uint32, int32, *wire.ShmInfo) {}
func (NullClientSink) SendQos(int32, int32, uint64, uint64)                        {}

// Session is the per-session server object: the id, video requirements,
// the owning GstPlayer, and the id counters/request-tracking state that
// sit above the WorkerThread-local PlayerContext.
type Session struct {
	ID                int32
	VideoRequirements VideoRequirements

	log    *slog.Logger
	player *player.GstPlayer
	shmBuf *shm.Buffer

	sourceIDCounter  atomic.Int32
	requestIDCounter atomic.Int32

	mu sync.Mutex
	// requestSource maps an outstanding NeedMediaDataEvent's requestId to
	// the sourceId it concerns, so a later haveData RPC (which carries
	// only session_id/request_id) can be resolved to a source. Cleared in
	// bulk by SetPosition, per spec.md §5's "SetPosition implicitly
	// cancels all in-flight NeedDataRequests for that session."
	requestSource map[int32]int32

	loadMu   sync.Mutex
	loadType wire.LoadType
	mimeType string
	url      string

	sinkMu sync.Mutex
	sink   ClientSink // weak back-reference; nil once the client detaches
}

// New constructs a Session bound to pipeline and shmBuf, with a
// NullClientSink until SetClientSink is called. If shmBuf is non-nil, a
// partition is mapped for id immediately; callers must call Close to
// release it.
func New(id int32, req VideoRequirements, pipeline gst.Pipeline, shmBuf *shm.Buffer, log *slog.Logger) (*Session, error) {
	log = log.With("component", "session", "session", id)
	if shmBuf != nil {
		if err := shmBuf.MapPartition(id); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	s := &Session{
		ID:                id,
		VideoRequirements: req,
		log:               log,
		shmBuf:            shmBuf,
		requestSource:     make(map[int32]int32),
		sink:              NullClientSink{},
	}
	s.player = player.NewGstPlayer(id, pipeline, s, log)
	return s, nil
}

// Close releases the session's shared-memory partition, if any.
func (s *Session) Close() error {
	if s.shmBuf == nil {
		return nil
	}
	return s.shmBuf.UnmapPartition(s.ID)
}

// Player returns the session's GstPlayer for direct task posting by
// callers that need operations session.Session doesn't wrap (tests,
// debugapi).
func (s *Session) Player() *player.GstPlayer { return s.player }

// SetClientSink rebinds the session's client-facing sink, e.g. on
// reconnect. Passing nil reverts to discarding events.
func (s *Session) SetClientSink(sink ClientSink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	if sink == nil {
		sink = NullClientSink{}
	}
	s.sink = sink
}

func (s *Session) clientSink() ClientSink {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	return s.sink
}

// NextSourceID allocates a monotonically non-decreasing source id, per
// spec.md §3.
func (s *Session) NextSourceID() int32 { return s.sourceIDCounter.Add(1) - 1 }

func (s *Session) nextRequestID() int32 { return s.requestIDCounter.Add(1) - 1 }

// AttachSource assigns a source id and attaches it to the player.
func (s *Session) AttachSource(source mediasource.Source) (int32, error) {
	source.SourceID = s.NextSourceID()
	if err := s.player.AttachSource(source); err != nil {
		return 0, err
	}
	return source.SourceID, nil
}

// SetLoad records the MediaType/URL the client requested to load, per
// spec.md §3's MediaType and §6's load RPC. The element graph this would
// otherwise configure is out of scope; recording it still gives the call an
// observable effect and a value for debugapi to surface.
func (s *Session) SetLoad(loadType wire.LoadType, mimeType, url string) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.loadType = loadType
	s.mimeType = mimeType
	s.url = url
}

// LoadInfo returns the last load RPC's parameters, for debugapi.
func (s *Session) LoadInfo() (loadType wire.LoadType, mimeType, url string) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loadType, s.mimeType, s.url
}

func (s *Session) RemoveSource(sourceID int32) error { return s.player.RemoveSource(sourceID) }
func (s *Session) Play() error                       { return s.player.Play() }
func (s *Session) Pause() error                      { return s.player.Pause() }
func (s *Session) Stop() error                       { return s.player.Stop() }
func (s *Session) RenderFrame() error                { return s.player.RenderFrame() }

// State reports the session's pipeline-level state, for debugapi.
func (s *Session) State() tasks.PipelineState { return s.player.Context.State() }

// SourceIDs returns the currently attached source ids, for debugapi.
func (s *Session) SourceIDs() []int32 { return s.player.Context.SourceIDs() }

// PendingRequestIDs returns the request ids currently awaiting a haveData
// reply, for debugapi's needdata inspection endpoint.
func (s *Session) PendingRequestIDs() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int32, 0, len(s.requestSource))
	for id := range s.requestSource {
		ids = append(ids, id)
	}
	return ids
}

// SetPosition seeks the pipeline and cancels every in-flight
// NeedDataRequest for this session, per spec.md §5.
func (s *Session) SetPosition(positionNs int64) error {
	err := s.player.SetPosition(positionNs)
	s.mu.Lock()
	s.requestSource = make(map[int32]int32)
	s.mu.Unlock()
	return err
}

func (s *Session) GetPosition() int64 { return s.player.Context.PositionNs() }

func (s *Session) SetPlaybackRate(rate float64) error { return s.player.SetPlaybackRate(rate) }

// SetVideoWindow configures the video sink's output rectangle, per
// spec.md §6's setVideoWindow RPC.
func (s *Session) SetVideoWindow(x, y, width, height int32) {
	s.player.Post(&tasks.SetupElement{
		ElementName: "video-sink",
		Properties: map[string]any{
			"rectangle": fmt.Sprintf("%d,%d,%d,%d", x, y, width, height),
		},
	})
}

// HaveData resolves requestID to the source it was issued for and, when
// status is Ok, reads numFrames worth of samples out of the shared-memory
// partition and pushes them into the pipeline via AttachSamples. Per
// spec.md §4.1/§4.4, an unresolved or already-cancelled requestID is
// discarded with a log, never propagated as an error.
func (s *Session) HaveData(status wire.MediaSourceStatus, numFrames uint32, requestID int32) bool {
	s.mu.Lock()
	sourceID, ok := s.requestSource[requestID]
	if ok {
		delete(s.requestSource, requestID)
	}
	s.mu.Unlock()

	if !ok {
		s.log.Warn("haveData: unknown or cancelled requestId", "requestId", requestID)
		return false
	}
	if status != wire.MediaSourceStatusOK {
		s.player.EnoughData(sourceID)
		return true
	}

	buffers, err := s.readPendingBuffers(sourceID, numFrames)
	if err != nil {
		s.log.Warn("haveData: failed to read shared memory", "requestId", requestID, "source", sourceID, "error", err)
		return false
	}
	if err := s.player.AttachSamples(sourceID, buffers, ""); err != nil {
		s.log.Warn("haveData: AttachSamples failed", "requestId", requestID, "source", sourceID, "error", err)
		return false
	}
	return true
}

// readPendingBuffers reads the entire claimed sub-region for sourceID's
// type as a single sample buffer. A real implementation would parse
// per-frame metadata written by the client into the metadata sub-region;
// this server only needs the bytes to exist for the decryptor/appsrc path.
func (s *Session) readPendingBuffers(sourceID int32, numFrames uint32) ([]tasks.SampleBuffer, error) {
	if numFrames == 0 || s.shmBuf == nil {
		return nil, nil
	}
	src, ok := s.player.Context.Source(sourceID)
	if !ok {
		return nil, fmt.Errorf("session: source %d not attached", sourceID)
	}
	shmSrc := shmSourceType(src.Type)
	length, err := s.shmBuf.GetMaxDataLen(s.ID, shmSrc)
	if err != nil {
		return nil, err
	}
	data, err := s.shmBuf.ReadAt(s.ID, shmSrc, 0, length)
	if err != nil {
		return nil, err
	}
	return []tasks.SampleBuffer{{Data: data}}, nil
}

func shmSourceType(t mediasource.Type) shm.SourceType {
	if t == mediasource.TypeVideo {
		return shm.SourceVideo
	}
	return shm.SourceAudio
}

// --- player.EventSink implementation, forwarding to the ClientSink ---

func (s *Session) OnPlaybackStateChange(sessionID int32, state wire.PlaybackState) {
	s.clientSink().SendPlaybackStateChange(sessionID, state)
}

func (s *Session) OnNetworkStateChange(sessionID int32, state wire.NetworkState) {
	s.clientSink().SendNetworkStateChange(sessionID, state)
}

func (s *Session) OnPositionChange(sessionID int32, positionNs int64) {
	s.clientSink().SendPositionChange(sessionID, positionNs)
}

func (s *Session) OnNeedMediaData(sessionID, sourceID int32, frameCount uint32, _ int32) {
	requestID := s.nextRequestID()
	s.mu.Lock()
	s.requestSource[requestID] = sourceID
	s.mu.Unlock()

	shmInfo := s.buildShmInfo(sourceID)
	s.clientSink().SendNeedMediaData(sessionID, sourceID, frameCount, requestID, shmInfo)
}

func (s *Session) OnQos(sessionID, sourceID int32, processed, dropped uint64) {
	s.clientSink().SendQos(sessionID, sourceID, processed, dropped)
}

// buildShmInfo resolves the NeedMediaDataEvent.shm_info payload named in
// spec.md §6, or nil if this session has no mapped partition (e.g. the
// shared-memory region is not in use for this transport).
func (s *Session) buildShmInfo(sourceID int32) *wire.ShmInfo {
	if s.shmBuf == nil {
		return nil
	}
	src, ok := s.player.Context.Source(sourceID)
	if !ok {
		return nil
	}
	shmSrc := shmSourceType(src.Type)
	offset, err := s.shmBuf.GetDataOffset(s.ID, shmSrc)
	if err != nil {
		return nil
	}
	maxLen, err := s.shmBuf.GetMaxDataLen(s.ID, shmSrc)
	if err != nil {
		return nil
	}
	return &wire.ShmInfo{
		MaxMetadataBytes: 0,
		MetadataOffset:   offset,
		MediaDataOffset:  offset,
		MaxMediaBytes:    maxLen,
	}
}
