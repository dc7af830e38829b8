// Package sessionserver implements the SessionManagementServer named in
// spec.md §2: it accepts connections on a transport.Listener, answers the
// per-connection getSharedMemory handshake, then dispatches every inbound
// wire.Frame request to playback.Service/session.Session/cdm.Service and
// installs a channelSink on the created session so its events flow back
// down the same connection.
package sessionserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rialto-go/rialto/cdm"
	"github.com/rialto-go/rialto/mediasource"
	"github.com/rialto-go/rialto/playback"
	"github.com/rialto-go/rialto/session"
	"github.com/rialto-go/rialto/shm"
	"github.com/rialto-go/rialto/transport"
	"github.com/rialto-go/rialto/wire"
)

// Server dispatches connections accepted by a transport.Listener to the
// playback/cdm services, one connection's worth of state per Session.
type Server struct {
	log      *slog.Logger
	playback *playback.Service
	cdm      *cdm.Service
	shmBuf   *shm.Buffer
}

// New constructs a Server. shmBuf may be nil, matching playback.Service's
// own no-shared-memory mode (tests, the Null pipeline).
func New(pb *playback.Service, cdmSvc *cdm.Service, shmBuf *shm.Buffer, log *slog.Logger) *Server {
	return &Server{
		log:      log.With("component", "sessionserver"),
		playback: pb,
		cdm:      cdmSvc,
		shmBuf:   shmBuf,
	}
}

// HandleConnection serves one accepted connection on the calling goroutine
// until the peer disconnects or ctx is cancelled. cmd/rialtosrv starts it
// on a goroutine of its own from the transport.Listener onAccept callback.
func (s *Server) HandleConnection(ctx context.Context, ch transport.Channel) {
	connID := uuid.New()
	log := s.log.With("connection", connID)
	conn := &connection{
		server:          s,
		ch:              ch,
		log:             log,
		id:              connID,
		mediaKeys:       make(map[int32]*cdm.MediaKeys),
		keySessionOwner: make(map[int32]*cdm.MediaKeys),
	}
	conn.run(ctx)
}

// connection tracks the one (at most) session a client has created over
// this channel, so per-connection teardown can destroy the session if the
// client never did.
type connection struct {
	server *Server
	ch     transport.Channel
	log    *slog.Logger
	id     uuid.UUID

	sessionID  int32
	hasSession bool

	// mediaKeysMu guards the connection-scoped MediaKeysModule state:
	// nextHandle hands out createMediaKeys handles, mediaKeys resolves a
	// handle back to its MediaKeys, and keySessionOwner resolves a
	// keySessionId (globally unique, per cdm.keySessionIDCounter) back to
	// the MediaKeys that created it, since createKeySession/updateSession/
	// etc only carry the session id on the wire.
	mediaKeysMu     sync.Mutex
	nextHandle      int32
	mediaKeys       map[int32]*cdm.MediaKeys
	keySessionOwner map[int32]*cdm.MediaKeys
}

func (c *connection) run(ctx context.Context) {
	defer c.ch.Close()

	go func() {
		<-ctx.Done()
		c.ch.Close()
	}()

	if err := c.serveSharedMemoryHandshake(); err != nil {
		c.log.Warn("getSharedMemory handshake failed", "error", err)
		return
	}

	for {
		f, err := c.ch.ReadFrame()
		if err != nil {
			break
		}
		if !f.IsRequest() {
			c.log.Warn("dropping non-request frame from client", "kind", f.Kind)
			continue
		}
		c.dispatch(f)
	}

	if c.hasSession {
		c.server.playback.DestroySession(c.sessionID)
	}
	c.log.Debug("connection closed")
}

// serveSharedMemoryHandshake answers the client's first request, which
// PipelineRpcProxy.Connect always performs synchronously before starting
// its EventPump: a GetSharedMemoryReply followed by the region's fd sent
// as a companion SCM_RIGHTS datagram.
func (c *connection) serveSharedMemoryHandshake() error {
	f, err := c.ch.ReadFrame()
	if err != nil {
		return fmt.Errorf("read handshake request: %w", err)
	}
	if f.Method != wire.MethodGetSharedMemory {
		return fmt.Errorf("expected getSharedMemory, got method %v", f.Method)
	}
	if c.server.shmBuf == nil {
		reply := wire.GetSharedMemoryReply{OK: false}
		return c.ch.WriteReply(f.RequestID, f.Method, reply.Encode())
	}
	reply := wire.GetSharedMemoryReply{Size: c.server.shmBuf.Size(), OK: true}
	if err := c.ch.WriteReply(f.RequestID, f.Method, reply.Encode()); err != nil {
		return fmt.Errorf("write handshake reply: %w", err)
	}
	if err := c.ch.SendFd(c.server.shmBuf.Fd()); err != nil {
		return fmt.Errorf("send shared-memory fd: %w", err)
	}
	return nil
}

func (c *connection) dispatch(f wire.Frame) {
	reply, err := c.handle(f)
	if err != nil {
		c.log.Warn("request handler failed", "method", f.Method, "error", err)
		return
	}
	if err := c.ch.WriteReply(f.RequestID, f.Method, reply); err != nil {
		c.log.Warn("failed to write reply", "method", f.Method, "error", err)
	}
}

func (c *connection) handle(f wire.Frame) ([]byte, error) {
	switch f.Method {
	case wire.MethodCreateSession:
		return c.handleCreateSession(f.Payload)
	case wire.MethodDestroySession:
		return c.handleDestroySession(f.Payload)
	case wire.MethodLoad:
		return c.handleLoad(f.Payload)
	case wire.MethodAttachSource:
		return c.handleAttachSource(f.Payload)
	case wire.MethodRemoveSource:
		return c.handleRemoveSource(f.Payload)
	case wire.MethodAllSourcesAttached:
		return c.sessionAction(f.Payload, func(*session.Session) error { return nil })
	case wire.MethodPlay:
		return c.sessionAction(f.Payload, func(sess *session.Session) error { return sess.Play() })
	case wire.MethodPause:
		return c.sessionAction(f.Payload, func(sess *session.Session) error { return sess.Pause() })
	case wire.MethodStop:
		return c.sessionAction(f.Payload, func(sess *session.Session) error { return sess.Stop() })
	case wire.MethodRenderFrame:
		return c.sessionAction(f.Payload, func(sess *session.Session) error { return sess.RenderFrame() })
	case wire.MethodSetPosition:
		return c.handleSetPosition(f.Payload)
	case wire.MethodGetPosition:
		return c.handleGetPosition(f.Payload)
	case wire.MethodSetPlaybackRate:
		return c.handleSetPlaybackRate(f.Payload)
	case wire.MethodSetVideoWindow:
		return c.handleSetVideoWindow(f.Payload)
	case wire.MethodHaveData:
		return c.handleHaveData(f.Payload)
	case wire.MethodCreateMediaKeys:
		return c.handleCreateMediaKeys(f.Payload)
	case wire.MethodCreateKeySession:
		return c.handleCreateKeySession(f.Payload)
	case wire.MethodGenerateRequest:
		return c.handleGenerateRequest(f.Payload)
	case wire.MethodUpdateSession:
		return c.handleUpdateSession(f.Payload)
	case wire.MethodCloseKeySession:
		return c.handleCloseKeySession(f.Payload)
	case wire.MethodGetCdmKeySessionID:
		return c.handleGetCdmKeySessionID(f.Payload)
	default:
		return nil, fmt.Errorf("unsupported method %v", f.Method)
	}
}

func (c *connection) handleCreateSession(payload []byte) ([]byte, error) {
	req, err := wire.DecodeCreateSessionRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, err := c.server.playback.CreateSession(session.VideoRequirements{
		MaxWidth:  int32(req.MaxWidth),
		MaxHeight: int32(req.MaxHeight),
	})
	if err != nil {
		c.log.Warn("createSession failed", "error", err)
		return wire.CreateSessionReply{OK: false}.Encode(), nil
	}
	sess.SetClientSink(channelSink{ch: c.ch, log: c.log})
	c.sessionID, c.hasSession = sess.ID, true
	return wire.CreateSessionReply{SessionID: sess.ID, OK: true}.Encode(), nil
}

func (c *connection) handleDestroySession(payload []byte) ([]byte, error) {
	req, err := wire.DecodeSessionIDRequest(payload)
	if err != nil {
		return nil, err
	}
	ok := c.server.playback.DestroySession(req.SessionID)
	if req.SessionID == c.sessionID {
		c.hasSession = false
	}
	return wire.BoolReply{OK: ok}.Encode(), nil
}

// sessionAction resolves the request's session id and runs fn against it,
// replying false rather than erroring when the session is unknown — a
// client racing destroySession against another call should see a clean
// failure, not a dropped connection.
func (c *connection) sessionAction(payload []byte, fn func(*session.Session) error) ([]byte, error) {
	req, err := wire.DecodeSessionIDRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	if err := fn(sess); err != nil {
		c.log.Warn("session action failed", "session", req.SessionID, "error", err)
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleLoad(payload []byte) ([]byte, error) {
	req, err := wire.DecodeLoadRequest(payload)
	if err != nil {
		return nil, err
	}
	// The element graph load would otherwise configure is out of scope;
	// recording MediaType/URL on the session still gives the call an
	// observable effect, per spec.md §3/§6.
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	sess.SetLoad(req.Type, req.MimeType, req.URL)
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleAttachSource(payload []byte) ([]byte, error) {
	req, err := wire.DecodeAttachSourceRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.AttachSourceReply{OK: false}.Encode(), nil
	}
	sourceID, err := sess.AttachSource(mediasource.Source{
		Type:             req.MediaType,
		MimeType:         req.MimeType,
		Caps:             req.Caps,
		Audio:            toMediaSourceAudioConfig(req.Audio),
		CodecData:        req.CodecData,
		SegmentAlignment: req.SegmentAlignment,
		StreamFormat:     req.StreamFormat,
	})
	if err != nil {
		c.log.Warn("attachSource failed", "session", req.SessionID, "error", err)
		return wire.AttachSourceReply{OK: false}.Encode(), nil
	}
	return wire.AttachSourceReply{SourceID: sourceID, OK: true}.Encode(), nil
}

// toMediaSourceAudioConfig converts the wire AudioConfig into its
// mediasource counterpart, so channel/sample-rate reach buildCaps instead
// of being dropped at the transport boundary.
func toMediaSourceAudioConfig(a *wire.AudioConfig) *mediasource.AudioConfig {
	if a == nil {
		return nil
	}
	return &mediasource.AudioConfig{
		Channels:            a.Channels,
		SampleRate:          a.SampleRate,
		CodecSpecificConfig: a.CodecSpecificConfig,
	}
}

func (c *connection) handleRemoveSource(payload []byte) ([]byte, error) {
	req, err := wire.DecodeRemoveSourceRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	if err := sess.RemoveSource(req.SourceID); err != nil {
		c.log.Warn("removeSource failed", "session", req.SessionID, "source", req.SourceID, "error", err)
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleSetPosition(payload []byte) ([]byte, error) {
	req, err := wire.DecodeSetPositionRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	if err := sess.SetPosition(req.PositionNs); err != nil {
		c.log.Warn("setPosition failed", "session", req.SessionID, "error", err)
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleGetPosition(payload []byte) ([]byte, error) {
	req, err := wire.DecodeSessionIDRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.GetPositionReply{OK: false}.Encode(), nil
	}
	return wire.GetPositionReply{PositionNs: sess.GetPosition(), OK: true}.Encode(), nil
}

func (c *connection) handleSetPlaybackRate(payload []byte) ([]byte, error) {
	req, err := wire.DecodeSetPlaybackRateRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	if err := sess.SetPlaybackRate(req.Rate); err != nil {
		c.log.Warn("setPlaybackRate failed", "session", req.SessionID, "error", err)
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleSetVideoWindow(payload []byte) ([]byte, error) {
	req, err := wire.DecodeSetVideoWindowRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	sess.SetVideoWindow(req.X, req.Y, req.Width, req.Height)
	return wire.BoolReply{OK: true}.Encode(), nil
}

func (c *connection) handleHaveData(payload []byte) ([]byte, error) {
	req, err := wire.DecodeHaveDataRequest(payload)
	if err != nil {
		return nil, err
	}
	sess, ok := c.server.playback.Session(req.SessionID)
	if !ok {
		return wire.BoolReply{OK: false}.Encode(), nil
	}
	ok = sess.HaveData(req.Status, req.NumFrames, int32(req.RequestID))
	return wire.BoolReply{OK: ok}.Encode(), nil
}

// handleCreateMediaKeys opens (or reuses) a MediaKeys for the requested key
// system and hands the client back a connection-scoped handle, per
// spec.md §6's MediaKeysModule.createMediaKeys.
func (c *connection) handleCreateMediaKeys(payload []byte) ([]byte, error) {
	req, err := wire.DecodeCreateMediaKeysRequest(payload)
	if err != nil {
		return nil, err
	}
	mk, err := c.server.cdm.CreateMediaKeys(req.KeySystem)
	if err != nil {
		c.log.Warn("createMediaKeys failed", "keySystem", req.KeySystem, "error", err)
		return wire.CreateMediaKeysReply{OK: false}.Encode(), nil
	}

	c.mediaKeysMu.Lock()
	handle := c.nextHandle
	c.nextHandle++
	c.mediaKeys[handle] = mk
	c.mediaKeysMu.Unlock()

	return wire.CreateMediaKeysReply{MediaKeysHandle: handle, OK: true}.Encode(), nil
}

func (c *connection) handleCreateKeySession(payload []byte) ([]byte, error) {
	req, err := wire.DecodeCreateKeySessionRequest(payload)
	if err != nil {
		return nil, err
	}
	c.mediaKeysMu.Lock()
	mk, ok := c.mediaKeys[req.MediaKeysHandle]
	c.mediaKeysMu.Unlock()
	if !ok {
		return wire.CreateKeySessionReply{Status: cdm.StatusBadSessionID}.Encode(), nil
	}

	ks, status := mk.CreateKeySession(cdm.SessionType(req.SessionType), req.IsLDL, cdmCallbackSink{log: c.log})
	if status != cdm.StatusOk {
		return wire.CreateKeySessionReply{Status: status}.Encode(), nil
	}

	c.mediaKeysMu.Lock()
	c.keySessionOwner[ks.KeySessionID()] = mk
	c.mediaKeysMu.Unlock()

	return wire.CreateKeySessionReply{KeySessionID: ks.KeySessionID(), Status: status}.Encode(), nil
}

// resolveKeySession looks up the MediaKeySession for a wire-level
// keySessionId via the connection's keySessionOwner map, since
// generateRequest/updateSession/closeKeySession/getCdmKeySessionID only
// carry the session id, not the MediaKeys handle that created it.
func (c *connection) resolveKeySession(keySessionID int32) (*cdm.MediaKeySession, cdm.ErrorStatus) {
	c.mediaKeysMu.Lock()
	mk, ok := c.keySessionOwner[keySessionID]
	c.mediaKeysMu.Unlock()
	if !ok {
		return nil, cdm.StatusKeySessionNotFound
	}
	return mk.Session(keySessionID)
}

func (c *connection) handleGenerateRequest(payload []byte) ([]byte, error) {
	req, err := wire.DecodeGenerateRequestRequest(payload)
	if err != nil {
		return nil, err
	}
	ks, status := c.resolveKeySession(req.KeySessionID)
	if status != cdm.StatusOk {
		return wire.MediaKeyStatusReply{Status: status}.Encode(), nil
	}
	status = ks.GenerateRequest(req.InitDataType, req.InitData)
	return wire.MediaKeyStatusReply{Status: status}.Encode(), nil
}

func (c *connection) handleUpdateSession(payload []byte) ([]byte, error) {
	req, err := wire.DecodeUpdateSessionRequest(payload)
	if err != nil {
		return nil, err
	}
	ks, status := c.resolveKeySession(req.KeySessionID)
	if status != cdm.StatusOk {
		return wire.MediaKeyStatusReply{Status: status}.Encode(), nil
	}
	status = ks.UpdateSession(req.ResponseData)
	return wire.MediaKeyStatusReply{Status: status}.Encode(), nil
}

func (c *connection) handleCloseKeySession(payload []byte) ([]byte, error) {
	req, err := wire.DecodeKeySessionIDRequest(payload)
	if err != nil {
		return nil, err
	}
	c.mediaKeysMu.Lock()
	mk, ok := c.keySessionOwner[req.KeySessionID]
	if ok {
		delete(c.keySessionOwner, req.KeySessionID)
	}
	c.mediaKeysMu.Unlock()
	if !ok {
		return wire.MediaKeyStatusReply{Status: cdm.StatusKeySessionNotFound}.Encode(), nil
	}
	status := mk.CloseKeySession(req.KeySessionID)
	return wire.MediaKeyStatusReply{Status: status}.Encode(), nil
}

func (c *connection) handleGetCdmKeySessionID(payload []byte) ([]byte, error) {
	req, err := wire.DecodeKeySessionIDRequest(payload)
	if err != nil {
		return nil, err
	}
	ks, status := c.resolveKeySession(req.KeySessionID)
	if status != cdm.StatusOk {
		return wire.GetCdmKeySessionIDReply{Status: status}.Encode(), nil
	}
	cdmID, status := ks.GetCdmKeySessionID()
	return wire.GetCdmKeySessionIDReply{CdmKeySessionID: cdmID, Status: status}.Encode(), nil
}
