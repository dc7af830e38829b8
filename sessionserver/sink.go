package sessionserver

import (
	"log/slog"

	"github.com/rialto-go/rialto/session"
	"github.com/rialto-go/rialto/transport"
	"github.com/rialto-go/rialto/wire"
)

// channelSink adapts one connection's transport.Channel to session.ClientSink,
// encoding every player event as a wire event frame. It is installed on a
// Session via SetClientSink once CreateSession succeeds and stays installed
// for the session's life; when the connection drops, connection.run destroys
// the session rather than swapping in session.NullClientSink.
type channelSink struct {
	ch  transport.Channel
	log *slog.Logger
}

func (s channelSink) send(ev wire.EventType, payload []byte) {
	if err := s.ch.WriteEvent(ev, payload); err != nil {
		s.log.Warn("failed to deliver event", "event", ev, "error", err)
	}
}

var _ session.ClientSink = channelSink{}

func (s channelSink) SendPlaybackStateChange(sessionID int32, state wire.PlaybackState) {
	ev := wire.PlaybackStateChangeEvent{SessionID: sessionID, State: state}
	s.send(wire.EventPlaybackStateChange, ev.Encode())
}

func (s channelSink) SendNetworkStateChange(sessionID int32, state wire.NetworkState) {
	ev := wire.NetworkStateChangeEvent{SessionID: sessionID, State: state}
	s.send(wire.EventNetworkStateChange, ev.Encode())
}

func (s channelSink) SendPositionChange(sessionID int32, positionNs int64) {
	ev := wire.PositionChangeEvent{SessionID: sessionID, PositionNs: positionNs}
	s.send(wire.EventPositionChange, ev.Encode())
}

func (s channelSink) SendNeedMediaData(sessionID, sourceID int32, frameCount uint32, requestID int32, shmInfo *wire.ShmInfo) {
	ev := wire.NeedMediaDataEvent{
		SessionID:  sessionID,
		SourceID:   sourceID,
		FrameCount: frameCount,
		RequestID:  uint32(requestID),
	}
	if shmInfo != nil {
		ev.HasShmInfo = true
		ev.ShmInfo = *shmInfo
	}
	s.send(wire.EventNeedMediaData, ev.Encode())
}

func (s channelSink) SendQos(sessionID, sourceID int32, processed, dropped uint64) {
	ev := wire.QosEvent{SessionID: sessionID, SourceID: sourceID, Info: wire.QosInfo{Processed: processed, Dropped: dropped}}
	s.send(wire.EventQos, ev.Encode())
}
