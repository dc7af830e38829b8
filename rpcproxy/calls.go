package rpcproxy

import (
	"fmt"

	"github.com/rialto-go/rialto/wire"
)

// CreateSession issues MediaPipelineModule's session-creation call.
func (p *Proxy) CreateSession(maxWidth, maxHeight int) (int32, error) {
	f, err := p.call(wire.MethodCreateSession, wire.CreateSessionRequest{MaxWidth: maxWidth, MaxHeight: maxHeight}.Encode())
	if err != nil {
		return 0, err
	}
	reply, err := wire.DecodeCreateSessionReply(f.Payload)
	if err != nil {
		return 0, fmt.Errorf("rpcproxy: decode CreateSessionReply: %w", err)
	}
	if !reply.OK {
		return 0, fmt.Errorf("rpcproxy: server refused to create a session")
	}
	p.SetSessionID(reply.SessionID)
	return reply.SessionID, nil
}

func (p *Proxy) sessionIDCall(method wire.Method, sessionID int32) (bool, error) {
	f, err := p.call(method, wire.SessionIDRequest{SessionID: sessionID}.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// DestroySession tears down sessionID server-side.
func (p *Proxy) DestroySession(sessionID int32) (bool, error) {
	return p.sessionIDCall(wire.MethodDestroySession, sessionID)
}

// Play, Pause, and Stop issue their namesake MediaPipelineModule calls.
func (p *Proxy) Play(sessionID int32) (bool, error) { return p.sessionIDCall(wire.MethodPlay, sessionID) }

func (p *Proxy) Pause(sessionID int32) (bool, error) { return p.sessionIDCall(wire.MethodPause, sessionID) }

func (p *Proxy) Stop(sessionID int32) (bool, error) { return p.sessionIDCall(wire.MethodStop, sessionID) }

// AllSourcesAttached tells the server no further attachSource calls are
// coming for this session.
func (p *Proxy) AllSourcesAttached(sessionID int32) (bool, error) {
	return p.sessionIDCall(wire.MethodAllSourcesAttached, sessionID)
}

// Load issues MediaPipelineModule.load.
func (p *Proxy) Load(sessionID int32, loadType wire.LoadType, mimeType, url string) (bool, error) {
	req := wire.LoadRequest{SessionID: sessionID, Type: loadType, MimeType: mimeType, URL: url}
	f, err := p.call(wire.MethodLoad, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// AttachSource issues MediaPipelineModule.attachSource, returning the
// server-assigned source id.
func (p *Proxy) AttachSource(req wire.AttachSourceRequest) (int32, error) {
	f, err := p.call(wire.MethodAttachSource, req.Encode())
	if err != nil {
		return 0, err
	}
	reply, err := wire.DecodeAttachSourceReply(f.Payload)
	if err != nil {
		return 0, fmt.Errorf("rpcproxy: decode AttachSourceReply: %w", err)
	}
	if !reply.OK {
		return 0, fmt.Errorf("rpcproxy: server refused to attach source")
	}
	return reply.SourceID, nil
}

// RemoveSource issues MediaPipelineModule.removeSource.
func (p *Proxy) RemoveSource(sessionID, sourceID int32) (bool, error) {
	req := wire.RemoveSourceRequest{SessionID: sessionID, SourceID: sourceID}
	f, err := p.call(wire.MethodRemoveSource, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// SetPosition issues MediaPipelineModule.setPosition. Callers must gate
// this through coordinator.Coordinator.SetPositionAccepted first.
func (p *Proxy) SetPosition(sessionID int32, positionNs int64) (bool, error) {
	req := wire.SetPositionRequest{SessionID: sessionID, PositionNs: positionNs}
	f, err := p.call(wire.MethodSetPosition, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// GetPosition issues MediaPipelineModule.getPosition.
func (p *Proxy) GetPosition(sessionID int32) (int64, bool, error) {
	f, err := p.call(wire.MethodGetPosition, wire.SessionIDRequest{SessionID: sessionID}.Encode())
	if err != nil {
		return 0, false, err
	}
	reply, err := wire.DecodeGetPositionReply(f.Payload)
	if err != nil {
		return 0, false, fmt.Errorf("rpcproxy: decode GetPositionReply: %w", err)
	}
	return reply.PositionNs, reply.OK, nil
}

// SetPlaybackRate issues MediaPipelineModule.setPlaybackRate.
func (p *Proxy) SetPlaybackRate(sessionID int32, rate float64) (bool, error) {
	req := wire.SetPlaybackRateRequest{SessionID: sessionID, Rate: rate}
	f, err := p.call(wire.MethodSetPlaybackRate, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// SetVideoWindow issues MediaPipelineModule.setVideoWindow.
func (p *Proxy) SetVideoWindow(sessionID, x, y, width, height int32) (bool, error) {
	req := wire.SetVideoWindowRequest{SessionID: sessionID, X: x, Y: y, Width: width, Height: height}
	f, err := p.call(wire.MethodSetVideoWindow, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// HaveData issues MediaPipelineModule.haveData, per spec.md §4.4's
// haveData gating rule. Callers resolve numFrames via
// coordinator.Coordinator.PrepareHaveData first.
func (p *Proxy) HaveData(sessionID int32, status wire.MediaSourceStatus, numFrames uint32, requestID uint32) (bool, error) {
	req := wire.HaveDataRequest{SessionID: sessionID, Status: status, NumFrames: numFrames, RequestID: requestID}
	f, err := p.call(wire.MethodHaveData, req.Encode())
	if err != nil {
		return false, err
	}
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		return false, fmt.Errorf("rpcproxy: decode BoolReply: %w", err)
	}
	return reply.OK, nil
}

// RenderFrame issues MediaPipelineModule.renderFrame.
func (p *Proxy) RenderFrame(sessionID int32) (bool, error) {
	return p.sessionIDCall(wire.MethodRenderFrame, sessionID)
}
