package rpcproxy

import "github.com/rialto-go/rialto/wire"

// dispatchEvent decodes f per its EventType and forwards to p.events,
// logging and dropping on a decode error rather than killing the pump.
// Per spec.md §4.5/§8, an event addressed to a session other than the one
// this proxy owns is dropped before it ever reaches the coordinator.
func (p *Proxy) dispatchEvent(f wire.Frame) {
	switch f.Event {
	case wire.EventPlaybackStateChange:
		ev, err := wire.DecodePlaybackStateChangeEvent(f.Payload)
		if err != nil {
			p.log.Warn("decode PlaybackStateChangeEvent", "error", err)
			return
		}
		if !p.ownsSession(ev.SessionID) {
			p.log.Debug("dropping event for foreign session", "event", f.Event, "sessionId", ev.SessionID)
			return
		}
		p.events.HandlePlaybackStateChange(ev)
	case wire.EventNetworkStateChange:
		ev, err := wire.DecodeNetworkStateChangeEvent(f.Payload)
		if err != nil {
			p.log.Warn("decode NetworkStateChangeEvent", "error", err)
			return
		}
		if !p.ownsSession(ev.SessionID) {
			p.log.Debug("dropping event for foreign session", "event", f.Event, "sessionId", ev.SessionID)
			return
		}
		p.events.HandleNetworkStateChange(ev)
	case wire.EventPositionChange:
		ev, err := wire.DecodePositionChangeEvent(f.Payload)
		if err != nil {
			p.log.Warn("decode PositionChangeEvent", "error", err)
			return
		}
		if !p.ownsSession(ev.SessionID) {
			p.log.Debug("dropping event for foreign session", "event", f.Event, "sessionId", ev.SessionID)
			return
		}
		p.events.HandlePositionChange(ev)
	case wire.EventNeedMediaData:
		ev, err := wire.DecodeNeedMediaDataEvent(f.Payload)
		if err != nil {
			p.log.Warn("decode NeedMediaDataEvent", "error", err)
			return
		}
		if !p.ownsSession(ev.SessionID) {
			p.log.Debug("dropping event for foreign session", "event", f.Event, "sessionId", ev.SessionID)
			return
		}
		p.events.HandleNeedMediaData(ev)
	case wire.EventQos:
		ev, err := wire.DecodeQosEvent(f.Payload)
		if err != nil {
			p.log.Warn("decode QosEvent", "error", err)
			return
		}
		if !p.ownsSession(ev.SessionID) {
			p.log.Debug("dropping event for foreign session", "event", f.Event, "sessionId", ev.SessionID)
			return
		}
		p.events.HandleQos(ev)
	default:
		p.log.Warn("unknown event type", "event", f.Event)
	}
}
