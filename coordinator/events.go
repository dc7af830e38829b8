package coordinator

import "github.com/rialto-go/rialto/wire"

// EventHandler adapts a Coordinator to rpcproxy.EventHandler, translating
// each decoded wire event into the corresponding Coordinator call. Kept in
// this package (rather than rpcproxy) so rpcproxy never needs to import
// coordinator.
type EventHandler struct {
	Coordinator *Coordinator
}

func (h EventHandler) HandlePlaybackStateChange(ev wire.PlaybackStateChangeEvent) {
	h.Coordinator.OnPlaybackStateChange(ev.State)
}

func (h EventHandler) HandleNetworkStateChange(ev wire.NetworkStateChangeEvent) {
	h.Coordinator.OnNetworkStateChange(ev.State)
}

func (h EventHandler) HandlePositionChange(wire.PositionChangeEvent) {
	// Position updates are forwarded straight to the application sink by
	// the embedding client, not through the state machine; nothing to do
	// here.
}

func (h EventHandler) HandleNeedMediaData(ev wire.NeedMediaDataEvent) {
	h.Coordinator.NotifyNeedMediaData(ev.SourceID, ev.FrameCount, ev.RequestID, ev.ShmInfo)
}

func (h EventHandler) HandleQos(wire.QosEvent) {}
