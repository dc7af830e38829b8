package coordinator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rialto-go/rialto/keyid"
	"github.com/rialto-go/rialto/shmclient"
	"github.com/rialto-go/rialto/wire"
)

// Sink receives the coordinator's state transitions and need-data
// notifications, implemented by the media application embedding the
// client. Mirrors session.ClientSink's shape but from the client's side of
// the wire.
type Sink interface {
	OnStateChanged(State)
	OnNeedMediaData(req *NeedDataRequest)
}

// NullSink discards every callback, used before the application attaches
// a real Sink.
type NullSink struct{}

func (NullSink) OnStateChanged(State)             {}
func (NullSink) OnNeedMediaData(*NeedDataRequest) {}

// Coordinator is the client-side PipelineCoordinator of spec.md §4.4: the
// state machine gating haveData/addSegment, the NeedDataRequest table, and
// the glue that lazily builds each request's FrameWriter.
type Coordinator struct {
	log    *slog.Logger
	keyIDs *keyid.Registry
	region *shmclient.Region

	mu          sync.Mutex
	state       State
	pendingRate *float64
	applyRate   func(float64)
	sink        Sink
	needData    *needDataTable
}

// New constructs a Coordinator in StateIdle. region may be nil until the
// SharedMemoryClient has mapped the server's fd; AddSegment fails until
// then.
func New(keyIDs *keyid.Registry, region *shmclient.Region, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		log:      log.With("component", "coordinator"),
		keyIDs:   keyIDs,
		region:   region,
		state:    StateIdle,
		needData: newNeedDataTable(),
		sink:     NullSink{},
	}
}

// SetSink installs the application's callback sink.
func (c *Coordinator) SetSink(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sink == nil {
		sink = NullSink{}
	}
	c.sink = sink
}

// SetRegion attaches the mapped shared-memory region once
// SharedMemoryClient has mmap'd the server's fd.
func (c *Coordinator) SetRegion(region *shmclient.Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.region = region
}

// State reports the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingRequestIDs reports the ids of NeedDataRequests currently live, for
// diagnostics.
func (c *Coordinator) PendingRequestIDs() []uint32 {
	return c.needData.ids()
}

// setState applies a new state, deciding what deferred-rate and sink
// callbacks the transition requires, and returns a closure that runs them.
// Callers must hold c.mu while calling setState, then invoke the returned
// closure (if non-nil) only after releasing it, so callback delivery never
// happens under the lock and stays ordered with the synchronous
// OnNeedMediaData path in NotifyNeedMediaData. Callers must hold c.mu.
func (c *Coordinator) setState(s State) func() {
	var callbacks []func()

	if s == StatePlaying && c.pendingRate != nil {
		rate := *c.pendingRate
		c.pendingRate = nil
		if c.applyRate != nil {
			applyRate := c.applyRate
			callbacks = append(callbacks, func() { applyRate(rate) })
		}
	}
	if s == StateIdle {
		c.pendingRate = nil
	}
	if c.state == s {
		if len(callbacks) == 0 {
			return nil
		}
		return func() {
			for _, cb := range callbacks {
				cb()
			}
		}
	}
	c.state = s
	sink := c.sink
	callbacks = append(callbacks, func() { sink.OnStateChanged(s) })
	return func() {
		for _, cb := range callbacks {
			cb()
		}
	}
}

// SetPlaybackRate implements spec.md §4.1's tie-break: while the
// coordinator is below Playing, the rate is deferred and applied on the
// next transition to Playing via applyRate (normally PipelineRpcProxy's
// setPlaybackRate RPC). At or above Playing it is applied immediately.
func (c *Coordinator) SetPlaybackRate(rate float64, applyRate func(float64)) {
	c.mu.Lock()
	c.applyRate = applyRate
	if c.state == StatePlaying {
		c.mu.Unlock()
		if applyRate != nil {
			applyRate(rate)
		}
		return
	}
	c.pendingRate = &rate
	c.mu.Unlock()
}

// OnPlaybackStateChange applies spec.md §4.4's Playback.* transition row.
func (c *Coordinator) OnPlaybackStateChange(s wire.PlaybackState) {
	next, ok := nextStateForPlayback(s)
	if !ok {
		return
	}
	c.mu.Lock()
	cb := c.setState(next)
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// OnNetworkStateChange applies spec.md §4.4's Network.* transition row.
func (c *Coordinator) OnNetworkStateChange(s wire.NetworkState) {
	next, ok := nextStateForNetwork(s)
	if !ok {
		return
	}
	c.mu.Lock()
	cb := c.setState(next)
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetPositionAccepted reports whether setPosition should be forwarded to
// the server in the coordinator's current state, and if so clears the
// entire NeedDataRequest map per spec.md §4.4.
func (c *Coordinator) SetPositionAccepted() bool {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()

	switch s {
	case StatePlaying, StateBuffering, StateSeeking, StateEndOfStream:
		c.needData.clear()
		return true
	default:
		return false
	}
}

// NotifyNeedMediaData records a new NeedDataRequest and calls the sink
// back, per spec.md §4.4's notifyNeedMediaData gating rule. Dropped
// outside Buffering/Playing.
func (c *Coordinator) NotifyNeedMediaData(sourceID int32, frameCount uint32, requestID uint32, shmInfo wire.ShmInfo) {
	c.mu.Lock()
	s := c.state
	sink := c.sink
	c.mu.Unlock()

	switch s {
	case StateBuffering, StatePlaying:
	case StateSeeking:
		return
	default:
		c.log.Warn("dropping notifyNeedMediaData outside Buffering/Playing/Seeking", "state", s, "requestId", requestID)
		return
	}

	req := &NeedDataRequest{
		RequestID:  requestID,
		SourceID:   sourceID,
		FrameCount: frameCount,
		ShmInfo:    shmInfo,
	}
	c.needData.insert(req)
	sink.OnNeedMediaData(req)
}

// NotifyBufferTerm clears the NeedDataRequest map, per spec.md §4.4.
func (c *Coordinator) NotifyBufferTerm() {
	c.needData.clear()
}

// Stop clears the NeedDataRequest map and any deferred SetPlaybackRate,
// per spec.md §4.1: "Stop clears both needData flags and any pending
// rate."
func (c *Coordinator) Stop() {
	c.needData.clear()
	c.mu.Lock()
	c.pendingRate = nil
	c.mu.Unlock()
}

// haveDataOutcome is returned by PrepareHaveData so the caller (usually
// PipelineRpcProxy) knows whether to transmit anything at all.
type haveDataOutcome struct {
	NumFrames uint32
	Forward   bool
	Success   bool
}

// PrepareHaveData implements spec.md §4.4's haveData gating rule,
// resolving and removing requestID from the table and reporting whether
// (and with what numFrames) the caller should forward to the server.
func (c *Coordinator) PrepareHaveData(requestID uint32) (numFrames uint32, forward bool, success bool) {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()

	req, ok := c.needData.take(requestID)
	switch s {
	case StateBuffering, StatePlaying:
		if !ok {
			return 0, false, false
		}
		count := uint32(0)
		if req.FrameWriter != nil {
			count = req.FrameWriter.Count()
		}
		return count, true, true
	case StateSeeking:
		return 0, false, true
	default:
		return 0, false, false
	}
}

// AddSegment implements spec.md §4.4's addSegment: resolves requestID,
// stamps the segment's keyId from the KeyIdRegistry when encrypted, lazily
// builds the request's FrameWriter, and delegates to it.
func (c *Coordinator) AddSegment(requestID uint32, seg MediaSegment) (AddSegmentStatus, error) {
	req, ok := c.needData.peek(requestID)
	if !ok {
		return AddSegmentError, fmt.Errorf("coordinator: no live NeedDataRequest for id %d", requestID)
	}
	if seg.SourceType == wire.MediaSourceTypeUnknown {
		return AddSegmentError, fmt.Errorf("coordinator: segment has unknown source type")
	}
	if len(seg.Data) == 0 {
		return AddSegmentError, fmt.Errorf("coordinator: segment has no data")
	}

	if seg.IsEncrypted {
		if keyID, ok := c.keyIDs.Get(seg.MediaKeySessionID); ok && len(keyID) > 0 {
			seg.KeyID = keyID
		}
	}

	c.mu.Lock()
	region := c.region
	c.mu.Unlock()
	if req.FrameWriter == nil {
		if region == nil {
			return AddSegmentError, fmt.Errorf("coordinator: no shared-memory region mapped")
		}
		req.FrameWriter = NewFrameWriter(region, req.ShmInfo)
	}

	return req.FrameWriter.WriteFrame(seg)
}
