// Package rpcproxy implements the client-side PipelineRpcProxy named in
// spec.md §4.5: a synchronous request/response stub over transport.Channel
// with a blocking-closure call pattern, plus the single-threaded EventPump
// that dispatches inbound events to a coordinator.Coordinator in
// server-emission order.
package rpcproxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rialto-go/rialto/transport"
	"github.com/rialto-go/rialto/wire"
)

// Dialer reattaches a disconnected channel. Supplied by the embedding
// application, which owns the unix socket path.
type Dialer func() (transport.Channel, error)

// Proxy is the client-side RPC stub for one session's control plane.
// Outbound calls block until a reply arrives or the channel disconnects;
// inbound events are drained by a dedicated EventPump goroutine so
// server-emission order is preserved end to end.
type Proxy struct {
	log    *slog.Logger
	dial   Dialer
	events EventHandler

	mu      sync.Mutex
	ch      transport.Channel
	nextID  atomic.Uint64
	pending map[uint64]chan wire.Frame

	sessionID atomic.Int64 // holds -1 until SetSessionID is called

	pumpDone chan struct{}
}

// noSessionID is the sentinel sessionID holds before SetSessionID is
// called, distinguishing "no session yet" from the valid session id 0.
const noSessionID = -1

// EventHandler receives decoded inbound events, implemented by
// coordinator.Coordinator (directly or via an adapter) so method names stay
// decoupled from the wire package.
type EventHandler interface {
	HandlePlaybackStateChange(wire.PlaybackStateChangeEvent)
	HandleNetworkStateChange(wire.NetworkStateChangeEvent)
	HandlePositionChange(wire.PositionChangeEvent)
	HandleNeedMediaData(wire.NeedMediaDataEvent)
	HandleQos(wire.QosEvent)
}

// New constructs a Proxy. Connect must be called before any RPC.
func New(dial Dialer, events EventHandler, log *slog.Logger) *Proxy {
	if log == nil {
		log = slog.Default()
	}
	p := &Proxy{
		log:     log.With("component", "rpcproxy"),
		dial:    dial,
		events:  events,
		pending: make(map[uint64]chan wire.Frame),
	}
	p.sessionID.Store(noSessionID)
	return p
}

// SetSessionID records the session id this proxy now owns, so the
// EventPump can drop events addressed to any other session per spec.md
// §4.5/§8's "inbound events are filtered by session_id matching the
// proxy's own session" invariant. Called once createSession succeeds.
func (p *Proxy) SetSessionID(sessionID int32) {
	p.sessionID.Store(int64(sessionID))
}

// ownsSession reports whether sessionID matches the session this proxy was
// bound to, or false if no session has been created yet.
func (p *Proxy) ownsSession(sessionID int32) bool {
	return p.sessionID.Load() == int64(sessionID)
}

// Connect dials the channel, performs the getSharedMemory handshake (the
// one exchange that also transfers an fd as ancillary data, so it must run
// before the EventPump starts reading frames off the same socket), and
// then starts the EventPump. ctx governs the pump's lifetime; cancelling
// it stops event dispatch and closes the channel.
func (p *Proxy) Connect(ctx context.Context) (shmSize int64, shmFd int, err error) {
	ch, err := p.dial()
	if err != nil {
		return 0, 0, fmt.Errorf("rpcproxy: dial: %w", err)
	}

	if err := ch.WriteRequest(0, wire.MethodGetSharedMemory, nil); err != nil {
		ch.Close()
		return 0, 0, fmt.Errorf("rpcproxy: write getSharedMemory: %w", err)
	}
	f, err := ch.ReadFrame()
	if err != nil {
		ch.Close()
		return 0, 0, fmt.Errorf("rpcproxy: read getSharedMemory reply: %w", err)
	}
	reply, err := wire.DecodeGetSharedMemoryReply(f.Payload)
	if err != nil {
		ch.Close()
		return 0, 0, fmt.Errorf("rpcproxy: decode GetSharedMemoryReply: %w", err)
	}
	if !reply.OK {
		ch.Close()
		return 0, 0, fmt.Errorf("rpcproxy: server refused getSharedMemory")
	}
	fd, err := ch.RecvFd()
	if err != nil {
		ch.Close()
		return 0, 0, fmt.Errorf("rpcproxy: receive shared-memory fd: %w", err)
	}

	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()

	p.pumpDone = make(chan struct{})
	go p.runPump(ctx, ch)
	return reply.Size, fd, nil
}

// Close shuts down the channel and stops the pump.
func (p *Proxy) Close() error {
	p.mu.Lock()
	ch := p.ch
	p.ch = nil
	p.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.Close()
}

// reattachChannelIfRequired implements spec.md §4.5's call-preamble: every
// outbound call checks the channel is live before transmitting, redialing
// through Dialer if it has been dropped. Returns the channel to use, or an
// error if none could be established.
func (p *Proxy) reattachChannelIfRequired() (transport.Channel, error) {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch != nil {
		return ch, nil
	}
	newCh, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("rpcproxy: channel disconnected and could not be reattached: %w", err)
	}
	p.mu.Lock()
	p.ch = newCh
	p.mu.Unlock()
	return newCh, nil
}

// call sends a request and blocks for its matching reply. It is the single
// choke point every typed RPC method in calls.go goes through.
func (p *Proxy) call(method wire.Method, payload []byte) (wire.Frame, error) {
	ch, err := p.reattachChannelIfRequired()
	if err != nil {
		return wire.Frame{}, err
	}

	requestID := p.nextID.Add(1)
	reply := make(chan wire.Frame, 1)
	p.mu.Lock()
	p.pending[requestID] = reply
	p.mu.Unlock()

	if err := ch.WriteRequest(requestID, method, payload); err != nil {
		p.mu.Lock()
		delete(p.pending, requestID)
		p.mu.Unlock()
		p.dropChannel(ch)
		return wire.Frame{}, fmt.Errorf("rpcproxy: write request: %w", err)
	}

	f, ok := <-reply
	if !ok {
		return wire.Frame{}, fmt.Errorf("rpcproxy: channel disconnected before reply to method %d", method)
	}
	return f, nil
}

// dropChannel discards a channel found to be broken, so the next call
// reattaches instead of reusing it.
func (p *Proxy) dropChannel(broken transport.Channel) {
	p.mu.Lock()
	if p.ch == broken {
		p.ch = nil
	}
	p.mu.Unlock()
}

// runPump is the single-threaded EventPump: it owns the only ReadFrame
// call on this channel, matching replies to pending calls and dispatching
// events to p.events in the order the server emitted them, per spec.md
// §5's ordering guarantee. Grounded on player.WorkerThread's single-
// consumer drain loop, adapted from a task queue to a blocking read loop.
func (p *Proxy) runPump(ctx context.Context, ch transport.Channel) {
	defer close(p.pumpDone)
	go func() {
		<-ctx.Done()
		ch.Close()
	}()

	for {
		f, err := ch.ReadFrame()
		if err != nil {
			p.log.Warn("event pump channel closed", "error", err)
			p.failAllPending()
			return
		}
		switch {
		case f.IsReply():
			p.deliverReply(f)
		case f.IsEvent():
			p.dispatchEvent(f)
		}
	}
}

func (p *Proxy) deliverReply(f wire.Frame) {
	p.mu.Lock()
	reply, ok := p.pending[f.RequestID]
	if ok {
		delete(p.pending, f.RequestID)
	}
	p.mu.Unlock()
	if !ok {
		p.log.Warn("reply for unknown or already-resolved request", "requestId", f.RequestID)
		return
	}
	reply <- f
}

func (p *Proxy) failAllPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, reply := range p.pending {
		close(reply)
		delete(p.pending, id)
	}
}

// Done returns a channel closed once the EventPump has exited.
func (p *Proxy) Done() <-chan struct{} { return p.pumpDone }
