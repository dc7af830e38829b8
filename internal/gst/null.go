package gst

import "sync"

// NullPipeline is an in-memory Pipeline implementation used by tests and as
// the default backend when no real media framework bridge is configured.
// It tracks state transitions and buffer pushes without touching any real
// media framework, mirroring the role internal/distribution/relay_test.go's
// mockViewer plays for the distribution.Viewer interface.
type NullPipeline struct {
	mu       sync.Mutex
	state    State
	position int64
	elements map[string]*NullElement
	pushed   map[string][][]byte
	caps     map[string]string
	bus      *NullBus

	// FailSetState, when non-nil, is returned by the next SetState call and
	// then cleared — lets tests exercise the Failure path in player.WorkerThread.
	FailSetState error
}

// NewNullPipeline creates a NullPipeline in StateNull with no elements.
func NewNullPipeline() *NullPipeline {
	return &NullPipeline{
		elements: make(map[string]*NullElement),
		pushed:   make(map[string][][]byte),
		caps:     make(map[string]string),
		bus:      newNullBus(),
	}
}

func (p *NullPipeline) SetState(s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSetState != nil {
		err := p.FailSetState
		p.FailSetState = nil
		return err
	}
	p.state = s
	p.bus.push(Message{Type: MsgStateChanged, NewState: s})
	return nil
}

func (p *NullPipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *NullPipeline) Seek(positionNs int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = positionNs
	return nil
}

func (p *NullPipeline) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *NullPipeline) SetInstantRateChange(float64) error { return nil }

func (p *NullPipeline) PushBuffer(appsrcName string, data []byte, _, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed[appsrcName] = append(p.pushed[appsrcName], data)
	return nil
}

func (p *NullPipeline) SetCaps(appsrcName string, caps string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps[appsrcName] = caps
	return nil
}

func (p *NullPipeline) FindElement(name string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.elements[name]
	return e, ok
}

func (p *NullPipeline) Bus() Bus { return p.bus }

// AddElement registers a discoverable NullElement, for tests that exercise
// SetupElement/RenderFrame against a named element like "video-sink".
func (p *NullPipeline) AddElement(e *NullElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[e.name] = e
}

// PushedBuffers returns the buffers pushed to appsrcName, for test assertions.
func (p *NullPipeline) PushedBuffers(appsrcName string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.pushed[appsrcName]...)
}

// InjectMessage pushes a synthetic bus message, simulating a real bus event
// for GstDispatcherThread tests.
func (p *NullPipeline) InjectMessage(m Message) {
	p.bus.push(m)
}

// NullBus is a channel-backed Bus implementation.
type NullBus struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
}

func newNullBus() *NullBus {
	return &NullBus{ch: make(chan Message, 64)}
}

func (b *NullBus) push(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- m:
	default:
		// Drop on a full queue rather than block the caller; real bus
		// backpressure is bounded by GStreamer itself.
	}
}

func (b *NullBus) Pop() (Message, bool) {
	m, ok := <-b.ch
	return m, ok
}

func (b *NullBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// NullElement is an in-memory Element with settable properties and signal
// call tracking.
type NullElement struct {
	mu         sync.Mutex
	name       string
	properties map[string]any
	signals    []string
}

// NewNullElement creates a NullElement named name with the given initial
// properties (e.g. {"frame-step-on-preroll": true}).
func NewNullElement(name string, properties map[string]any) *NullElement {
	e := &NullElement{name: name, properties: make(map[string]any)}
	for k, v := range properties {
		e.properties[k] = v
	}
	return e
}

func (e *NullElement) Name() string { return e.name }

func (e *NullElement) HasProperty(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.properties[name]
	return ok
}

func (e *NullElement) SetProperty(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = value
	return nil
}

func (e *NullElement) GetProperty(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.properties[name]
	return v, ok
}

func (e *NullElement) Emit(signal string, _ ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signals = append(e.signals, signal)
	return nil
}

// Signals returns the names of every signal emitted so far, for test assertions.
func (e *NullElement) Signals() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.signals...)
}
