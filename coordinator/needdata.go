package coordinator

import (
	"sync"

	"github.com/rialto-go/rialto/wire"
)

// NeedDataRequest is the client-side record of one server demand for more
// samples on a source, per spec.md §3. FrameWriter is nil until the first
// AddSegment call against this request.
type NeedDataRequest struct {
	RequestID  uint32
	SourceID   int32
	FrameCount uint32
	ShmInfo    wire.ShmInfo

	FrameWriter *FrameWriter
}

// needDataTable is the mutex-protected NeedDataRequest map spec.md §4.4
// calls out: lookups, inserts, and bulk clears all occur under one lock,
// making the map the single source of truth for whether a haveData is
// still live.
type needDataTable struct {
	mu   sync.Mutex
	byID map[uint32]*NeedDataRequest
}

func newNeedDataTable() *needDataTable {
	return &needDataTable{byID: make(map[uint32]*NeedDataRequest)}
}

func (t *needDataTable) insert(req *NeedDataRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[req.RequestID] = req
}

func (t *needDataTable) take(requestID uint32) (*NeedDataRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.byID[requestID]
	if ok {
		delete(t.byID, requestID)
	}
	return req, ok
}

func (t *needDataTable) peek(requestID uint32) (*NeedDataRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.byID[requestID]
	return req, ok
}

func (t *needDataTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID = make(map[uint32]*NeedDataRequest)
}

func (t *needDataTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

func (t *needDataTable) ids() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uint32, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	return ids
}
