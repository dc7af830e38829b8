// Package keyid implements the client-side KeyIdRegistry named in
// spec.md §3/§4.4/§9: a process-wide map from a CDM key-session id to the
// keyId the DRM client resolved for it, read by the pipeline coordinator
// when stamping outgoing segments. Grounded on internal/stream/manager.go's
// single-mutex map idiom, keyed by int32 instead of string.
package keyid

import "sync"

// Registry is a mutex-protected keySessionId -> keyId map. The zero value
// is not usable; construct with New.
type Registry struct {
	mu   sync.Mutex
	byID map[int32][]byte
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[int32][]byte)}
}

// Put records keyId for keySessionID, overwriting any previous value.
func (r *Registry) Put(keySessionID int32, keyID []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[keySessionID] = append([]byte(nil), keyID...)
}

// Get resolves keySessionID to its keyId. Returns ok=false if nothing has
// been recorded for that id yet, which addSegment treats as "no keyId to
// stamp" rather than an error, per spec.md §4.4.
func (r *Registry) Get(keySessionID int32) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keyID, ok := r.byID[keySessionID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), keyID...), true
}

// Remove erases keySessionID's entry, called when a key session is closed.
func (r *Registry) Remove(keySessionID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, keySessionID)
}

// Len reports the number of tracked key sessions, for tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
