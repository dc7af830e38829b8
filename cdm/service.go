package cdm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rialto-go/rialto/internal/ocdm"
)

// Service is the CdmService named in spec.md §4.6: the top-level registry
// mapping key-system names to a MediaKeys instance, analogous in shape to
// internal/stream/manager.go's registry of live streams but keyed by
// string key system rather than stream id.
type Service struct {
	log *slog.Logger

	// newSystem constructs the ocdm.System backend for a key system not
	// seen before. Defaults to ocdm.NewNullSystem; tests can override it to
	// inject a fake that fails on demand.
	newSystem func(keySystem string) ocdm.System

	mu    sync.Mutex
	byKey map[string]*MediaKeys
}

// NewService constructs a CdmService. newSystem may be nil, in which case
// every key system is backed by an ocdm.NullSystem.
func NewService(newSystem func(keySystem string) ocdm.System, log *slog.Logger) *Service {
	if newSystem == nil {
		newSystem = func(string) ocdm.System { return ocdm.NewNullSystem() }
	}
	return &Service{
		log:       log.With("component", "cdmservice"),
		newSystem: newSystem,
		byKey:     make(map[string]*MediaKeys),
	}
}

// SupportsKeySystem reports whether keySystem has a backend. The Null
// backend supports any key system name; a real binding would restrict this
// to the systems it was built against.
func (s *Service) SupportsKeySystem(keySystem string) bool {
	return keySystem != ""
}

// GetSupportedKeySystems returns the key systems this service can open,
// per spec.md §4.6's getSupportedKeySystems. The Null backend advertises a
// fixed demonstration set; a real binding would query its CDM libraries.
func (s *Service) GetSupportedKeySystems() []string {
	return []string{"com.widevine.alpha", "com.microsoft.playready"}
}

// CreateMediaKeys opens (or reuses) the MediaKeys for keySystem.
func (s *Service) CreateMediaKeys(keySystem string) (*MediaKeys, error) {
	if !s.SupportsKeySystem(keySystem) {
		return nil, fmt.Errorf("cdm: unsupported key system %q", keySystem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mk, ok := s.byKey[keySystem]; ok {
		return mk, nil
	}

	mk := NewMediaKeys(keySystem, s.newSystem(keySystem), s.log)
	s.byKey[keySystem] = mk
	return mk, nil
}

// MediaKeysFor looks up a previously created MediaKeys by key system.
func (s *Service) MediaKeysFor(keySystem string) (*MediaKeys, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mk, ok := s.byKey[keySystem]
	return mk, ok
}

// ReleaseMediaKeys drops a key system's MediaKeys entirely.
func (s *Service) ReleaseMediaKeys(keySystem string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, keySystem)
}

// Stats returns key-system -> open session count, for debugapi.
func (s *Service) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.byKey))
	for k, mk := range s.byKey {
		out[k] = mk.SessionCount()
	}
	return out
}
