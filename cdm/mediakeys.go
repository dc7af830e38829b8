package cdm

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rialto-go/rialto/internal/ocdm"
)

// MediaKeys wraps one OCDM System instance for a single key system (e.g.
// "com.widevine.alpha") and owns the registry of MediaKeySessions opened
// against it, keyed by the process-wide integer id spec.md §4.6 names.
//
// Grounded on internal/stream/manager.go's mutex-protected id->value map
// idiom, reused here for the key-session registry in place of the
// session-id->Session registry that package manages for live streams.
type MediaKeys struct {
	log       *slog.Logger
	keySystem string
	system    ocdm.System

	mu       sync.Mutex
	sessions map[int32]*MediaKeySession
}

// NewMediaKeys constructs a MediaKeys for keySystem backed by system. When
// system is nil, an ocdm.NullSystem is used (the default outside of a real
// OCDM binding).
func NewMediaKeys(keySystem string, system ocdm.System, log *slog.Logger) *MediaKeys {
	if system == nil {
		system = ocdm.NewNullSystem()
	}
	return &MediaKeys{
		log:       log.With("component", "mediakeys", "keySystem", keySystem),
		keySystem: keySystem,
		system:    system,
		sessions:  make(map[int32]*MediaKeySession),
	}
}

// KeySystem reports the key system name this MediaKeys was created for.
func (k *MediaKeys) KeySystem() string { return k.keySystem }

// CreateKeySession opens a new session of sessionType against the
// underlying OCDM system, registers it under a freshly allocated
// keySessionId, and wires client to receive its callbacks.
func (k *MediaKeys) CreateKeySession(sessionType SessionType, isLDL bool, client Client) (*MediaKeySession, ErrorStatus) {
	id := keySessionIDCounter.Add(1)

	session := &MediaKeySession{
		log:          k.log.With("keySession", id),
		keySessionID: id,
		keySystem:    k.keySystem,
		sessionType:  sessionType,
		isLDL:        isLDL,
		client:       client,
		correlation:  uuid.New(),
	}

	ocdmSession, err := k.system.CreateSession(sessionType, isLDL, session)
	if err != nil {
		k.log.Warn("createKeySession failed", "error", err)
		return nil, StatusFail
	}
	session.session = ocdmSession

	k.mu.Lock()
	k.sessions[id] = session
	k.mu.Unlock()

	return session, StatusOk
}

// Session looks up a previously created session by id.
func (k *MediaKeys) Session(keySessionID int32) (*MediaKeySession, ErrorStatus) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sessions[keySessionID]
	if !ok {
		return nil, StatusKeySessionNotFound
	}
	return s, StatusOk
}

// CloseKeySession closes and unregisters a session.
func (k *MediaKeys) CloseKeySession(keySessionID int32) ErrorStatus {
	k.mu.Lock()
	s, ok := k.sessions[keySessionID]
	if ok {
		delete(k.sessions, keySessionID)
	}
	k.mu.Unlock()

	if !ok {
		return StatusKeySessionNotFound
	}
	if err := s.session.Close(); err != nil {
		k.log.Warn("closeKeySession failed", "keySession", keySessionID, "error", err)
		return StatusFail
	}
	return StatusOk
}

// RemoveKeySession releases persisted license data for a session, per
// spec.md §4.6's removeKeySession operation.
func (k *MediaKeys) RemoveKeySession(keySessionID int32) ErrorStatus {
	k.mu.Lock()
	s, ok := k.sessions[keySessionID]
	k.mu.Unlock()
	if !ok {
		return StatusKeySessionNotFound
	}
	if err := s.session.Remove(); err != nil {
		return StatusFail
	}
	return StatusOk
}

// SessionCount reports the number of live sessions, for debugapi reporting.
func (k *MediaKeys) SessionCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.sessions)
}
