// Package cdm implements the CdmService/MediaKeys/MediaKeySession bridge
// described in SPEC_FULL.md §4.6: a per-key-system wrapper around an OCDM
// system, a registry of key sessions addressed by a process-wide integer
// id, and the sample-decrypt entry point used on the server's sample path.
package cdm

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rialto-go/rialto/internal/ocdm"
	"github.com/rialto-go/rialto/wire"
)

// SessionType mirrors ocdm.SessionType at the cdm API boundary.
type SessionType = ocdm.SessionType

const (
	SessionTypeTemporary         = ocdm.SessionTypeTemporary
	SessionTypePersistentLicense = ocdm.SessionTypePersistentLicense
)

// ErrorStatus is the MediaKeyErrorStatus named in spec.md §4.6.
type ErrorStatus = wire.MediaKeyErrorStatus

const (
	StatusOk                     = wire.MediaKeyErrorStatusOk
	StatusFail                   = wire.MediaKeyErrorStatusFail
	StatusBadSessionID           = wire.MediaKeyErrorStatusBadSessionID
	StatusNotSupported           = wire.MediaKeyErrorStatusNotSupported
	StatusInvalidState           = wire.MediaKeyErrorStatusInvalidState
	StatusNeedsIndividualization = wire.MediaKeyErrorStatusNeedsIndividualization
	StatusKeySessionNotFound     = wire.MediaKeyErrorStatusKeySessionNotFound
)

// KeyStatus mirrors ocdm.KeyStatus at the cdm API boundary.
type KeyStatus = ocdm.KeyStatus

// Client receives the asynchronous callbacks spec.md §4.6 says OCDM
// forwards to the client-supplied sink: onProcessChallenge, onKeyUpdated
// (accumulated until onAllKeysUpdated flushes it), onError.
type Client interface {
	OnProcessChallenge(keySessionID int32, url string, challenge []byte)
	OnKeyStatusesChanged(keySessionID int32, statuses map[string]KeyStatus)
	OnError(keySessionID int32, message string)
}

// keySessionIDCounter is the process-wide monotonically-increasing counter
// spec.md §4.6 requires for MediaKeySession's keySessionId.
var keySessionIDCounter atomic.Int32

// MediaKeySession wraps one OCDM session with the bookkeeping spec.md §3's
// "Key session" data model names: a stable integer id, the resolved CDM
// key session id, an atomic licenseRequested flag, and an accumulator for
// key statuses pending an onAllKeysUpdated flush.
type MediaKeySession struct {
	log          *slog.Logger
	keySessionID int32
	keySystem    string
	sessionType  SessionType
	isLDL        bool
	client       Client
	correlation  uuid.UUID

	session ocdm.Session

	licenseRequested atomic.Bool

	mu                 sync.Mutex
	pendingKeyStatuses map[string]KeyStatus
}

// KeySessionID returns the wire-level integer id, stable for the session's
// lifetime.
func (s *MediaKeySession) KeySessionID() int32 { return s.keySessionID }

// GenerateRequest triggers a license request. Per spec.md §4.6, this
// atomically sets licenseRequested before triggering the
// onProcessChallenge callback, so a concurrent query of licenseRequested
// never observes "requested" before the callback has been armed.
func (s *MediaKeySession) GenerateRequest(initDataType string, initData []byte) ErrorStatus {
	s.licenseRequested.Store(true)
	if err := s.session.GenerateRequest(initDataType, initData); err != nil {
		s.log.Warn("generateRequest failed", "session", s.keySessionID, "error", err)
		return StatusFail
	}
	return StatusOk
}

// LicenseRequested reports whether GenerateRequest has been called.
func (s *MediaKeySession) LicenseRequested() bool { return s.licenseRequested.Load() }

func (s *MediaKeySession) LoadSession() ErrorStatus {
	if err := s.session.Load(); err != nil {
		s.log.Warn("loadSession failed", "session", s.keySessionID, "error", err)
		return StatusFail
	}
	return StatusOk
}

func (s *MediaKeySession) UpdateSession(responseData []byte) ErrorStatus {
	if err := s.session.Update(responseData); err != nil {
		s.log.Warn("updateSession failed", "session", s.keySessionID, "error", err)
		return StatusFail
	}
	return StatusOk
}

// GetCdmKeySessionID resolves the OCDM-owned opaque string id, distinct
// from the integer KeySessionID per the GLOSSARY.
func (s *MediaKeySession) GetCdmKeySessionID() (string, ErrorStatus) {
	id, err := s.session.CdmKeySessionID()
	if err != nil {
		return "", StatusFail
	}
	return id, StatusOk
}

// Decrypt dispatches to the session's OCDM decrypt entry point, used by
// the GStreamer decryptor element on the sample path per spec.md §4.6.
func (s *MediaKeySession) Decrypt(encrypted []byte, subSamples []ocdm.SubSample, iv, keyID []byte, initWithLast15 bool) ([]byte, ErrorStatus) {
	clear, err := s.session.Decrypt(encrypted, subSamples, iv, keyID, initWithLast15)
	if err != nil {
		s.log.Warn("decrypt failed", "session", s.keySessionID, "error", err)
		return nil, StatusFail
	}
	return clear, StatusOk
}

// Not-implemented-upstream operations, per spec.md §9 Open Question (c):
// treat as unsupported rather than guessing behavior.
func (s *MediaKeySession) SelectKeyID([]byte) ErrorStatus         { return StatusNotSupported }
func (s *MediaKeySession) ContainsKey([]byte) (bool, ErrorStatus) { return false, StatusNotSupported }

// --- ocdm.Callbacks implementation, forwarding to the cdm.Client sink ---

func (s *MediaKeySession) OnProcessChallenge(url string, challenge []byte) {
	if s.client != nil {
		s.client.OnProcessChallenge(s.keySessionID, url, challenge)
	}
}

func (s *MediaKeySession) OnKeyUpdated(keyID []byte, status KeyStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingKeyStatuses == nil {
		s.pendingKeyStatuses = make(map[string]KeyStatus)
	}
	s.pendingKeyStatuses[string(keyID)] = status
}

func (s *MediaKeySession) OnAllKeysUpdated() {
	s.mu.Lock()
	flushed := s.pendingKeyStatuses
	s.pendingKeyStatuses = nil
	s.mu.Unlock()

	if s.client != nil && flushed != nil {
		s.client.OnKeyStatusesChanged(s.keySessionID, flushed)
	}
}

func (s *MediaKeySession) OnError(message string) {
	if s.client != nil {
		s.client.OnError(s.keySessionID, message)
	}
	s.log.Warn("ocdm error", "session", s.keySessionID, "message", message, "correlation", s.correlation)
}

var _ fmt.Stringer = (*MediaKeySession)(nil)

func (s *MediaKeySession) String() string {
	return fmt.Sprintf("MediaKeySession{id=%d, keySystem=%s}", s.keySessionID, s.keySystem)
}
