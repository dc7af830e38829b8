// Package ocdm defines the capability seam between cdm.MediaKeys and the
// underlying Open Content Decryption Module implementation. The concrete
// Widevine/PlayReady OCDM binding is explicitly out of scope (spec.md §1);
// this package only defines the interfaces cdm needs and a Null backend
// for tests, mirroring the same mockable-capability-set treatment spec.md
// §9 asks for on the GStreamer side (see internal/gst).
package ocdm

import "errors"

// ErrNotSupported is returned by the handful of OCDM operations spec.md §9
// Open Question (c) says are declared but never implemented upstream:
// selectKeyId, containsKey, setDrmHeader, deleteDrmStore, deleteKeyStore,
// getDrmStoreHash, getKeyStoreHash, getLdlSessionsLimit, getLastDrmError,
// getDrmTime. Treat these as "not supported", not guessed behavior.
var ErrNotSupported = errors.New("ocdm: operation not supported")

// SessionType mirrors the OCDM session type (temporary vs persistent-license).
type SessionType int

const (
	SessionTypeTemporary SessionType = iota
	SessionTypePersistentLicense
)

// KeyStatus mirrors one key's status as reported by OCDM's onKeyUpdated callback.
type KeyStatus int

const (
	KeyStatusUsable KeyStatus = iota
	KeyStatusExpired
	KeyStatusReleased
	KeyStatusOutputRestricted
	KeyStatusPending
	KeyStatusInternalError
)

// SubSample describes one (clear, encrypted) byte range for CENC decryption.
type SubSample struct {
	ClearBytes     uint32
	EncryptedBytes uint32
}

// Callbacks receives asynchronous notifications from a Session, forwarded
// by cdm.MediaKeySession to the client-supplied sink per spec.md §4.6.
type Callbacks interface {
	OnProcessChallenge(url string, challenge []byte)
	OnKeyUpdated(keyID []byte, status KeyStatus)
	OnAllKeysUpdated()
	OnError(message string)
}

// Session is the capability set cdm.MediaKeySession needs from one OCDM
// session.
type Session interface {
	// GenerateRequest triggers OnProcessChallenge via the session's Callbacks.
	GenerateRequest(initDataType string, initData []byte) error
	Load() error
	Update(responseData []byte) error
	Close() error
	Remove() error
	// CdmKeySessionID resolves to the OCDM-owned opaque string id, valid
	// only after GenerateRequest has completed.
	CdmKeySessionID() (string, error)
	// Decrypt dispatches to the OCDM session's sample decryption entry
	// point, used by the decryptor element on the sample path.
	Decrypt(encrypted []byte, subSamples []SubSample, iv []byte, keyID []byte, initWithLast15 bool) ([]byte, error)
}

// System is the capability set cdm.MediaKeys needs from one OCDM system
// instance (one per key system, e.g. "com.widevine.alpha").
type System interface {
	// CreateSession opens a new OCDM session of the given type and wires
	// cb to receive its callbacks. isLDL requests a Limited-Duration
	// License session.
	CreateSession(sessionType SessionType, isLDL bool, cb Callbacks) (Session, error)
}
