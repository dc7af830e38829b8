package ocdm

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// NullSystem is an in-memory System implementation used by tests and as
// the default backend when no real OCDM binding is configured.
type NullSystem struct {
	nextID atomic.Int64
}

// NewNullSystem creates a NullSystem.
func NewNullSystem() *NullSystem { return &NullSystem{} }

func (s *NullSystem) CreateSession(sessionType SessionType, isLDL bool, cb Callbacks) (Session, error) {
	id := s.nextID.Add(1)
	return &NullSession{
		id:       id,
		cb:       cb,
		sessType: sessionType,
		isLDL:    isLDL,
	}, nil
}

// NullSession is an in-memory Session. GenerateRequest synchronously calls
// back OnProcessChallenge with a deterministic synthetic challenge; Decrypt
// strips no bytes and simply echoes the ciphertext, which is sufficient for
// exercising the call contract without a real CDM.
type NullSession struct {
	mu        sync.Mutex
	id        int64
	cb        Callbacks
	sessType  SessionType
	isLDL     bool
	cdmID     string
	requested bool
	closed    bool
}

func (s *NullSession) GenerateRequest(initDataType string, initData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("ocdm: session %d is closed", s.id)
	}
	s.requested = true
	s.cdmID = fmt.Sprintf("null-cdm-session-%d", s.id)
	if s.cb != nil {
		s.cb.OnProcessChallenge("https://license.example/"+initDataType, append([]byte("challenge:"), initData...))
	}
	return nil
}

func (s *NullSession) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("ocdm: session %d is closed", s.id)
	}
	return nil
}

func (s *NullSession) Update(responseData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("ocdm: session %d is closed", s.id)
	}
	if s.cb != nil {
		s.cb.OnKeyUpdated(nil, KeyStatusUsable)
		s.cb.OnAllKeysUpdated()
	}
	_ = responseData
	return nil
}

func (s *NullSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *NullSession) Remove() error {
	return nil
}

func (s *NullSession) CdmKeySessionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requested {
		return "", fmt.Errorf("ocdm: session %d has no cdm key session id yet", s.id)
	}
	return s.cdmID, nil
}

func (s *NullSession) Decrypt(encrypted []byte, _ []SubSample, _ []byte, _ []byte, _ bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("ocdm: session %d is closed", s.id)
	}
	out := make([]byte, len(encrypted))
	copy(out, encrypted)
	return out, nil
}
