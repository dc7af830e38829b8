package ocdm

import "testing"

type recordingCallbacks struct {
	challengeURL  string
	challenge     []byte
	keysUpdated   int
	lastKeyStatus KeyStatus
	errs          []string
}

func (r *recordingCallbacks) OnProcessChallenge(url string, challenge []byte) {
	r.challengeURL = url
	r.challenge = challenge
}

func (r *recordingCallbacks) OnKeyUpdated(_ []byte, status KeyStatus) {
	r.lastKeyStatus = status
}

func (r *recordingCallbacks) OnAllKeysUpdated() {
	r.keysUpdated++
}

func (r *recordingCallbacks) OnError(message string) {
	r.errs = append(r.errs, message)
}

func TestNullSessionGenerateRequestTriggersChallenge(t *testing.T) {
	sys := NewNullSystem()
	cb := &recordingCallbacks{}
	session, err := sys.CreateSession(SessionTypeTemporary, false, cb)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := session.GenerateRequest("cenc", []byte("init-data")); err != nil {
		t.Fatalf("GenerateRequest: %v", err)
	}
	if cb.challengeURL == "" {
		t.Fatal("expected OnProcessChallenge to be called")
	}

	if _, err := session.CdmKeySessionID(); err != nil {
		t.Fatalf("CdmKeySessionID: %v", err)
	}
}

func TestNullSessionCdmKeySessionIDBeforeRequestFails(t *testing.T) {
	sys := NewNullSystem()
	session, err := sys.CreateSession(SessionTypeTemporary, false, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := session.CdmKeySessionID(); err == nil {
		t.Fatal("expected error before GenerateRequest")
	}
}

func TestNullSessionUpdateFlushesKeyStatuses(t *testing.T) {
	sys := NewNullSystem()
	cb := &recordingCallbacks{}
	session, _ := sys.CreateSession(SessionTypeTemporary, false, cb)

	if err := session.Update([]byte("license-response")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cb.keysUpdated != 1 {
		t.Fatalf("expected OnAllKeysUpdated once, got %d", cb.keysUpdated)
	}
	if cb.lastKeyStatus != KeyStatusUsable {
		t.Fatalf("expected KeyStatusUsable, got %v", cb.lastKeyStatus)
	}
}

func TestNullSessionOperationsFailAfterClose(t *testing.T) {
	sys := NewNullSystem()
	session, _ := sys.CreateSession(SessionTypeTemporary, false, nil)

	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := session.GenerateRequest("cenc", nil); err == nil {
		t.Fatal("expected error after Close")
	}
	if err := session.Update(nil); err == nil {
		t.Fatal("expected error after Close")
	}
	if _, err := session.Decrypt([]byte("x"), nil, nil, nil, false); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestNullSessionDecryptEchoesInput(t *testing.T) {
	sys := NewNullSystem()
	session, _ := sys.CreateSession(SessionTypeTemporary, false, nil)

	in := []byte("ciphertext")
	out, err := session.Decrypt(in, nil, nil, nil, false)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("expected echoed bytes, got %q", out)
	}
}

func TestNullSystemAllocatesDistinctSessionIDs(t *testing.T) {
	sys := NewNullSystem()
	s1, _ := sys.CreateSession(SessionTypeTemporary, false, nil)
	s2, _ := sys.CreateSession(SessionTypeTemporary, false, nil)

	_ = s1.GenerateRequest("cenc", nil)
	_ = s2.GenerateRequest("cenc", nil)

	id1, _ := s1.CdmKeySessionID()
	id2, _ := s2.CdmKeySessionID()
	if id1 == id2 {
		t.Fatalf("expected distinct cdm key session ids, got %q twice", id1)
	}
}
