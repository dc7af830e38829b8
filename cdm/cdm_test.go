package cdm

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rialto-go/rialto/internal/ocdm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingClient struct {
	challenges []string
	statuses   []map[string]KeyStatus
	errs       []string
}

func (c *recordingClient) OnProcessChallenge(_ int32, url string, _ []byte) {
	c.challenges = append(c.challenges, url)
}

func (c *recordingClient) OnKeyStatusesChanged(_ int32, statuses map[string]KeyStatus) {
	c.statuses = append(c.statuses, statuses)
}

func (c *recordingClient) OnError(_ int32, message string) {
	c.errs = append(c.errs, message)
}

func TestServiceCreateMediaKeysReusesPerKeySystem(t *testing.T) {
	svc := NewService(nil, testLogger())

	mk1, err := svc.CreateMediaKeys("com.widevine.alpha")
	if err != nil {
		t.Fatalf("CreateMediaKeys: %v", err)
	}
	mk2, err := svc.CreateMediaKeys("com.widevine.alpha")
	if err != nil {
		t.Fatalf("CreateMediaKeys: %v", err)
	}
	if mk1 != mk2 {
		t.Fatal("expected the same MediaKeys instance for the same key system")
	}
}

func TestServiceCreateMediaKeysRejectsEmptyKeySystem(t *testing.T) {
	svc := NewService(nil, testLogger())
	if _, err := svc.CreateMediaKeys(""); err == nil {
		t.Fatal("expected error for unsupported key system")
	}
}

func TestMediaKeysCreateKeySessionAssignsDistinctIDs(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())

	s1, status := mk.CreateKeySession(SessionTypeTemporary, false, nil)
	if status != StatusOk {
		t.Fatalf("CreateKeySession: %v", status)
	}
	s2, status := mk.CreateKeySession(SessionTypeTemporary, false, nil)
	if status != StatusOk {
		t.Fatalf("CreateKeySession: %v", status)
	}
	if s1.KeySessionID() == s2.KeySessionID() {
		t.Fatalf("expected distinct key session ids, got %d twice", s1.KeySessionID())
	}
}

func TestMediaKeySessionGenerateRequestSetsLicenseRequested(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())
	client := &recordingClient{}
	session, status := mk.CreateKeySession(SessionTypeTemporary, false, client)
	if status != StatusOk {
		t.Fatalf("CreateKeySession: %v", status)
	}

	if session.LicenseRequested() {
		t.Fatal("expected LicenseRequested to be false before GenerateRequest")
	}
	if status := session.GenerateRequest("cenc", []byte("init")); status != StatusOk {
		t.Fatalf("GenerateRequest: %v", status)
	}
	if !session.LicenseRequested() {
		t.Fatal("expected LicenseRequested to be true after GenerateRequest")
	}
	if len(client.challenges) != 1 {
		t.Fatalf("expected one challenge callback, got %d", len(client.challenges))
	}
}

func TestMediaKeySessionUpdateFlushesKeyStatusesToClient(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())
	client := &recordingClient{}
	session, _ := mk.CreateKeySession(SessionTypeTemporary, false, client)

	if status := session.UpdateSession([]byte("license-response")); status != StatusOk {
		t.Fatalf("UpdateSession: %v", status)
	}
	if len(client.statuses) != 1 {
		t.Fatalf("expected one key-statuses-changed callback, got %d", len(client.statuses))
	}
}

func TestMediaKeysCloseKeySessionUnregisters(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())
	session, _ := mk.CreateKeySession(SessionTypeTemporary, false, nil)

	if status := mk.CloseKeySession(session.KeySessionID()); status != StatusOk {
		t.Fatalf("CloseKeySession: %v", status)
	}
	if _, status := mk.Session(session.KeySessionID()); status != StatusKeySessionNotFound {
		t.Fatalf("expected StatusKeySessionNotFound after close, got %v", status)
	}
}

func TestMediaKeySessionUnsupportedOperationsReturnNotSupported(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())
	session, _ := mk.CreateKeySession(SessionTypeTemporary, false, nil)

	if status := session.SelectKeyID([]byte("key")); status != StatusNotSupported {
		t.Fatalf("expected StatusNotSupported, got %v", status)
	}
	if _, status := session.ContainsKey([]byte("key")); status != StatusNotSupported {
		t.Fatalf("expected StatusNotSupported, got %v", status)
	}
}

func TestMediaKeysSessionNotFound(t *testing.T) {
	mk := NewMediaKeys("com.widevine.alpha", ocdm.NewNullSystem(), testLogger())
	if _, status := mk.Session(999); status != StatusKeySessionNotFound {
		t.Fatalf("expected StatusKeySessionNotFound, got %v", status)
	}
}
