package debugapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rialto-go/rialto/cdm"
	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/internal/ocdm"
	"github.com/rialto-go/rialto/playback"
	"github.com/rialto-go/rialto/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *playback.Service, func()) {
	t.Helper()
	svc := playback.New(4, nil, func(int32) gst.Pipeline { return gst.NewNullPipeline() }, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	cdmSvc := cdm.NewService(func(string) ocdm.System { return ocdm.NewNullSystem() }, testLogger())

	s := New(svc, cdmSvc, testLogger())
	return s, svc, func() {
		cancel()
		<-done
	}
}

func TestListSessionsEmpty(t *testing.T) {
	s, _, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Sessions []sessionSummary `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %v", body.Sessions)
	}
}

func TestGetSessionReturnsSummary(t *testing.T) {
	s, svc, stop := newTestServer(t)
	defer stop()

	sess, err := svc.CreateSession(session.VideoRequirements{MaxWidth: 1920, MaxHeight: 1080})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/0", nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got sessionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SessionID != sess.ID || got.MaxWidth != 1920 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s, _, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/99", nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListKeySessionsEmpty(t *testing.T) {
	s, _, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/keysessions", nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
