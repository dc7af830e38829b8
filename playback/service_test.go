package playback

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rialto-go/rialto/internal/gst"
	"github.com/rialto-go/rialto/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, maxPlaybacks int) (*Service, func()) {
	t.Helper()
	svc := New(maxPlaybacks, nil, func(int32) gst.Pipeline { return gst.NewNullPipeline() }, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()
	return svc, func() {
		cancel()
		<-done
	}
}

func TestCreateSessionAssignsDistinctIDs(t *testing.T) {
	svc, stop := newTestService(t, 4)
	defer stop()

	s1, err := svc.CreateSession(session.VideoRequirements{MaxWidth: 1920, MaxHeight: 1080})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s2, err := svc.CreateSession(session.VideoRequirements{MaxWidth: 1920, MaxHeight: 1080})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s1.ID == s2.ID {
		t.Fatalf("expected distinct session ids, got %d and %d", s1.ID, s2.ID)
	}
}

func TestCreateSessionRejectsBeyondMaxPlaybacks(t *testing.T) {
	svc, stop := newTestService(t, 1)
	defer stop()

	if _, err := svc.CreateSession(session.VideoRequirements{}); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	if _, err := svc.CreateSession(session.VideoRequirements{}); err == nil {
		t.Fatal("expected second CreateSession to fail once maxPlaybacks is reached")
	}
}

func TestDestroySessionIsExactlyOnce(t *testing.T) {
	svc, stop := newTestService(t, 4)
	defer stop()

	sess, err := svc.CreateSession(session.VideoRequirements{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if ok := svc.DestroySession(sess.ID); !ok {
		t.Fatal("expected first DestroySession to succeed")
	}
	if ok := svc.DestroySession(sess.ID); ok {
		t.Fatal("expected second DestroySession to return false")
	}
}

func TestDestroySessionFreesSlotForReuse(t *testing.T) {
	svc, stop := newTestService(t, 1)
	defer stop()

	sess, err := svc.CreateSession(session.VideoRequirements{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if ok := svc.DestroySession(sess.ID); !ok {
		t.Fatal("expected DestroySession to succeed")
	}
	if _, err := svc.CreateSession(session.VideoRequirements{}); err != nil {
		t.Fatalf("expected slot to be free after destroy, got: %v", err)
	}
}

func TestSessionLookup(t *testing.T) {
	svc, stop := newTestService(t, 4)
	defer stop()

	sess, err := svc.CreateSession(session.VideoRequirements{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, ok := svc.Session(sess.ID)
	if !ok || got != sess {
		t.Fatalf("expected Session lookup to return the created session")
	}
	if _, ok := svc.Session(sess.ID + 100); ok {
		t.Fatal("expected lookup of an unknown session id to fail")
	}
}

func TestServiceRunStopsAllSessionsOnCancel(t *testing.T) {
	svc := New(4, nil, func(int32) gst.Pipeline { return gst.NewNullPipeline() }, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	if _, err := svc.CreateSession(session.VideoRequirements{}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Service.Run to stop")
	}
}
