package coordinator

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rialto-go/rialto/keyid"
	"github.com/rialto-go/rialto/shmclient"
	"github.com/rialto-go/rialto/wire"
	"golang.org/x/sys/unix"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegion(t *testing.T, size int64) *shmclient.Region {
	t.Helper()
	fd, err := unix.MemfdCreate("coordinator-test", 0)
	if err != nil {
		t.Fatalf("memfd_create: %v", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		t.Fatalf("ftruncate: %v", err)
	}
	region, err := shmclient.Map(fd, size)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	t.Cleanup(func() {
		region.Close()
		unix.Close(fd)
	})
	return region
}

type recordingSink struct {
	states   []State
	requests []*NeedDataRequest
}

func (s *recordingSink) OnStateChanged(st State)            { s.states = append(s.states, st) }
func (s *recordingSink) OnNeedMediaData(r *NeedDataRequest) { s.requests = append(s.requests, r) }

func TestPlaybackStateTransitionsToPlaying(t *testing.T) {
	c := New(keyid.New(), nil, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	if c.State() != StatePlaying {
		t.Fatalf("expected Playing, got %v", c.State())
	}
}

func TestNetworkErrorTransitionsToFailure(t *testing.T) {
	c := New(keyid.New(), nil, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.OnNetworkStateChange(wire.NetworkStateDecodeError)
	if c.State() != StateFailure {
		t.Fatalf("expected Failure, got %v", c.State())
	}
}

func TestNotifyNeedMediaDataDroppedOutsideBufferingOrPlaying(t *testing.T) {
	sink := &recordingSink{}
	c := New(keyid.New(), nil, testLogger())
	c.SetSink(sink)

	c.NotifyNeedMediaData(0, 1, 1, wire.ShmInfo{})
	if len(sink.requests) != 0 {
		t.Fatalf("expected no callback while Idle, got %d", len(sink.requests))
	}
}

func TestNotifyNeedMediaDataRecordedWhilePlaying(t *testing.T) {
	sink := &recordingSink{}
	c := New(keyid.New(), nil, testLogger())
	c.SetSink(sink)
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)

	c.NotifyNeedMediaData(0, 1, 7, wire.ShmInfo{MaxMetadataBytes: 64, MaxMediaBytes: 4096})

	deadline := time.Now().Add(time.Second)
	for len(sink.requests) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(sink.requests) != 1 || sink.requests[0].RequestID != 7 {
		t.Fatalf("expected one recorded request with id 7, got %+v", sink.requests)
	}
	if c.PendingRequestIDs()[0] != 7 {
		t.Fatalf("expected pending request id 7")
	}
}

func TestSetPositionAcceptedClearsNeedDataMap(t *testing.T) {
	c := New(keyid.New(), nil, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.NotifyNeedMediaData(0, 1, 1, wire.ShmInfo{})

	if !c.SetPositionAccepted() {
		t.Fatal("expected setPosition to be accepted while Playing")
	}
	if len(c.PendingRequestIDs()) != 0 {
		t.Fatal("expected NeedDataRequest map to be empty after setPosition")
	}
}

func TestSetPositionRejectedWhileIdle(t *testing.T) {
	c := New(keyid.New(), nil, testLogger())
	if c.SetPositionAccepted() {
		t.Fatal("expected setPosition to be rejected while Idle")
	}
}

func TestAddSegmentWritesThroughFrameWriterAndReportsCount(t *testing.T) {
	region := newTestRegion(t, 4096)
	keyIDs := keyid.New()
	c := New(keyIDs, region, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.NotifyNeedMediaData(0, 2, 5, wire.ShmInfo{
		MaxMetadataBytes: 256,
		MetadataOffset:   0,
		MediaDataOffset:  256,
		MaxMediaBytes:    1024,
	})

	seg := MediaSegment{SourceType: wire.MediaSourceTypeVideo, PTS: 1000, Data: []byte("framebytes")}
	status, err := c.AddSegment(5, seg)
	if err != nil || status != AddSegmentOk {
		t.Fatalf("AddSegment: status=%v err=%v", status, err)
	}
	status, err = c.AddSegment(5, seg)
	if err != nil || status != AddSegmentOk {
		t.Fatalf("second AddSegment: status=%v err=%v", status, err)
	}

	numFrames, forward, success := c.PrepareHaveData(5)
	if !forward || !success || numFrames != 2 {
		t.Fatalf("PrepareHaveData: numFrames=%d forward=%v success=%v", numFrames, forward, success)
	}
	if _, ok := c.needData.peek(5); ok {
		t.Fatal("expected request 5 to be gone after PrepareHaveData")
	}
}

func TestAddSegmentRejectsUnknownSourceType(t *testing.T) {
	region := newTestRegion(t, 4096)
	c := New(keyid.New(), region, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.NotifyNeedMediaData(0, 1, 9, wire.ShmInfo{MaxMetadataBytes: 64, MaxMediaBytes: 64})

	_, err := c.AddSegment(9, MediaSegment{SourceType: wire.MediaSourceTypeUnknown, Data: []byte("x")})
	if err == nil {
		t.Fatal("expected an error for an unknown source type")
	}
}

func TestAddSegmentAcceptsEncryptedSegmentWithRegisteredKeyID(t *testing.T) {
	region := newTestRegion(t, 4096)
	keyIDs := keyid.New()
	keyIDs.Put(42, []byte{0xAA, 0xBB})
	c := New(keyIDs, region, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.NotifyNeedMediaData(0, 1, 3, wire.ShmInfo{MaxMetadataBytes: 256, MediaDataOffset: 256, MaxMediaBytes: 1024})

	seg := MediaSegment{SourceType: wire.MediaSourceTypeVideo, IsEncrypted: true, MediaKeySessionID: 42, Data: []byte("enc")}
	if _, err := c.AddSegment(3, seg); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
}

func TestPrepareHaveDataDuringSeekingDiscardsAndSucceeds(t *testing.T) {
	c := New(keyid.New(), nil, testLogger())
	c.OnPlaybackStateChange(wire.PlaybackStatePlaying)
	c.NotifyNeedMediaData(0, 1, 4, wire.ShmInfo{})
	c.OnPlaybackStateChange(wire.PlaybackStateSeeking)

	numFrames, forward, success := c.PrepareHaveData(4)
	if forward || !success || numFrames != 0 {
		t.Fatalf("expected discard-and-succeed while Seeking, got forward=%v success=%v", forward, success)
	}
}
