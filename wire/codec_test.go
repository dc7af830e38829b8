package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTripRequest(t *testing.T) {
	var buf bytes.Buffer
	req := LoadRequest{SessionID: 3, Type: LoadTypeMSE, MimeType: "video/mp4", URL: "mse://1"}
	if err := WriteRequest(&buf, 42, MethodLoad, req.Encode()); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !f.IsRequest() || f.RequestID != 42 || f.Method != MethodLoad {
		t.Fatalf("unexpected frame: %+v", f)
	}
	got, err := DecodeLoadRequest(f.Payload)
	if err != nil {
		t.Fatalf("DecodeLoadRequest: %v", err)
	}
	if got != req {
		t.Errorf("round trip mismatch: got %+v want %+v", got, req)
	}
}

func TestFrameRoundTripEvent(t *testing.T) {
	var buf bytes.Buffer
	ev := NeedMediaDataEvent{
		SessionID: 1, SourceID: 1, FrameCount: 24, RequestID: 7,
		HasShmInfo: true,
		ShmInfo:    ShmInfo{MaxMetadataBytes: 256, MetadataOffset: 0, MediaDataOffset: 256, MaxMediaBytes: 65280},
	}
	if err := WriteEvent(&buf, EventNeedMediaData, ev.Encode()); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !f.IsEvent() || f.Event != EventNeedMediaData {
		t.Fatalf("unexpected frame: %+v", f)
	}
	got, err := DecodeNeedMediaDataEvent(f.Payload)
	if err != nil {
		t.Fatalf("DecodeNeedMediaDataEvent: %v", err)
	}
	if got != ev {
		t.Errorf("round trip mismatch: got %+v want %+v", got, ev)
	}
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, 1, MethodPlay, SessionIDRequest{SessionID: 5}.Encode()); err != nil {
		t.Fatal(err)
	}
	if err := WriteReply(&buf, 1, MethodPlay, BoolReply{OK: true}.Encode()); err != nil {
		t.Fatal(err)
	}

	f1, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !f1.IsRequest() {
		t.Fatalf("expected request frame first")
	}
	f2, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !f2.IsReply() {
		t.Fatalf("expected reply frame second")
	}
}
