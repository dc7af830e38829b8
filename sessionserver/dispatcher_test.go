package sessionserver

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rialto-go/rialto/cdm"
	"github.com/rialto-go/rialto/playback"
	"github.com/rialto-go/rialto/transport"
	"github.com/rialto-go/rialto/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTestServer wires a Server to a real transport.Listener backed by a
// playback.Service running the Null pipeline, the same setup cmd/rialtosrv
// assembles for real, minus shared memory (nil shmBuf exercises the
// getSharedMemory-refused path).
func startTestServer(t *testing.T) (socketPath string, stop func()) {
	t.Helper()
	socketPath = filepath.Join(t.TempDir(), "rialto.sock")

	log := testLogger()
	pb := playback.New(4, nil, nil, log)
	cdmSvc := cdm.NewService(nil, log)
	srv := New(pb, cdmSvc, nil, log)

	ln, err := transport.Listen(socketPath, log)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pbDone := make(chan struct{})
	go func() {
		defer close(pbDone)
		pb.Run(ctx)
	}()
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		ln.Serve(ctx, func(ch transport.Channel) { go srv.HandleConnection(ctx, ch) })
	}()

	return socketPath, func() {
		cancel()
		ln.Close()
		<-serveDone
		<-pbDone
	}
}

func dialAndHandshake(t *testing.T, socketPath string) transport.Channel {
	t.Helper()
	ch, err := transport.Dial(socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := ch.WriteRequest(0, wire.MethodGetSharedMemory, nil); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	f, err := ch.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	reply, err := wire.DecodeGetSharedMemoryReply(f.Payload)
	if err != nil {
		t.Fatalf("DecodeGetSharedMemoryReply: %v", err)
	}
	if reply.OK {
		t.Fatalf("expected handshake to report OK=false with a nil shmBuf")
	}
	return ch
}

func call(t *testing.T, ch transport.Channel, requestID uint64, method wire.Method, payload []byte) wire.Frame {
	t.Helper()
	if err := ch.WriteRequest(requestID, method, payload); err != nil {
		t.Fatalf("WriteRequest(%v): %v", method, err)
	}
	f, err := readReplyWithDeadline(t, ch)
	if err != nil {
		t.Fatalf("ReadFrame(%v): %v", method, err)
	}
	if f.RequestID != requestID {
		t.Fatalf("expected reply for request %d, got %d", requestID, f.RequestID)
	}
	return f
}

func readReplyWithDeadline(t *testing.T, ch transport.Channel) (wire.Frame, error) {
	t.Helper()
	type result struct {
		f   wire.Frame
		err error
	}
	out := make(chan result, 1)
	go func() {
		f, err := ch.ReadFrame()
		out <- result{f, err}
	}()
	select {
	case r := <-out:
		return r.f, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		return wire.Frame{}, nil
	}
}

func TestCreateSessionAndPlayRoundTrip(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	ch := dialAndHandshake(t, socketPath)
	defer ch.Close()

	req := wire.CreateSessionRequest{MaxWidth: 1920, MaxHeight: 1080}
	f := call(t, ch, 1, wire.MethodCreateSession, req.Encode())
	reply, err := wire.DecodeCreateSessionReply(f.Payload)
	if err != nil {
		t.Fatalf("DecodeCreateSessionReply: %v", err)
	}
	if !reply.OK {
		t.Fatal("expected createSession to succeed")
	}

	playReq := wire.SessionIDRequest{SessionID: reply.SessionID}
	f = call(t, ch, 2, wire.MethodPlay, playReq.Encode())
	playReply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		t.Fatalf("DecodeBoolReply: %v", err)
	}
	if !playReply.OK {
		t.Fatal("expected play to succeed")
	}
}

func TestPlayUnknownSessionReturnsFalse(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	ch := dialAndHandshake(t, socketPath)
	defer ch.Close()

	req := wire.SessionIDRequest{SessionID: 999}
	f := call(t, ch, 1, wire.MethodPlay, req.Encode())
	reply, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		t.Fatalf("DecodeBoolReply: %v", err)
	}
	if reply.OK {
		t.Fatal("expected play against an unknown session to fail")
	}
}

func TestDestroySessionTwiceReturnsFalseSecondTime(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	ch := dialAndHandshake(t, socketPath)
	defer ch.Close()

	createReq := wire.CreateSessionRequest{MaxWidth: 640, MaxHeight: 480}
	f := call(t, ch, 1, wire.MethodCreateSession, createReq.Encode())
	created, err := wire.DecodeCreateSessionReply(f.Payload)
	if err != nil || !created.OK {
		t.Fatalf("createSession: reply=%+v err=%v", created, err)
	}

	destroyReq := wire.SessionIDRequest{SessionID: created.SessionID}
	f = call(t, ch, 2, wire.MethodDestroySession, destroyReq.Encode())
	first, err := wire.DecodeBoolReply(f.Payload)
	if err != nil || !first.OK {
		t.Fatalf("first destroySession: reply=%+v err=%v", first, err)
	}

	f = call(t, ch, 3, wire.MethodDestroySession, destroyReq.Encode())
	second, err := wire.DecodeBoolReply(f.Payload)
	if err != nil {
		t.Fatalf("second destroySession: %v", err)
	}
	if second.OK {
		t.Fatal("expected the second destroySession to return false")
	}
}

func TestAttachSourceAssignsIncreasingSourceIDs(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	ch := dialAndHandshake(t, socketPath)
	defer ch.Close()

	createReq := wire.CreateSessionRequest{MaxWidth: 640, MaxHeight: 480}
	f := call(t, ch, 1, wire.MethodCreateSession, createReq.Encode())
	created, err := wire.DecodeCreateSessionReply(f.Payload)
	if err != nil || !created.OK {
		t.Fatalf("createSession: reply=%+v err=%v", created, err)
	}

	attachReq := wire.AttachSourceRequest{
		SessionID: created.SessionID,
		MediaType: wire.MediaSourceTypeVideo,
		MimeType:  "video/h264",
	}
	f = call(t, ch, 2, wire.MethodAttachSource, attachReq.Encode())
	first, err := wire.DecodeAttachSourceReply(f.Payload)
	if err != nil || !first.OK {
		t.Fatalf("first attachSource: reply=%+v err=%v", first, err)
	}

	attachReq.MediaType = wire.MediaSourceTypeAudio
	attachReq.MimeType = "audio/mp4a-latm"
	f = call(t, ch, 3, wire.MethodAttachSource, attachReq.Encode())
	second, err := wire.DecodeAttachSourceReply(f.Payload)
	if err != nil || !second.OK {
		t.Fatalf("second attachSource: reply=%+v err=%v", second, err)
	}

	if second.SourceID <= first.SourceID {
		t.Fatalf("expected increasing source ids, got %d then %d", first.SourceID, second.SourceID)
	}
}

func TestMediaKeysModuleRoundTrip(t *testing.T) {
	socketPath, stop := startTestServer(t)
	defer stop()

	ch := dialAndHandshake(t, socketPath)
	defer ch.Close()

	createReq := wire.CreateMediaKeysRequest{KeySystem: "com.widevine.alpha"}
	f := call(t, ch, 1, wire.MethodCreateMediaKeys, createReq.Encode())
	created, err := wire.DecodeCreateMediaKeysReply(f.Payload)
	if err != nil || !created.OK {
		t.Fatalf("createMediaKeys: reply=%+v err=%v", created, err)
	}

	sessionReq := wire.CreateKeySessionRequest{MediaKeysHandle: created.MediaKeysHandle}
	f = call(t, ch, 2, wire.MethodCreateKeySession, sessionReq.Encode())
	session, err := wire.DecodeCreateKeySessionReply(f.Payload)
	if err != nil || session.Status != wire.MediaKeyErrorStatusOk {
		t.Fatalf("createKeySession: reply=%+v err=%v", session, err)
	}

	generateReq := wire.GenerateRequestRequest{KeySessionID: session.KeySessionID, InitDataType: "cenc", InitData: []byte{1, 2, 3}}
	f = call(t, ch, 3, wire.MethodGenerateRequest, generateReq.Encode())
	generated, err := wire.DecodeMediaKeyStatusReply(f.Payload)
	if err != nil || generated.Status != wire.MediaKeyErrorStatusOk {
		t.Fatalf("generateRequest: reply=%+v err=%v", generated, err)
	}

	updateReq := wire.UpdateSessionRequest{KeySessionID: session.KeySessionID, ResponseData: []byte("license")}
	f = call(t, ch, 4, wire.MethodUpdateSession, updateReq.Encode())
	updated, err := wire.DecodeMediaKeyStatusReply(f.Payload)
	if err != nil || updated.Status != wire.MediaKeyErrorStatusOk {
		t.Fatalf("updateSession: reply=%+v err=%v", updated, err)
	}

	idReq := wire.KeySessionIDRequest{KeySessionID: session.KeySessionID}
	f = call(t, ch, 5, wire.MethodGetCdmKeySessionID, idReq.Encode())
	idReply, err := wire.DecodeGetCdmKeySessionIDReply(f.Payload)
	if err != nil || idReply.Status != wire.MediaKeyErrorStatusOk {
		t.Fatalf("getCdmKeySessionID: reply=%+v err=%v", idReply, err)
	}

	f = call(t, ch, 6, wire.MethodCloseKeySession, idReq.Encode())
	closed, err := wire.DecodeMediaKeyStatusReply(f.Payload)
	if err != nil || closed.Status != wire.MediaKeyErrorStatusOk {
		t.Fatalf("closeKeySession: reply=%+v err=%v", closed, err)
	}

	f = call(t, ch, 7, wire.MethodGetCdmKeySessionID, idReq.Encode())
	afterClose, err := wire.DecodeGetCdmKeySessionIDReply(f.Payload)
	if err != nil {
		t.Fatalf("getCdmKeySessionID after close: %v", err)
	}
	if afterClose.Status != wire.MediaKeyErrorStatusKeySessionNotFound {
		t.Fatalf("expected a closed session to be not-found, got %+v", afterClose)
	}
}
