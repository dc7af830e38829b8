package transport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rialto-go/rialto/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) (socketPath string, accepted chan Channel, stop func()) {
	t.Helper()
	socketPath = filepath.Join(t.TempDir(), "rialto.sock")

	ln, err := Listen(socketPath, testLogger())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	accepted = make(chan Channel, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ln.Serve(ctx, func(c Channel) { accepted <- c })
	}()
	return socketPath, accepted, func() {
		cancel()
		ln.Close()
		<-done
	}
}

func TestListenerAcceptsAndExchangesFrames(t *testing.T) {
	socketPath, accepted, stop := startTestServer(t)
	defer stop()

	client, err := Dial(socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var server Channel
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side accept")
	}
	defer server.Close()

	req := wire.SessionIDRequest{SessionID: 7}
	if err := client.WriteRequest(1, wire.MethodPlay, req.Encode()); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	f, err := server.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !f.IsRequest() || f.RequestID != 1 || f.Method != wire.MethodPlay {
		t.Fatalf("unexpected frame: %+v", f)
	}
	got, err := wire.DecodeSessionIDRequest(f.Payload)
	if err != nil {
		t.Fatalf("DecodeSessionIDRequest: %v", err)
	}
	if got != req {
		t.Fatalf("payload mismatch: got %+v want %+v", got, req)
	}

	reply := wire.BoolReply{OK: true}
	if err := server.WriteReply(1, wire.MethodPlay, reply.Encode()); err != nil {
		t.Fatalf("WriteReply: %v", err)
	}
	f, err = client.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame (reply): %v", err)
	}
	if !f.IsReply() || f.RequestID != 1 {
		t.Fatalf("unexpected reply frame: %+v", f)
	}
}

func TestChannelSendRecvFd(t *testing.T) {
	socketPath, accepted, stop := startTestServer(t)
	defer stop()

	client, err := Dial(socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var server Channel
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side accept")
	}
	defer server.Close()

	tmp, err := os.CreateTemp(t.TempDir(), "shm")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer tmp.Close()

	sendErr := make(chan error, 1)
	go func() { sendErr <- server.SendFd(int(tmp.Fd())) }()

	gotFd, err := client.RecvFd()
	if err != nil {
		t.Fatalf("RecvFd: %v", err)
	}
	defer unix.Close(gotFd)

	if err := <-sendErr; err != nil {
		t.Fatalf("SendFd: %v", err)
	}
	if gotFd <= 0 {
		t.Fatalf("expected a valid fd, got %d", gotFd)
	}
}
