package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// Listener accepts incoming unix-domain-socket connections from clients and
// hands each one off as a Channel, mirroring the accept-loop shape of
// ingest/srt.Server.Start in the reference corpus.
type Listener struct {
	log  *slog.Logger
	ln   *net.UnixListener
	path string
}

// Listen binds a unix domain socket at path, removing any stale socket file
// left behind by a prior, uncleanly-terminated process.
func Listen(path string, log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("transport: removing stale socket %s: %w", path, err)
	}
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", path, err)
	}
	return &Listener{
		log:  log.With("component", "transport.Listener", "path", path),
		ln:   ln,
		path: path,
	}, nil
}

// Serve accepts connections until ctx is cancelled, invoking onAccept for
// each one on Serve's own goroutine, so the next connection is not accepted
// until onAccept returns. It blocks until ctx is done.
func (l *Listener) Serve(ctx context.Context, onAccept func(Channel)) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("accept error", "error", err)
			continue
		}
		l.log.Debug("client connected")
		onAccept(NewChannel(conn))
	}
}

// Close stops accepting connections and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	os.RemoveAll(l.path)
	return err
}

// Dial connects to a unix-domain-socket server at path, for use by clients
// (tests, and the rpcproxy.Dialer an application supplies).
func Dial(path string) (Channel, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", path, err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", path, err)
	}
	return NewChannel(conn), nil
}
