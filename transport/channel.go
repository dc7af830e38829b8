// Package transport implements the unix-domain-socket duplex channel the
// wire protocol (package wire) is framed over, including passing the
// shared-memory file descriptor from server to client as socket ancillary
// data, per SPEC_FULL.md §6's "fd transported via socket ancillary data."
package transport

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rialto-go/rialto/wire"
)

// Channel is one duplex connection carrying wire frames, shared by a
// SessionManagementServer/client pair. A Channel serializes its own writes
// so request, reply, and event frames from different goroutines never
// interleave on the wire.
type Channel interface {
	// ReadFrame blocks until one frame has been read, or returns an error
	// once the peer disconnects.
	ReadFrame() (wire.Frame, error)

	WriteRequest(requestID uint64, method wire.Method, payload []byte) error
	WriteReply(requestID uint64, method wire.Method, payload []byte) error
	WriteEvent(ev wire.EventType, payload []byte) error

	// SendFd passes fd to the peer as SCM_RIGHTS ancillary data attached to
	// a single zero byte, used once per channel by
	// RialtoControlModule.getSharedMemory.
	SendFd(fd int) error
	// RecvFd blocks until that fd-carrying byte arrives and returns the
	// duplicated descriptor; the caller owns the returned fd.
	RecvFd() (int, error)

	Close() error
}

// unixChannel is the concrete Channel over a unix domain stream socket.
// SendFd writes a single byte carrying SCM_RIGHTS ancillary data on the same
// stream as the frames, and RecvFd reads that byte back with ReadMsgUnix;
// this works because wire.ReadFrame never reads past the end of a frame.
type unixChannel struct {
	conn *net.UnixConn

	writeMu sync.Mutex
}

// NewChannel wraps an already-established unix socket connection.
func NewChannel(conn *net.UnixConn) Channel {
	return &unixChannel{conn: conn}
}

func (c *unixChannel) ReadFrame() (wire.Frame, error) {
	return wire.ReadFrame(c.conn)
}

func (c *unixChannel) WriteRequest(requestID uint64, method wire.Method, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteRequest(c.conn, requestID, method, payload)
}

func (c *unixChannel) WriteReply(requestID uint64, method wire.Method, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteReply(c.conn, requestID, method, payload)
}

func (c *unixChannel) WriteEvent(ev wire.EventType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteEvent(c.conn, ev, payload)
}

func (c *unixChannel) SendFd(fd int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	rights := unix.UnixRights(fd)
	_, _, err := c.conn.WriteMsgUnix([]byte{0}, rights, nil)
	if err != nil {
		return fmt.Errorf("transport: send fd: %w", err)
	}
	return nil
}

func (c *unixChannel) RecvFd() (int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	_, oobn, _, _, err := c.conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return 0, fmt.Errorf("transport: recv fd: %w", err)
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return 0, fmt.Errorf("transport: parse control message: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return fds[0], nil
		}
	}
	return 0, fmt.Errorf("transport: no file descriptor in control message")
}

func (c *unixChannel) Close() error { return c.conn.Close() }
