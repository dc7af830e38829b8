// Package wire defines the request/reply and event schema exchanged between
// the rialto client and server, and the binary codec used to carry it over a
// single duplex channel (see transport.Channel).
//
// Framing follows the length-prefixed varint scheme used elsewhere in the
// reference corpus for multiplexed binary control messages
// (zsiec/prism's internal/moq/control.go): [kind varint], then
// [request id varint][method varint] for requests and replies or
// [event type varint] for events, then [length uint16 big-endian][payload].
// No example repo in the retrieval pack imports a
// protobuf or gRPC library, so this package does not fabricate one; see
// SPEC_FULL.md §6 for the rationale.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/quic-go/quic-go/quicvarint"
)

// Method identifies an RPC request. Requests flow client → server.
type Method uint64

const (
	MethodCreateSession Method = iota + 1
	MethodDestroySession
	MethodLoad
	MethodAttachSource
	MethodRemoveSource
	MethodAllSourcesAttached
	MethodPlay
	MethodPause
	MethodStop
	MethodSetPosition
	MethodGetPosition
	MethodSetPlaybackRate
	MethodSetVideoWindow
	MethodHaveData
	MethodRenderFrame
	MethodGetSharedMemory
	MethodGetSupportedMimeTypes
	MethodIsMimeTypeSupported
	MethodCreateKeySession
	MethodGenerateRequest
	MethodLoadSession
	MethodUpdateSession
	MethodCloseKeySession
	MethodRemoveKeySession
	MethodGetCdmKeySessionID
	MethodContainsKey
	MethodSelectKeyID
	MethodSetDrmHeader
	MethodDeleteDrmStore
	MethodDeleteKeyStore
	MethodGetDrmStoreHash
	MethodGetKeyStoreHash
	MethodGetLdlSessionsLimit
	MethodGetLastDrmError
	MethodGetDrmTime
	MethodCreateMediaKeys
)

// EventType identifies an asynchronous, server-originated event. Events
// flow server → client and are not replies to any specific request.
type EventType uint64

const (
	EventPlaybackStateChange EventType = iota + 1
	EventNetworkStateChange
	EventPositionChange
	EventNeedMediaData
	EventQos
)

// frameKind distinguishes request, reply and event frames on the wire; all
// three end in the same [len u16][payload] envelope but are read into
// different dispatch tables by the proxy/server.
type frameKind uint64

const (
	frameKindRequest frameKind = 0
	frameKindReply   frameKind = 1
	frameKindEvent   frameKind = 2
)

// Frame is one decoded wire envelope.
type Frame struct {
	Kind      frameKind
	RequestID uint64 // valid when Kind == frameKindRequest or frameKindReply
	Method    Method // valid when Kind == frameKindRequest or frameKindReply
	Event     EventType
	Payload   []byte
}

// IsRequest reports whether this frame carries a request awaiting a reply.
func (f Frame) IsRequest() bool { return f.Kind == frameKindRequest }

// IsReply reports whether this frame carries a reply to an outstanding request.
func (f Frame) IsReply() bool { return f.Kind == frameKindReply }

// IsEvent reports whether this frame carries an asynchronous event.
func (f Frame) IsEvent() bool { return f.Kind == frameKindEvent }

// WriteRequest encodes and writes an RPC request frame: requestID identifies
// the call so the reply can be matched by PipelineRpcProxy's blocking closure.
func WriteRequest(w io.Writer, requestID uint64, method Method, payload []byte) error {
	var buf []byte
	buf = quicvarint.Append(buf, uint64(frameKindRequest))
	buf = quicvarint.Append(buf, requestID)
	buf = quicvarint.Append(buf, uint64(method))
	return writeFramed(w, buf, payload)
}

// WriteReply encodes and writes a reply frame matching a prior request.
func WriteReply(w io.Writer, requestID uint64, method Method, payload []byte) error {
	var buf []byte
	buf = quicvarint.Append(buf, uint64(frameKindReply))
	buf = quicvarint.Append(buf, requestID)
	buf = quicvarint.Append(buf, uint64(method))
	return writeFramed(w, buf, payload)
}

// WriteEvent encodes and writes an asynchronous event frame.
func WriteEvent(w io.Writer, ev EventType, payload []byte) error {
	var buf []byte
	buf = quicvarint.Append(buf, uint64(frameKindEvent))
	buf = quicvarint.Append(buf, uint64(ev))
	return writeFramed(w, buf, payload)
}

// writeFramed appends the big-endian uint16 length prefix and the payload
// to header, then performs a single Write call so a frame is never
// interleaved with another writer's frame on the same channel.
func writeFramed(w io.Writer, header, payload []byte) error {
	if len(payload) > 0xFFFF {
		return fmt.Errorf("wire: payload too large (%d bytes)", len(payload))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	buf := append(header, lenBuf[:]...)
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// byteAtATime reads one byte per call from r, so a frame header is read
// without consuming bytes that belong to whatever follows the frame.
type byteAtATime struct{ r io.Reader }

func (b byteAtATime) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.r, buf[:])
	return buf[0], err
}

// ReadFrame reads and decodes one wire frame from r. It blocks until a full
// frame has been read, an error occurs, or r is closed. It reads no bytes
// beyond the end of the frame.
func ReadFrame(r io.Reader) (Frame, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = byteAtATime{r}
	}

	kind, err := quicvarint.Read(br)
	if err != nil {
		return Frame{}, fmt.Errorf("wire: read frame kind: %w", err)
	}

	var f Frame
	f.Kind = frameKind(kind)

	switch f.Kind {
	case frameKindRequest, frameKindReply:
		reqID, err := quicvarint.Read(br)
		if err != nil {
			return Frame{}, fmt.Errorf("wire: read request id: %w", err)
		}
		method, err := quicvarint.Read(br)
		if err != nil {
			return Frame{}, fmt.Errorf("wire: read method: %w", err)
		}
		f.RequestID = reqID
		f.Method = Method(method)
	case frameKindEvent:
		ev, err := quicvarint.Read(br)
		if err != nil {
			return Frame{}, fmt.Errorf("wire: read event type: %w", err)
		}
		f.Event = EventType(ev)
	default:
		return Frame{}, fmt.Errorf("wire: unknown frame kind %d", kind)
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, fmt.Errorf("wire: read payload length: %w", err)
	}
	length := binary.BigEndian.Uint16(lenBuf[:])

	if length > 0 {
		f.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, fmt.Errorf("wire: read payload: %w", err)
		}
	}

	return f, nil
}

// byteWriter is a minimal append-only varint/bytes encoder used by the
// per-method Encode functions in messages.go.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) varint(v uint64) { w.buf = quicvarint.Append(w.buf, v) }
func (w *byteWriter) signedVarint(v int64) {
	// zig-zag encode so small negative values (e.g. a -1 position delta)
	// stay cheap to represent as a varint.
	w.varint(uint64((v << 1) ^ (v >> 63)))
}
func (w *byteWriter) byte(b byte) { w.buf = append(w.buf, b) }
func (w *byteWriter) bytes(b []byte) {
	w.varint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}
func (w *byteWriter) string(s string) { w.bytes([]byte(s)) }
func (w *byteWriter) float64(f float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) bytesOut() []byte { return w.buf }

// byteReader is the decode-side counterpart of byteWriter.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) varint() (uint64, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v, n, err := quicvarint.Parse(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) signedVarint() (int64, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	return int64(v>>1) ^ -int64(v&1), nil
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	end := r.pos + int(n)
	if end > len(r.data) || end < r.pos {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos:end]
	r.pos = end
	return b, nil
}

func (r *byteReader) string() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) float64() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return math.Float64frombits(bits), nil
}
