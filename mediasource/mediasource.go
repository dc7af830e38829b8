// Package mediasource defines the server-side descriptors for attached
// media sources and inbound sample segments, per SPEC_FULL.md §3.
package mediasource

import "github.com/rialto-go/rialto/wire"

// Type identifies whether a source carries audio or video samples.
type Type = wire.MediaSourceType

const (
	TypeUnknown = wire.MediaSourceTypeUnknown
	TypeAudio   = wire.MediaSourceTypeAudio
	TypeVideo   = wire.MediaSourceTypeVideo
)

// AudioConfig carries the parameters needed to build an audio decoder,
// present only on audio sources.
type AudioConfig struct {
	Channels            int
	SampleRate          int
	CodecSpecificConfig []byte
}

// Source is the server-side descriptor for one attached elementary stream.
// Per spec.md §3, SourceID is assigned by the server and is monotonically
// non-decreasing across the lifetime of a session.
type Source struct {
	SourceID         int32
	Type             Type
	MimeType         string
	Caps             string // raw caps string, when the client supplied one (spec.md §9 Open Question a)
	Audio            *AudioConfig
	CodecData        []byte
	SegmentAlignment wire.SegmentAlignment
	StreamFormat     wire.StreamFormat
}

// EffectiveMimeType resolves the attach-source open question: when both a
// caps string and a mime type are present, the richer caps variant wins.
func (s Source) EffectiveMimeType() string {
	if s.Caps != "" {
		return s.Caps
	}
	return s.MimeType
}

// Segment is the per-sample payload forwarded from client to server,
// described by spec.md §3. Data is a pointer into the shared-memory region
// rather than an owned copy: (Offset, Length) are byte ranges inside the
// session's audio or video sub-buffer, resolved by shm.Buffer.
type Segment struct {
	SourceType        Type
	PTS               int64 // presentation timestamp, nanoseconds
	DTS               int64 // decode timestamp, nanoseconds
	Duration          int64
	Offset            uint32 // byte offset into the source's sub-buffer
	Length            uint32
	IsEncrypted       bool
	MediaKeySessionID int32  // valid when IsEncrypted
	KeyID             []byte // filled in by the client from KeyIdRegistry before writing
	IV                []byte
	SubSamples        []SubSample
}

// SubSample describes one (clear, encrypted) partition of an encrypted
// sample, per CENC subsample encryption.
type SubSample struct {
	ClearBytes     uint32
	EncryptedBytes uint32
}

// HasData reports whether the segment carries a non-empty shared-memory
// payload, i.e. whether Length is greater than zero.
func (s Segment) HasData() bool {
	return s.Length > 0
}
