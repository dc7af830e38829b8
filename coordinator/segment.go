package coordinator

import "github.com/rialto-go/rialto/wire"

// SubSample describes one (clear, encrypted) partition of an encrypted
// sample, mirroring mediasource.SubSample on the server side.
type SubSample struct {
	ClearBytes     uint32
	EncryptedBytes uint32
}

// MediaSegment is the client-side sample payload passed to AddSegment, per
// spec.md §3's MediaSegment description. Unlike the server's
// mediasource.Segment, Data is an owned byte slice: the client hasn't
// written it into shared memory yet, that's the FrameWriter's job.
type MediaSegment struct {
	SourceType        wire.MediaSourceType
	PTS               int64
	DTS               int64
	Duration          int64
	Data              []byte
	IsEncrypted       bool
	MediaKeySessionID int32
	KeyID             []byte // filled in by AddSegment from the KeyIdRegistry, not by the caller
	IV                []byte
	SubSamples        []SubSample
}
