package coordinator

import (
	"encoding/binary"
	"fmt"

	"github.com/rialto-go/rialto/shmclient"
	"github.com/rialto-go/rialto/wire"
)

// AddSegmentStatus is FrameWriter.WriteFrame's result, per spec.md §4.4.
type AddSegmentStatus int

const (
	AddSegmentOk AddSegmentStatus = iota
	AddSegmentNoSpace
	AddSegmentError
)

// frameMetaHeaderSize is the fixed-size metadata record FrameWriter appends
// per frame: pts(8) dts(8) duration(8) dataOffset(4) dataLength(4)
// encrypted(1) keySessionId(4).
const frameMetaHeaderSize = 37

// FrameWriter packs successive MediaSegments into a NeedDataRequest's
// shmInfo sub-regions: a small fixed-size metadata record per frame in the
// metadata region, and the raw sample bytes in the media region. It is
// constructed lazily on the first AddSegment call against a given request,
// per spec.md §4.4.
type FrameWriter struct {
	region *shmclient.Region
	info   wire.ShmInfo

	metaCursor uint32
	dataCursor uint32
	count      uint32
}

// NewFrameWriter constructs a FrameWriter over region using the byte
// ranges described by info.
func NewFrameWriter(region *shmclient.Region, info wire.ShmInfo) *FrameWriter {
	return &FrameWriter{region: region, info: info}
}

// Count reports the number of frames written so far, forwarded to the
// server as haveData's numFrames per spec.md §4.4.
func (f *FrameWriter) Count() uint32 { return f.count }

// WriteFrame appends seg's metadata and data to the region, returning
// NoSpace if either sub-region lacks room rather than partially writing.
// When the request's shmInfo carries no metadata sub-region (MaxMetadataBytes
// == 0, the server's default per session.Session.buildShmInfo, since the
// server-side sample path doesn't parse per-frame metadata), the metadata
// record is skipped entirely and only the raw payload is written.
func (f *FrameWriter) WriteFrame(seg MediaSegment) (AddSegmentStatus, error) {
	if f.region == nil {
		return AddSegmentError, fmt.Errorf("coordinator: frame writer has no backing region")
	}
	writeMeta := f.info.MaxMetadataBytes > 0
	if writeMeta && f.metaCursor+frameMetaHeaderSize > f.info.MaxMetadataBytes {
		return AddSegmentNoSpace, nil
	}
	dataLen := uint32(len(seg.Data))
	if f.dataCursor+dataLen > f.info.MaxMediaBytes {
		return AddSegmentNoSpace, nil
	}

	if !writeMeta {
		if dataLen > 0 {
			if err := f.region.WriteAt(f.info.MediaDataOffset+f.dataCursor, seg.Data); err != nil {
				return AddSegmentError, err
			}
		}
		f.dataCursor += dataLen
		f.count++
		return AddSegmentOk, nil
	}

	header := make([]byte, frameMetaHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], uint64(seg.PTS))
	binary.LittleEndian.PutUint64(header[8:16], uint64(seg.DTS))
	binary.LittleEndian.PutUint64(header[16:24], uint64(seg.Duration))
	binary.LittleEndian.PutUint32(header[24:28], f.dataCursor)
	binary.LittleEndian.PutUint32(header[28:32], dataLen)
	if seg.IsEncrypted {
		header[32] = 1
	}
	binary.LittleEndian.PutUint32(header[33:37], uint32(seg.MediaKeySessionID))

	if err := f.region.WriteAt(f.info.MetadataOffset+f.metaCursor, header); err != nil {
		return AddSegmentError, err
	}
	if dataLen > 0 {
		if err := f.region.WriteAt(f.info.MediaDataOffset+f.dataCursor, seg.Data); err != nil {
			return AddSegmentError, err
		}
	}

	f.metaCursor += frameMetaHeaderSize
	f.dataCursor += dataLen
	f.count++
	return AddSegmentOk, nil
}
