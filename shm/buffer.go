// Package shm implements the server-side shared-memory region described in
// SPEC_FULL.md §4.3: one memfd-backed region divided into fixed-size
// per-session audio/video partitions, shared with clients via a transport
// fd. Partition bookkeeping follows the single-mutex, lock-free-reader
// shape spec.md §4.3 calls for, in the style of
// internal/stream/manager.go's map-under-mutex.
package shm

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

// SourceType selects which sub-region of a partition to address.
type SourceType int

const (
	SourceAudio SourceType = iota
	SourceVideo
)

// PartitionSizes configures the audio/video sub-region capacity shared by
// every partition. Per spec.md §9 Open Question (b), these are policy and
// exposed as configuration with documented defaults.
type PartitionSizes struct {
	AudioBytes uint32
	VideoBytes uint32
}

// DefaultPartitionSizes gives every partition 2 MiB of audio and 6 MiB of
// video; audio carries far less data per demand cycle.
var DefaultPartitionSizes = PartitionSizes{
	AudioBytes: 2 * 1024 * 1024,
	VideoBytes: 6 * 1024 * 1024,
}

// partition describes one mapped session's slice of the shared region.
type partition struct {
	sessionID int32
	audioOff  uint32
	videoOff  uint32
}

// Buffer owns an anonymous memfd-backed region sized to hold maxPartitions
// partitions of the configured sizes, and arbitrates which session owns
// which partition index.
type Buffer struct {
	log    *slog.Logger
	sizes  PartitionSizes
	stride uint32 // bytes per partition = sizes.AudioBytes + sizes.VideoBytes

	fd   int
	data []byte // mmap'd view over the whole region

	mu         sync.Mutex
	partitions []*partition // index -> partition, nil if free
	bySession  map[int32]int
}

// New creates a Buffer with room for maxPartitions sessions. It allocates
// and maps a single memfd of size maxPartitions*(sizes.AudioBytes+sizes.VideoBytes).
// Construction failures are returned rather than panicking, per
// SPEC_FULL.md §7 kind 4 (Resource).
func New(maxPartitions int, sizes PartitionSizes, log *slog.Logger) (*Buffer, error) {
	if log == nil {
		log = slog.Default()
	}
	if maxPartitions <= 0 {
		return nil, fmt.Errorf("shm: maxPartitions must be positive, got %d", maxPartitions)
	}
	stride := sizes.AudioBytes + sizes.VideoBytes
	total := uint64(stride) * uint64(maxPartitions)

	fd, err := unix.MemfdCreate("rialto-shm", 0)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(total)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate to %d bytes: %w", total, err)
	}

	data, err := unix.Mmap(fd, 0, int(total), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}

	b := &Buffer{
		log:        log.With("component", "shm.Buffer"),
		sizes:      sizes,
		stride:     stride,
		fd:         fd,
		data:       data,
		partitions: make([]*partition, maxPartitions),
		bySession:  make(map[int32]int),
	}
	b.log.Info("shared memory region mapped", "fd", fd, "size", total, "partitions", maxPartitions)
	return b, nil
}

// Close unmaps and closes the underlying memfd. The Buffer must not be used
// afterward.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return fmt.Errorf("shm: munmap: %w", err)
		}
		b.data = nil
	}
	return unix.Close(b.fd)
}

// Fd returns the memfd shared with clients via transport ancillary data.
// Stable for the lifetime of the Buffer.
func (b *Buffer) Fd() int { return b.fd }

// Size returns the total region size in bytes.
func (b *Buffer) Size() int64 { return int64(b.stride) * int64(len(b.partitions)) }

// MapPartition assigns a free partition index to sessionID. Fails if no
// partition is free, or if the session already has one mapped.
func (b *Buffer) MapPartition(sessionID int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bySession[sessionID]; ok {
		return fmt.Errorf("shm: session %d already has a mapped partition", sessionID)
	}

	for idx, p := range b.partitions {
		if p != nil {
			continue
		}
		base := uint32(idx) * b.stride
		np := &partition{
			sessionID: sessionID,
			audioOff:  base,
			videoOff:  base + b.sizes.AudioBytes,
		}
		b.partitions[idx] = np
		b.bySession[sessionID] = idx
		b.log.Debug("partition mapped", "session", sessionID, "index", idx)
		return nil
	}
	return fmt.Errorf("shm: no free partition for session %d (capacity %d)", sessionID, len(b.partitions))
}

// UnmapPartition returns sessionID's partition to the free pool and
// zero-fills its bytes so the next occupant starts clean.
func (b *Buffer) UnmapPartition(sessionID int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.bySession[sessionID]
	if !ok {
		return fmt.Errorf("shm: session %d has no mapped partition", sessionID)
	}
	base := uint32(idx) * b.stride
	clear(b.data[base : base+b.stride])

	b.partitions[idx] = nil
	delete(b.bySession, sessionID)
	b.log.Debug("partition unmapped", "session", sessionID, "index", idx)
	return nil
}

// partitionFor resolves sessionID's partition under the table lock and
// returns its per-source offset/length. Callers outside this file should
// use GetDataOffset/GetMaxDataLen/GetDataPtr instead.
func (b *Buffer) partitionFor(sessionID int32, src SourceType) (offset, length uint32, ok bool) {
	b.mu.Lock()
	idx, present := b.bySession[sessionID]
	b.mu.Unlock()
	if !present {
		return 0, 0, false
	}
	p := b.partitions[idx]
	if p == nil {
		return 0, 0, false
	}
	// p's fields never change while mapped (invariant in SPEC_FULL.md §4.3),
	// so reading them here without holding the lock is safe.
	switch src {
	case SourceAudio:
		return p.audioOff, b.sizes.AudioBytes, true
	case SourceVideo:
		return p.videoOff, b.sizes.VideoBytes, true
	default:
		return 0, 0, false
	}
}

// GetDataOffset returns the byte offset of sessionID's src sub-region from
// the start of the shared region.
func (b *Buffer) GetDataOffset(sessionID int32, src SourceType) (uint32, error) {
	off, _, ok := b.partitionFor(sessionID, src)
	if !ok {
		return 0, fmt.Errorf("shm: no mapped partition for session %d", sessionID)
	}
	return off, nil
}

// GetMaxDataLen returns the capacity in bytes of sessionID's src sub-region.
func (b *Buffer) GetMaxDataLen(sessionID int32, src SourceType) (uint32, error) {
	_, length, ok := b.partitionFor(sessionID, src)
	if !ok {
		return 0, fmt.Errorf("shm: no mapped partition for session %d", sessionID)
	}
	return length, nil
}

// GetDataPtr returns a byte slice over sessionID's src sub-region, backed
// by the mmap'd region. Writes by the server (e.g. test fixtures) and reads
// by the server's sample path go through this slice directly.
func (b *Buffer) GetDataPtr(sessionID int32, src SourceType) ([]byte, error) {
	off, length, ok := b.partitionFor(sessionID, src)
	if !ok {
		return nil, fmt.Errorf("shm: no mapped partition for session %d", sessionID)
	}
	return b.data[off : off+length], nil
}

// ClearData zero-fills sessionID's src sub-region without unmapping it.
func (b *Buffer) ClearData(sessionID int32, src SourceType) error {
	off, length, ok := b.partitionFor(sessionID, src)
	if !ok {
		return fmt.Errorf("shm: no mapped partition for session %d", sessionID)
	}
	clear(b.data[off : off+length])
	return nil
}

// ReadAt copies length bytes starting at offset within sessionID's src
// sub-region, bounds-checked against GetMaxDataLen. This is the read side
// of the client→server sample path: the client writes compressed samples
// into its mmap'd view of the same region, and the server reads them back
// here once HaveData is acknowledged.
func (b *Buffer) ReadAt(sessionID int32, src SourceType, offset, length uint32) ([]byte, error) {
	base, capacity, ok := b.partitionFor(sessionID, src)
	if !ok {
		return nil, fmt.Errorf("shm: no mapped partition for session %d", sessionID)
	}
	if offset+length > capacity {
		return nil, fmt.Errorf("shm: read [%d,%d) exceeds capacity %d for session %d", offset, offset+length, capacity, sessionID)
	}
	out := make([]byte, length)
	copy(out, b.data[base+offset:base+offset+length])
	return out, nil
}
