// Package shmclient implements the client side of the shared-memory sample
// transport described in SPEC_FULL.md §4.3: the client receives the
// server's memfd over the control channel as ancillary data (see
// transport.Channel.RecvFd), mmaps it read-write, and from then on writes
// compressed samples directly into the offsets the server hands out in
// each NeedMediaData's shmInfo, per spec.md §6.
//
// Unlike shm.Buffer, which arbitrates many sessions' partitions inside one
// process, a client only ever owns the single region fd handed to it for
// its one session, so there is no partition table here.
package shmclient

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Region is a client's mmap'd view over the server's shared-memory fd. The
// zero value is not usable; construct with Map.
type Region struct {
	mu   sync.Mutex
	data []byte
	fd   int
}

// Map mmaps size bytes of fd read-write. The caller retains ownership of
// fd; Close only unmaps, it does not close fd.
func Map(fd int, size int64) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmclient: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmclient: mmap: %w", err)
	}
	return &Region{data: data, fd: fd}, nil
}

// Close unmaps the region. The Region must not be used afterward.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("shmclient: munmap: %w", err)
	}
	r.data = nil
	return nil
}

// WriteAt copies data into the region starting at offset, bounds-checked
// against the region's total size. Offsets come from the ShmInfo the
// server attaches to each NeedMediaData event.
func (r *Region) WriteAt(offset uint32, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return fmt.Errorf("shmclient: region is closed")
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(r.data)) {
		return fmt.Errorf("shmclient: write [%d,%d) exceeds region size %d", offset, end, len(r.data))
	}
	copy(r.data[offset:], data)
	return nil
}

// Clear zero-fills length bytes starting at offset.
func (r *Region) Clear(offset, length uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return fmt.Errorf("shmclient: region is closed")
	}
	end := uint64(offset) + uint64(length)
	if end > uint64(len(r.data)) {
		return fmt.Errorf("shmclient: clear [%d,%d) exceeds region size %d", offset, end, len(r.data))
	}
	clear(r.data[offset:end])
	return nil
}

// Size reports the mapped region's total size in bytes.
func (r *Region) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
