package shmclient

import (
	"testing"

	"golang.org/x/sys/unix"
)

func newTestFd(t *testing.T, size int64) int {
	t.Helper()
	fd, err := unix.MemfdCreate("shmclient-test", 0)
	if err != nil {
		t.Fatalf("memfd_create: %v", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		t.Fatalf("ftruncate: %v", err)
	}
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

func TestMapWriteAtRoundTrips(t *testing.T) {
	fd := newTestFd(t, 4096)
	region, err := Map(fd, 4096)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer region.Close()

	if err := region.WriteAt(100, []byte("hello")); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if string(region.data[100:105]) != "hello" {
		t.Fatalf("unexpected region contents: %q", region.data[100:105])
	}
}

func TestWriteAtRejectsOutOfBounds(t *testing.T) {
	fd := newTestFd(t, 64)
	region, err := Map(fd, 64)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer region.Close()

	if err := region.WriteAt(60, []byte("too long for this region")); err == nil {
		t.Fatal("expected an out-of-bounds write to fail")
	}
}

func TestClearZeroFillsRange(t *testing.T) {
	fd := newTestFd(t, 64)
	region, err := Map(fd, 64)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer region.Close()

	if err := region.WriteAt(0, []byte("xxxxxxxx")); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := region.Clear(0, 8); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for i, b := range region.data[0:8] {
		if b != 0 {
			t.Fatalf("byte %d not cleared: %d", i, b)
		}
	}
}

func TestCloseThenWriteFails(t *testing.T) {
	fd := newTestFd(t, 64)
	region, err := Map(fd, 64)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := region.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := region.WriteAt(0, []byte("x")); err == nil {
		t.Fatal("expected WriteAt on a closed region to fail")
	}
}

func TestSizeReportsMappedLength(t *testing.T) {
	fd := newTestFd(t, 8192)
	region, err := Map(fd, 8192)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer region.Close()
	if region.Size() != 8192 {
		t.Fatalf("expected size 8192, got %d", region.Size())
	}
}
