package shm

import (
	"testing"
)

func testSizes() PartitionSizes {
	return PartitionSizes{AudioBytes: 4096, VideoBytes: 8192}
}

func TestMapUnmapRoundTrip(t *testing.T) {
	b, err := New(4, testSizes(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.MapPartition(1); err != nil {
		t.Fatalf("MapPartition: %v", err)
	}
	off, err := b.GetDataOffset(1, SourceAudio)
	if err != nil {
		t.Fatalf("GetDataOffset: %v", err)
	}
	if err := b.UnmapPartition(1); err != nil {
		t.Fatalf("UnmapPartition: %v", err)
	}

	if err := b.MapPartition(2); err != nil {
		t.Fatalf("MapPartition after unmap: %v", err)
	}
	off2, err := b.GetDataOffset(2, SourceAudio)
	if err != nil {
		t.Fatalf("GetDataOffset: %v", err)
	}
	if off != off2 {
		t.Errorf("expected the freed partition to be reused at the same offset: %d != %d", off, off2)
	}
}

func TestPartitionsAreDisjoint(t *testing.T) {
	b, err := New(3, testSizes(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	type rng struct{ start, end uint32 }
	var ranges []rng
	for _, sid := range []int32{10, 20, 30} {
		if err := b.MapPartition(sid); err != nil {
			t.Fatalf("MapPartition(%d): %v", sid, err)
		}
		for _, src := range []SourceType{SourceAudio, SourceVideo} {
			off, err := b.GetDataOffset(sid, src)
			if err != nil {
				t.Fatal(err)
			}
			length, err := b.GetMaxDataLen(sid, src)
			if err != nil {
				t.Fatal(err)
			}
			ranges = append(ranges, rng{off, off + length})
		}
	}

	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b2 := ranges[i], ranges[j]
			if a.start < b2.end && b2.start < a.end {
				t.Errorf("ranges overlap: [%d,%d) and [%d,%d)", a.start, a.end, b2.start, b2.end)
			}
		}
	}
}

func TestMapFailsWhenFull(t *testing.T) {
	b, err := New(1, testSizes(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.MapPartition(1); err != nil {
		t.Fatalf("MapPartition: %v", err)
	}
	if err := b.MapPartition(2); err == nil {
		t.Errorf("expected MapPartition to fail when no partitions are free")
	}
}

func TestReadAtBeyondMaxDataLenFails(t *testing.T) {
	b, err := New(2, testSizes(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.MapPartition(1); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadAt(1, SourceAudio, 0, testSizes().AudioBytes+1); err == nil {
		t.Errorf("expected ReadAt beyond capacity to fail")
	}
}

func TestClearDataZeroesWithoutUnmapping(t *testing.T) {
	b, err := New(1, testSizes(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.MapPartition(1); err != nil {
		t.Fatal(err)
	}
	ptr, err := b.GetDataPtr(1, SourceVideo)
	if err != nil {
		t.Fatal(err)
	}
	ptr[0] = 0xAB
	if err := b.ClearData(1, SourceVideo); err != nil {
		t.Fatal(err)
	}
	data, err := b.ReadAt(1, SourceVideo, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0 {
		t.Errorf("expected ClearData to zero the region, got %x", data[0])
	}
}
