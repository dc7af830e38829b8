package wire

import "testing"

func TestLoadTypeRoundTrip(t *testing.T) {
	for _, v := range []uint64{wireLoadTypeUnknown, wireLoadTypeURL, wireLoadTypeMSE} {
		if got := ToWireLoadType(FromWireLoadType(v)); got != v {
			t.Errorf("LoadType round-trip for %d: got %d", v, got)
		}
	}
}

func TestMediaSourceTypeRoundTrip(t *testing.T) {
	for _, v := range []uint64{wireSourceTypeUnknown, wireSourceTypeAudio, wireSourceTypeVideo} {
		if got := ToWireMediaSourceType(FromWireMediaSourceType(v)); got != v {
			t.Errorf("MediaSourceType round-trip for %d: got %d", v, got)
		}
	}
}

func TestPlaybackStateRoundTrip(t *testing.T) {
	for v := uint64(wirePlaybackUnknown); v <= wirePlaybackFlushed; v++ {
		if got := ToWirePlaybackState(FromWirePlaybackState(v)); got != v {
			t.Errorf("PlaybackState round-trip for %d: got %d", v, got)
		}
	}
}

func TestNetworkStateRoundTrip(t *testing.T) {
	for v := uint64(wireNetworkUnknown); v <= wireNetworkFailure; v++ {
		if got := ToWireNetworkState(FromWireNetworkState(v)); got != v {
			t.Errorf("NetworkState round-trip for %d: got %d", v, got)
		}
	}
}

func TestUnknownWireValueMapsToUnknown(t *testing.T) {
	if got := FromWirePlaybackState(9999); got != PlaybackStateUnknown {
		t.Errorf("expected Unknown for out-of-range wire value, got %v", got)
	}
	if got := FromWireNetworkState(9999); got != NetworkStateUnknown {
		t.Errorf("expected Unknown for out-of-range wire value, got %v", got)
	}
}
