// Package coordinator implements the client-side PipelineCoordinator named
// in spec.md §4.4: the per-pipeline state machine that gates haveData and
// addSegment, the NeedDataRequest bookkeeping table, and the frame writer
// that packs outgoing samples into shared memory.
package coordinator

import "github.com/rialto-go/rialto/wire"

// State is one of the coordinator's six playback states.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StatePlaying
	StateSeeking
	StateEndOfStream
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuffering:
		return "Buffering"
	case StatePlaying:
		return "Playing"
	case StateSeeking:
		return "Seeking"
	case StateEndOfStream:
		return "EndOfStream"
	case StateFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// nextStateForPlayback implements the Playback.* row of spec.md §4.4's
// transition table. ok is false when the incoming playback state has no
// entry (leaves the coordinator's state unchanged).
func nextStateForPlayback(s wire.PlaybackState) (State, bool) {
	switch s {
	case wire.PlaybackStatePlaying, wire.PlaybackStatePaused:
		return StatePlaying, true
	case wire.PlaybackStateSeeking:
		return StateSeeking, true
	case wire.PlaybackStateStopped:
		return StateIdle, true
	case wire.PlaybackStateFlushed:
		return StateBuffering, true
	case wire.PlaybackStateEndOfStream:
		return StateEndOfStream, true
	case wire.PlaybackStateFailure:
		return StateFailure, true
	default:
		return StateIdle, false
	}
}

// nextStateForNetwork implements the Network.* row of spec.md §4.4's
// transition table.
func nextStateForNetwork(s wire.NetworkState) (State, bool) {
	switch s {
	case wire.NetworkStateBuffering, wire.NetworkStateBufferingProgress, wire.NetworkStateStalled:
		return StateBuffering, true
	case wire.NetworkStateFormatError, wire.NetworkStateNetworkError, wire.NetworkStateDecodeError:
		return StateFailure, true
	default:
		return StateIdle, false
	}
}
