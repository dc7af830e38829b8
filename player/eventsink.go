package player

import "github.com/rialto-go/rialto/player/tasks"

// NullEventSink discards every callback; see tasks.NullEventSink.
type NullEventSink = tasks.NullEventSink
