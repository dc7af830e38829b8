// Package player implements the owning WorkerThread and GstDispatcherThread
// for a session's PlayerContext, per SPEC_FULL.md §4.1–§4.2. The
// PlayerContext type itself, its EventSink callback surface, and the Task
// interface live in player/tasks (see that package's doc comment for why);
// this package re-exports them under their spec names so callers can write
// player.Context, player.EventSink, player.Task as SPEC_FULL.md's component
// mapping names them.
package player

import "github.com/rialto-go/rialto/player/tasks"

type Context = tasks.Context
type EventSink = tasks.EventSink
type Task = tasks.Task
type PipelineState = tasks.PipelineState

const (
	PipelineNull    = tasks.PipelineNull
	PipelineReady   = tasks.PipelineReady
	PipelinePaused  = tasks.PipelinePaused
	PipelinePlaying = tasks.PipelinePlaying
	PipelineSeeking = tasks.PipelineSeeking
	PipelineFailure = tasks.PipelineFailure
)

// NewContext constructs a Context in PipelineNull bound to pipeline.
var NewContext = tasks.NewContext
