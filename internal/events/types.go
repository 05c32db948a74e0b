package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Topic() string
	Source() string // Recipe the event concerns; "" for batch-wide events
}

// Topic constants
const (
	TopicCompile = "compile"
	TopicBatch   = "batch"
)

// Event type constants
const (
	EventTypeCompileStarted   = "compile.started"
	EventTypeCompileCompleted = "compile.completed"
	EventTypeCompileFailed    = "compile.failed"
	EventTypeBatchProgress    = "batch.progress"
	EventTypeBreakerChanged   = "batch.breaker"
)

// CompileStartedEvent is published when a recipe starts compiling.
type CompileStartedEvent struct {
	Src       string
	Project   string
	Timestamp time.Time
}

func (e CompileStartedEvent) EventType() string { return EventTypeCompileStarted }
func (e CompileStartedEvent) Topic() string     { return TopicCompile }
func (e CompileStartedEvent) Source() string    { return e.Src }

// CompileCompletedEvent is published when a recipe compiled successfully.
type CompileCompletedEvent struct {
	Src       string
	GraphID   string // Set when the result was stored
	Tasks     int
	Outputs   []string
	Duration  time.Duration
	Timestamp time.Time
}

func (e CompileCompletedEvent) EventType() string { return EventTypeCompileCompleted }
func (e CompileCompletedEvent) Topic() string     { return TopicCompile }
func (e CompileCompletedEvent) Source() string    { return e.Src }

// CompileFailedEvent is published when a recipe fails to load, compile or save.
type CompileFailedEvent struct {
	Src       string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e CompileFailedEvent) EventType() string { return EventTypeCompileFailed }
func (e CompileFailedEvent) Topic() string     { return TopicCompile }
func (e CompileFailedEvent) Source() string    { return e.Src }

// BatchProgressEvent is published whenever a recipe in a batch finishes.
type BatchProgressEvent struct {
	Total     int
	Completed int
	Failed    int
	Pending   int
	Timestamp time.Time
}

func (e BatchProgressEvent) EventType() string { return EventTypeBatchProgress }
func (e BatchProgressEvent) Topic() string     { return TopicBatch }
func (e BatchProgressEvent) Source() string    { return "" }

// BreakerChangedEvent is published when the store-write breaker changes state.
type BreakerChangedEvent struct {
	Name      string
	From      string
	To        string
	Timestamp time.Time
}

func (e BreakerChangedEvent) EventType() string { return EventTypeBreakerChanged }
func (e BreakerChangedEvent) Topic() string     { return TopicBatch }
func (e BreakerChangedEvent) Source() string    { return "" }
