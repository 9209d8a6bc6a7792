// Package stream manages long-lived server-sent-event connections to the
// BrainRH backend: one multiplexed session per endpoint, fan-out to any
// number of listeners, and lifecycle-scoped bindings for UI consumers.
package stream

import "encoding/json"

// Well-known event topics emitted by the backend pipelines.
const (
	// TopicMessage is the default topic for frames without an "event:" line.
	TopicMessage = "message"
	// TopicOpen is delivered once when the transport connects.
	TopicOpen = "open"
	// TopicError carries transport failures (Err set) and application
	// error frames (Data set).
	TopicError = "error"

	TopicProgress  = "progress"
	TopicResult    = "result"
	TopicDuplicate = "duplicate"
	TopicDone      = "done"
)

// Event is a single decoded frame from a server-push stream.
type Event struct {
	// Topic is the event name from the frame's "event:" line, or
	// TopicMessage if the frame had none.
	Topic string
	// Data is the frame's JSON payload. Nil for synthetic open/error events.
	Data json.RawMessage
	// Err is set on transport-level error events only.
	Err error
}
