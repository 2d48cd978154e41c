// Package streamparser implements a block-oriented state machine that
// reassembles partial-JSON fragments from a server-sent-event stream into
// typed StreamEvents, accumulating per-index tool-use and thinking buffers
// as a Handle(event) switch drives them to completion.
package streamparser

import (
	"github.com/unfazed-dev/a2ui-adapter/a2ui"
	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// ServerEvent is the minimal server-sent-event shape this package decodes.
// Unknown event types are accepted and ignored rather than treated as
// errors.
type ServerEvent struct {
	Type string `json:"type"`
	Index *int `json:"index,omitempty"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`
	Delta *Delta `json:"delta,omitempty"`
	Error *ServerError `json:"error,omitempty"`
}

// ContentBlock describes the block started by a content_block_start event.
type ContentBlock struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Delta is the payload of a content_block_delta event. Exactly one of
// PartialJSON, Text, Thinking is populated, selected by Type.
type Delta struct {
	Type string `json:"type"`
	PartialJSON string `json:"partial_json,omitempty"`
	Text string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// ServerError is the payload of a top-level error event.
type ServerError struct {
	Message string `json:"message"`
}

// StreamEvent is the tagged union the parser emits.
type StreamEvent interface {
	isStreamEvent()
	Kind() string
}

// DeltaEvent carries a raw, opaque server event through untouched.
type DeltaEvent struct{ Raw ServerEvent }

func (DeltaEvent) isStreamEvent() {}
func (DeltaEvent) Kind() string { return "delta" }

// TextEvent carries one text chunk, emitted eagerly as deltas arrive.
type TextEvent struct{ Text string }

func (TextEvent) isStreamEvent() {}
func (TextEvent) Kind() string { return "text" }

// ThinkingEvent carries one reasoning chunk. IsComplete is true only for the
// final emission at content_block_stop.
type ThinkingEvent struct {
	Text string
	IsComplete bool
}

func (ThinkingEvent) isStreamEvent() {}
func (ThinkingEvent) Kind() string { return "thinking" }

// A2uiMessageEvent carries one parsed A2UI message.
type A2uiMessageEvent struct{ Message a2ui.Message }

func (A2uiMessageEvent) isStreamEvent() {}
func (A2uiMessageEvent) Kind() string { return "a2ui_message" }

// CompleteEvent signals the end of the message (message_stop).
type CompleteEvent struct{}

func (CompleteEvent) isStreamEvent() {}
func (CompleteEvent) Kind() string { return "complete" }

// ErrorEvent carries a non-fatal-to-the-stream error (a malformed tool_use
// block) or a fatal one (a top-level error event, which also ends the
// stream).
type ErrorEvent struct {
	Message string
	ErrKind xerrors.Kind
}

func (ErrorEvent) isStreamEvent() {}
func (ErrorEvent) Kind() string { return "error" }

// errorEventFrom builds an ErrorEvent from a Go error, defaulting to
// KindStream when err is not already an *xerrors.Error.
func errorEventFrom(err error) ErrorEvent {
	if xe, ok := xerrors.As(err); ok {
		return ErrorEvent{Message: xe.Error(), ErrKind: xe.Kind()}
	}
	return ErrorEvent{Message: err.Error(), ErrKind: xerrors.KindStream}
}
