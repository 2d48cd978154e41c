package streamparser

import (
	"encoding/json"
	"strings"

	"github.com/unfazed-dev/a2ui-adapter/a2ui"
)

// blockHandler accumulates one content block's fragments and finalizes
// them into zero or more StreamEvents at content_block_stop.
type blockHandler interface {
	// onDelta handles one content_block_delta for this block, returning any
	// StreamEvents to emit immediately (text/thinking deltas flush eagerly;
	// tool_use deltas buffer and return nothing).
	onDelta(d Delta) []StreamEvent
	// onStop finalizes the block, returning any StreamEvents produced at
	// block completion.
	onStop() []StreamEvent
}

// toolUseHandler buffers partial-JSON fragments for a tool_use block until
// content_block_stop, since the JSON is only valid whole.
type toolUseHandler struct {
	toolName string
	fragments []string
}

func newToolUseHandler(name string) *toolUseHandler {
	return &toolUseHandler{toolName: name}
}

func (h *toolUseHandler) onDelta(d Delta) []StreamEvent {
	if d.Type == "input_json_delta" {
		h.fragments = append(h.fragments, d.PartialJSON)
	}
	return nil
}

func (h *toolUseHandler) onStop() []StreamEvent {
	raw := strings.Join(h.fragments, "")
	if raw == "" {
		raw = "{}"
	}
	msg, err := a2ui.ParseToolUse(h.toolName, json.RawMessage(raw))
	if err != nil {
		// On JSON parse / shape failure, emit an Error event but do not
		// terminate the stream.
		return []StreamEvent{errorEventFrom(err)}
	}
	if msg == nil {
		// Unknown tool name: emit nothing for this block.
		return nil
	}
	return []StreamEvent{A2uiMessageEvent{Message: msg}}
}

// textHandler emits each delta eagerly and finalizes silently.
type textHandler struct{}

func newTextHandler() *textHandler { return &textHandler{} }

func (h *textHandler) onDelta(d Delta) []StreamEvent {
	if d.Type == "text_delta" && d.Text != "" {
		return []StreamEvent{TextEvent{Text: d.Text}}
	}
	return nil
}

func (h *textHandler) onStop() []StreamEvent { return nil }

// thinkingHandler emits each delta eagerly and additionally emits one final
// Thinking event with IsComplete=true at stop.
type thinkingHandler struct {
	buf strings.Builder
}

func newThinkingHandler() *thinkingHandler { return &thinkingHandler{} }

func (h *thinkingHandler) onDelta(d Delta) []StreamEvent {
	if d.Type == "thinking_delta" && d.Thinking != "" {
		h.buf.WriteString(d.Thinking)
		return []StreamEvent{ThinkingEvent{Text: d.Thinking}}
	}
	return nil
}

func (h *thinkingHandler) onStop() []StreamEvent {
	return []StreamEvent{ThinkingEvent{Text: h.buf.String(), IsComplete: true}}
}
