package streamparser

// Parser is the event-driven state machine that reassembles ServerEvents
// into StreamEvents. It is not safe for concurrent use by multiple
// goroutines; callers drive it from a single reader loop.
type Parser struct {
	blocks map[int]blockHandler
	ended bool
}

// New constructs a Parser ready to consume a fresh event stream.
func New() *Parser {
	return &Parser{blocks: make(map[int]blockHandler)}
}

// Handle consumes one ServerEvent and returns the StreamEvents it produces,
// in emission order. Once the stream has ended (message_stop or a top-level
// error event), further calls return nil.
func (p *Parser) Handle(ev ServerEvent) []StreamEvent {
	if p.ended {
		return nil
	}
	switch ev.Type {
	case "message_start", "message_delta", "ping":
		return nil

	case "content_block_start":
		if ev.Index == nil || ev.ContentBlock == nil {
			return []StreamEvent{errorEventFrom(errMissingField("content_block_start", "index/content_block"))}
		}
		p.blocks[*ev.Index] = newBlockHandler(*ev.ContentBlock)
		return nil

	case "content_block_delta":
		if ev.Index == nil || ev.Delta == nil {
			return []StreamEvent{errorEventFrom(errMissingField("content_block_delta", "index/delta"))}
		}
		h, ok := p.blocks[*ev.Index]
		if !ok {
			return nil
		}
		return h.onDelta(*ev.Delta)

	case "content_block_stop":
		if ev.Index == nil {
			return []StreamEvent{errorEventFrom(errMissingField("content_block_stop", "index"))}
		}
		h, ok := p.blocks[*ev.Index]
		if !ok {
			return nil
		}
		delete(p.blocks, *ev.Index)
		return h.onStop()

	case "message_stop":
		p.ended = true
		p.releaseBlocks()
		return []StreamEvent{CompleteEvent{}}

	case "error":
		p.ended = true
		p.releaseBlocks()
		msg := "stream error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return []StreamEvent{ErrorEvent{Message: msg}}

	default:
		// Unknown event types are accepted and ignored.
		return nil
	}
}

// Cancel releases all open block handlers immediately. Callers invoke this
// when the consumer drops the output stream; the caller is responsible for
// ceasing to read from the input stream.
func (p *Parser) Cancel() {
	p.ended = true
	p.releaseBlocks()
}

// Reset clears all open block handlers and the ended flag, making the
// Parser ready for a new stream. Reset is idempotent.
func (p *Parser) Reset() {
	p.releaseBlocks()
	p.ended = false
}

func (p *Parser) releaseBlocks() {
	for k := range p.blocks {
		delete(p.blocks, k)
	}
}

func newBlockHandler(cb ContentBlock) blockHandler {
	switch cb.Type {
	case "tool_use":
		return newToolUseHandler(cb.Name)
	case "thinking":
		return newThinkingHandler()
	default: // "text" and anything unrecognized degrade to text semantics
		return newTextHandler()
	}
}
