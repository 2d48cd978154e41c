// Package generator implements the consumer-facing Facade that owns a
// Handler and a stream parser, serializes one in-flight request at a
// time, and routes parser StreamEvents onto three broadcast streams plus
// a processing-state signal.
package generator

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/unfazed-dev/a2ui-adapter/a2ui"
	"github.com/unfazed-dev/a2ui-adapter/handler"
	"github.com/unfazed-dev/a2ui-adapter/streamparser"
)

// ErrRequestAlreadyInProgress is returned by SendRequest when a prior
// request has not yet reached a terminal event.
var ErrRequestAlreadyInProgress = &inProgressError{}

// ErrDisposed is returned by SendRequest once the facade has been disposed.
var ErrDisposed = &disposedError{}

type inProgressError struct{}

func (*inProgressError) Error() string { return "generator: a request is already in progress" }

type disposedError struct{}

func (*disposedError) Error() string { return "generator: facade has been disposed" }

// ContentGeneratorError is the type published on the facade's error
// stream: it wraps whatever terminal error ended the request (a stream
// parser ErrorEvent or ErrRequestAlreadyInProgress)
// together with the stack at the point the facade observed it, for
// diagnostic logging.
type ContentGeneratorError struct {
	Err error
	StackTrace string
}

func newContentGeneratorError(err error) *ContentGeneratorError {
	return &ContentGeneratorError{Err: err, StackTrace: string(debug.Stack())}
}

func (e *ContentGeneratorError) Error() string { return e.Err.Error() }
func (e *ContentGeneratorError) Unwrap() error { return e.Err }

// HistoryTurn is one prior conversation turn optionally threaded into a
// request.
type HistoryTurn struct {
	Role string
	Content string
}

// subscriberBufferSize matches metrics.subscriberBufferSize's rationale: a
// slow consumer should not stall event routing indefinitely, but should not
// silently drop events during ordinary bursts either.
const subscriberBufferSize = 64

// broadcaster is a minimal many-listener fan-out for one event type T.
type broadcaster[T any] struct {
	mu sync.Mutex
	listeners map[int]chan T
	nextID int
	closed bool
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{listeners: make(map[int]chan T)}
}

func (b *broadcaster[T]) subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, subscriberBufferSize)
	id := b.nextID
	b.nextID++
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.listeners[id] = ch
	return ch, func() {
		b.mu.Lock()
		if c, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(c)
		}
		b.mu.Unlock()
	}
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.listeners {
		select {
		case ch <- v:
		default:
			// Slow consumer: drop rather than block event routing for
			// every other listener.
		}
	}
}

func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.listeners {
		delete(b.listeners, id)
		close(ch)
	}
}

// Facade is the Content Generator.
type Facade struct {
	h *handler.Handler

	a2uiMessages *broadcaster[a2ui.Message]
	text *broadcaster[string]
	thinking *broadcaster[ThinkingChunk]
	errors *broadcaster[error]

	mu sync.Mutex
	processing bool
	cancelInFlight context.CancelFunc
	disposed bool
}

// ThinkingChunk is one reasoning-stream emission.
type ThinkingChunk struct {
	Text string
	IsComplete bool
}

// New constructs a Facade around h.
func New(h *handler.Handler) *Facade {
	return &Facade{
		h: h,
		a2uiMessages: newBroadcaster[a2ui.Message](),
		text: newBroadcaster[string](),
		thinking: newBroadcaster[ThinkingChunk](),
		errors: newBroadcaster[error](),
	}
}

// A2uiMessages subscribes to the A2UI message stream.
func (f *Facade) A2uiMessages() (<-chan a2ui.Message, func()) { return f.a2uiMessages.subscribe() }

// TextResponses subscribes to the text stream.
func (f *Facade) TextResponses() (<-chan string, func()) { return f.text.subscribe() }

// Thinking subscribes to the optional reasoning stream.
func (f *Facade) Thinking() (<-chan ThinkingChunk, func()) { return f.thinking.subscribe() }

// Errors subscribes to the error stream.
func (f *Facade) Errors() (<-chan error, func()) { return f.errors.subscribe() }

// IsProcessing reports whether a request is currently in flight.
func (f *Facade) IsProcessing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processing
}

// SendRequest runs message (plus optional history) through the Handler and
// routes its StreamEvents onto the facade's broadcast streams, returning
// once a terminal event (Complete or Error) has been routed. If a prior
// request is still in flight, it returns ErrRequestAlreadyInProgress without
// starting a new one.
func (f *Facade) SendRequest(ctx context.Context, message string, history []HistoryTurn, maxTokens int) error {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return ErrDisposed
	}
	if f.processing {
		f.mu.Unlock()
		f.errors.publish(newContentGeneratorError(ErrRequestAlreadyInProgress))
		return ErrRequestAlreadyInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.processing = true
	f.cancelInFlight = cancel
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.processing = false
		f.cancelInFlight = nil
		f.mu.Unlock()
	}()

	req := handler.ApiRequest{MaxTokens: maxTokens}
	for _, turn := range history {
		req.Messages = append(req.Messages, handler.Message{Role: turn.Role, Content: turn.Content})
	}
	req.Messages = append(req.Messages, handler.Message{Role: "user", Content: message})

	events := f.h.CreateStream(runCtx, req)
	for ev := range events {
		f.route(ev)
	}
	return nil
}

// route implements the event routing table.
func (f *Facade) route(ev streamparser.StreamEvent) {
	switch e := ev.(type) {
	case streamparser.A2uiMessageEvent:
		f.a2uiMessages.publish(e.Message)
	case streamparser.TextEvent:
		f.text.publish(e.Text)
	case streamparser.ThinkingEvent:
		f.thinking.publish(ThinkingChunk{Text: e.Text, IsComplete: e.IsComplete})
	case streamparser.ErrorEvent:
		f.errors.publish(newContentGeneratorError(&streamEventError{msg: e.Message, kind: string(e.ErrKind)}))
	case streamparser.DeltaEvent, streamparser.CompleteEvent:
		// Not surfaced to consumers.
	}
}

type streamEventError struct {
	msg string
	kind string
}

func (e *streamEventError) Error() string { return e.kind + ": " + e.msg }

// Cancel cancels the in-flight request, if any. It is a no-op otherwise.
func (f *Facade) Cancel() {
	f.mu.Lock()
	cancel := f.cancelInFlight
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Dispose closes all broadcast streams and cancels any in-flight request.
// Subsequent SendRequest calls return ErrDisposed without doing anything;
// subsequent Dispose calls are no-ops.
func (f *Facade) Dispose() {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	f.disposed = true
	cancel := f.cancelInFlight
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.a2uiMessages.close()
	f.text.close()
	f.thinking.close()
	f.errors.close()
}
