package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/unfazed-dev/a2ui-adapter/circuit"
	"github.com/unfazed-dev/a2ui-adapter/log"
	"github.com/unfazed-dev/a2ui-adapter/metrics"
	"github.com/unfazed-dev/a2ui-adapter/ratelimit"
	"github.com/unfazed-dev/a2ui-adapter/retry"
	"github.com/unfazed-dev/a2ui-adapter/streamparser"
	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// DefaultStreamInactivityTimeout is the default stream watchdog timeout (60s).
const DefaultStreamInactivityTimeout = 60 * time.Second

// Handler executes one request end-to-end: request assembly, the
// resilience pipeline, and SSE-to-ServerEvent decoding feeding the Stream
// Parser. A single Handler may be shared across concurrent callers; its
// Breaker and Limiter are mutex-guarded internally.
type Handler struct {
	endpoint string
	transport Transport
	retryPolicy retry.Policy
	breaker *circuit.Breaker
	limiter *ratelimit.Limiter
	collector *metrics.Collector
	logger log.Logger

	streamInactivityTimeout time.Duration
	authToken string
	extraHeaders map[string]string
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithLogger overrides the no-op default logger.
func WithLogger(l log.Logger) Option { return func(h *Handler) { h.logger = l } }

// WithMetrics attaches a metrics.Collector; events are emitted to it
// throughout the request lifecycle.
func WithMetrics(c *metrics.Collector) Option { return func(h *Handler) { h.collector = c } }

// WithStreamInactivityTimeout overrides DefaultStreamInactivityTimeout.
func WithStreamInactivityTimeout(d time.Duration) Option {
	return func(h *Handler) { h.streamInactivityTimeout = d }
}

// WithAuthToken sets a static bearer token attached to every request.
func WithAuthToken(token string) Option { return func(h *Handler) { h.authToken = token } }

// WithHeaders sets caller-supplied extra headers attached to every request.
func WithHeaders(headers map[string]string) Option {
	return func(h *Handler) { h.extraHeaders = headers }
}

// New constructs a Handler. endpoint must have an http or https scheme
// (the precondition).
func New(endpoint string, transport Transport, retryPolicy retry.Policy, breaker *circuit.Breaker, limiter *ratelimit.Limiter, opts ...Option) (*Handler, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("handler: endpoint must have http or https scheme, got %q", endpoint)
	}
	h := &Handler{
		endpoint: endpoint,
		transport: transport,
		retryPolicy: retryPolicy,
		breaker: breaker,
		limiter: limiter,
		logger: log.Nop(),
		streamInactivityTimeout: DefaultStreamInactivityTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// CreateStream executes one request and returns the
// StreamEvents it produces. The channel is closed once a terminal event
// (Complete or Error) has been sent, or when ctx is canceled.
func (h *Handler) CreateStream(ctx context.Context, req ApiRequest) <-chan streamparser.StreamEvent {
	out := make(chan streamparser.StreamEvent)
	go h.run(ctx, req, out)
	return out
}

func (h *Handler) run(ctx context.Context, req ApiRequest, out chan<- streamparser.StreamEvent) {
	defer close(out)

	requestID := uuid.NewString()
	start := time.Now()
	h.emit(metrics.NewRequestStart(requestID, h.endpoint, derefString(req.Model)))

	totalRetries := 0
	maxAttempts := h.retryPolicy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if h.breaker != nil {
			if err := h.breaker.CheckState(); err != nil {
				h.sendError(ctx, out, err)
				h.emit(metrics.NewRequestFailure(requestID, time.Since(start), string(xerrors.KindCircuitBreakerOpen), err.Error(), 0, totalRetries, true))
				return
			}
		}

		outcome := h.attempt(ctx, requestID, req, out)

		switch {
		case outcome.success:
			if h.breaker != nil {
				h.breaker.RecordSuccess()
			}
			h.emit(metrics.NewRequestSuccess(requestID, time.Since(start), totalRetries, 0, 0))
			return

		case outcome.err == nil || ctx.Err() != nil:
			// Canceled context or similar: nothing more to do, no event to
			// emit (the consumer already dropped the stream).
			return

		default:
			xe, _ := xerrors.As(outcome.err)
			if h.breaker != nil {
				h.breaker.RecordFailure()
			}

			isRateLimit := xe != nil && xe.Kind() == xerrors.KindRateLimit
			retriesLeft := attempt < maxAttempts-1

			if isRateLimit {
				retryAfter := ratelimit.ParseRetryAfter(xe.RetryAfter())
				if h.limiter != nil {
					h.limiter.RecordRateLimit(429, retryAfter)
				}
				wait := time.Duration(0)
				if retryAfter != nil {
					wait = *retryAfter
				}
				h.emit(metrics.NewRateLimit(requestID, wait, xe.RetryAfter()))
				if !retriesLeft {
					h.sendError(ctx, out, outcome.err)
					h.emit(metrics.NewRequestFailure(requestID, time.Since(start), string(xerrors.KindRateLimit), outcome.err.Error(), xe.StatusCode(), totalRetries, true))
					return
				}
				delay := h.retryPolicy.GetDelay(attempt)
				if wait > delay {
					delay = wait
				}
				totalRetries++
				h.emit(metrics.NewRetryAttempt(requestID, attempt, maxAttempts, delay, "rate_limited", xe.StatusCode()))
				if !sleep(ctx, delay) {
					return
				}
				continue
			}

			retryable := xe == nil || xe.Retryable()
			if retryable && retriesLeft && h.retryPolicy.ShouldRetry(outcome.err, attempt) {
				delay := h.retryPolicy.GetDelay(attempt)
				totalRetries++
				h.emit(metrics.NewRetryAttempt(requestID, attempt, maxAttempts, delay, "retryable_error", statusCodeOf(xe)))
				if !sleep(ctx, delay) {
					return
				}
				continue
			}

			h.sendError(ctx, out, outcome.err)
			h.emit(metrics.NewRequestFailure(requestID, time.Since(start), string(kindOf(xe)), outcome.err.Error(), statusCodeOf(xe), totalRetries, retryable))
			return
		}
	}
}

type attemptOutcome struct {
	success bool
	err error
}

// attempt performs one HTTP round trip (through the rate limiter) and, on a
// 2xx streaming response, decodes SSE into the Stream Parser, forwarding
// StreamEvents to out until Complete or a terminal error.
func (h *Handler) attempt(ctx context.Context, requestID string, req ApiRequest, out chan<- streamparser.StreamEvent) attemptOutcome {
	var body io.ReadCloser

	run := func(ctx context.Context) error {
		httpReq, err := buildHTTPRequest(ctx, h.endpoint, requestID, req, h.extraHeaders, h.authToken)
		if err != nil {
			return err
		}
		resp, err := h.transport.Do(httpReq)
		if err != nil {
			return classifyTransportError(err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return classifyStatusError(resp.StatusCode, resp.Header.Get("Retry-After"))
		}
		body = resp.Body
		return nil
	}

	var err error
	if h.limiter != nil {
		err = h.limiter.Execute(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return attemptOutcome{err: err}
	}
	defer body.Close()

	return h.stream(ctx, body, out)
}

func (h *Handler) stream(ctx context.Context, body io.Reader, out chan<- streamparser.StreamEvent) attemptOutcome {
	parser := streamparser.New()

	watchdog := time.NewTimer(h.streamInactivityTimeout)
	defer watchdog.Stop()
	activity := make(chan struct{}, 1)

	// done tells scanSSE's producer goroutine to stop once this method
	// returns, so it never blocks forever sending to lines after every
	// exit path below (ctx cancellation, watchdog, or a terminal event)
	// stops us reading it.
	done := make(chan struct{})
	defer close(done)

	lines := scanSSE(body, done, func() {
		select {
		case activity <- struct{}{}:
		default:
		}
	})

	for {
		select {
		case <-ctx.Done():
			parser.Cancel()
			return attemptOutcome{err: nil}

		case <-watchdog.C:
			parser.Cancel()
			return attemptOutcome{err: xerrors.New(xerrors.KindTimeout, "stream inactivity timeout").WithRetryable(true)}

		case <-activity:
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(h.streamInactivityTimeout)

		case line, ok := <-lines:
			if !ok {
				// Input exhausted without an explicit message_stop: treat
				// as a clean end of stream.
				return attemptOutcome{success: true}
			}
			if !line.ok {
				if !h.forward(ctx, out, streamparser.ErrorEvent{Message: "malformed server-sent event: " + line.rawLine, ErrKind: xerrors.KindStream}) {
					return attemptOutcome{err: nil}
				}
				continue
			}
			for _, se := range parser.Handle(line.event) {
				if !h.forward(ctx, out, se) {
					return attemptOutcome{err: nil}
				}
				if se.Kind() == "complete" {
					return attemptOutcome{success: true}
				}
				// Only a top-level "error" server event ends the stream; an
				// ErrorEvent from a malformed tool_use block is non-fatal.
				if se.Kind() == "error" && line.event.Type == "error" {
					ee := se.(streamparser.ErrorEvent)
					kind := ee.ErrKind
					if kind == "" {
						kind = xerrors.KindStream
					}
					return attemptOutcome{err: xerrors.New(kind, ee.Message).WithRetryable(false)}
				}
			}
		}
	}
}

// forward sends ev to out, returning false if ctx was canceled first.
func (h *Handler) forward(ctx context.Context, out chan<- streamparser.StreamEvent, ev streamparser.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Handler) sendError(ctx context.Context, out chan<- streamparser.StreamEvent, err error) {
	xe, ok := xerrors.As(err)
	kind := xerrors.KindStream
	msg := err.Error()
	if ok {
		kind = xe.Kind()
		msg = xe.Message()
		if msg == "" {
			msg = xe.Error()
		}
	}
	h.forward(ctx, out, streamparser.ErrorEvent{Message: msg, ErrKind: kind})
}

func (h *Handler) emit(ev metrics.Event) {
	if h.collector != nil {
		h.collector.Emit(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return xerrors.Wrap(xerrors.KindTimeout, err, "request timed out")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.KindTimeout, err, "request deadline exceeded")
	}
	return xerrors.Wrap(xerrors.KindNetwork, err, "transport failure")
}

func classifyStatusError(status int, retryAfterHeader string) error {
	switch {
	case status == 429:
		return xerrors.New(xerrors.KindRateLimit, "rate limited").
			WithStatusCode(status).WithRetryAfter(retryAfterHeader)
	case status == 401 || status == 403:
		return xerrors.New(xerrors.KindAuthentication, "authentication failed").WithStatusCode(status)
	case status == 400 || status == 422:
		return xerrors.New(xerrors.KindValidation, "request rejected").WithStatusCode(status)
	case status >= 500:
		return xerrors.New(xerrors.KindServer, fmt.Sprintf("upstream error %d", status)).WithStatusCode(status)
	default:
		return xerrors.New(xerrors.KindValidation, fmt.Sprintf("unexpected status %d", status)).WithStatusCode(status)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func kindOf(xe *xerrors.Error) xerrors.Kind {
	if xe == nil {
		return xerrors.KindStream
	}
	return xe.Kind()
}

func statusCodeOf(xe *xerrors.Error) int {
	if xe == nil {
		return 0
	}
	return xe.StatusCode()
}
