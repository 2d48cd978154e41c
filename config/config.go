// Package config implements the configuration surface as immutable value
// types with copyWith-style derivation: defaults come from Default*
// functions that return fresh values, pure data with no lifecycle. Retry and
// CircuitBreaker groups are the retry.Policy and circuit.Config types
// themselves; this package adds Base, Proxy, Binding, and the constructor
// that enforces precondition validation.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/unfazed-dev/a2ui-adapter/circuit"
	"github.com/unfazed-dev/a2ui-adapter/retry"
)

// Base holds the options common to both direct and proxy request modes.
type Base struct {
	MaxTokens int
	Timeout time.Duration
	RetryAttempts int
	EnableStreaming bool
	Headers map[string]string
	TopP float64
	TopK int
	StopSequences []string
	Temperature float64
}

// DefaultBase returns the direct-mode default timeout (60s) and a
// conservative MaxTokens.
func DefaultBase() Base {
	return Base{
		MaxTokens: 4096,
		Timeout: 60 * time.Second,
		RetryAttempts: 3,
		EnableStreaming: true,
		TopP: 1,
		TopK: 1,
	}
}

// WithMaxTokens returns a copy of b with MaxTokens replaced.
func (b Base) WithMaxTokens(n int) Base { b.MaxTokens = n; return b }

// WithTimeout returns a copy of b with Timeout replaced.
func (b Base) WithTimeout(d time.Duration) Base { b.Timeout = d; return b }

// WithHeaders returns a copy of b with Headers replaced.
func (b Base) WithHeaders(h map[string]string) Base { b.Headers = h; return b }

// TokenProvider resolves a bearer token per-request, allowing callers to
// rotate or refresh credentials without reconstructing the configuration.
// A static token is just a TokenProvider that ignores its context, via
// StaticToken below.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken returns a TokenProvider that always resolves to token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}

// Proxy holds options specific to proxy mode.
type Proxy struct {
	IncludeHistory bool
	MaxHistoryMessages int
	TokenProvider TokenProvider
}

// DefaultProxy returns proxy-mode defaults: include history, capped at 20
// messages. The per-attempt deadline still comes from Base.Timeout;
// callers override it directly when proxy mode needs a different one.
func DefaultProxy() Proxy {
	return Proxy{IncludeHistory: true, MaxHistoryMessages: 20}
}

// WithTokenProvider returns a copy of p with TokenProvider replaced.
func (p Proxy) WithTokenProvider(tp TokenProvider) Proxy { p.TokenProvider = tp; return p }

// Binding holds options for the Binding Engine.
type Binding struct {
	MaxCacheSize int
}

// DefaultBinding returns the default derived-notifier cache size (100).
func DefaultBinding() Binding { return Binding{MaxCacheSize: 100} }

// Config aggregates every configuration group, including retry.Policy and
// circuit.Config from the sibling retry and circuit packages, into one
// construction-time-validated value.
type Config struct {
	Base Base
	Retry retry.Policy
	Proxy Proxy
	Circuit circuit.Config
	Binding Binding
}

// Default returns a Config built entirely from this package's and its
// sibling packages' defaults.
func Default() Config {
	return Config{
		Base: DefaultBase(),
		Retry: retry.DefaultPolicy(),
		Proxy: DefaultProxy(),
		Circuit: circuit.Defaults(),
		Binding: DefaultBinding(),
	}
}

// New validates cfg and returns it unchanged if valid. Validation
// failures return a plain error rather than panicking: this is
// caller-supplied data, not a programmer error.
func New(cfg Config) (Config, error) {
	if cfg.Base.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("config: maxTokens must be > 0, got %d", cfg.Base.MaxTokens)
	}
	if cfg.Base.RetryAttempts < 0 {
		return Config{}, fmt.Errorf("config: retryAttempts must be >= 0, got %d", cfg.Base.RetryAttempts)
	}
	if cfg.Base.TopP != 0 && (cfg.Base.TopP <= 0 || cfg.Base.TopP > 1) {
		return Config{}, fmt.Errorf("config: topP must be in (0, 1], got %v", cfg.Base.TopP)
	}
	if cfg.Base.TopK != 0 && cfg.Base.TopK < 1 {
		return Config{}, fmt.Errorf("config: topK must be >= 1, got %d", cfg.Base.TopK)
	}
	if cfg.Circuit.FailureThreshold != 0 && cfg.Circuit.FailureThreshold < 1 {
		return Config{}, fmt.Errorf("config: failureThreshold must be >= 1, got %d", cfg.Circuit.FailureThreshold)
	}
	if cfg.Circuit.HalfOpenSuccessThreshold != 0 && cfg.Circuit.HalfOpenSuccessThreshold < 1 {
		return Config{}, fmt.Errorf("config: halfOpenSuccessThreshold must be >= 1, got %d", cfg.Circuit.HalfOpenSuccessThreshold)
	}
	if cfg.Retry.JitterFactor < 0 || cfg.Retry.JitterFactor > 1 {
		return Config{}, fmt.Errorf("config: jitterFactor must be in [0, 1], got %v", cfg.Retry.JitterFactor)
	}
	if cfg.Retry.BackoffMultiplier != 0 && cfg.Retry.BackoffMultiplier < 1 {
		return Config{}, fmt.Errorf("config: backoffMultiplier must be >= 1, got %v", cfg.Retry.BackoffMultiplier)
	}
	return cfg, nil
}
