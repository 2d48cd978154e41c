// Package handler implements the request orchestrator: assembling one
// upstream request, wrapping it with the resilience pipeline (circuit
// breaker, rate limiter, retry policy), and producing the fully-typed
// StreamEvents the facade consumes. The HTTP client itself is an external
// collaborator, so this package depends only on the stdlib
// *http.Request/*http.Response shapes via the Transport interface below,
// never on a vendor SDK.
package handler

import "net/http"

// Transport is the external HTTP collaborator this package consumes. Any
// *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Message is one turn of conversation history threaded into a request.
type Message struct {
	Role string
	Content string
}

// ApiRequest is the request assembly shape. Pointer fields are omitted
// from the serialized body when nil rather than sent as null.
type ApiRequest struct {
	Messages []Message
	MaxTokens int
	SystemInstruction *string
	Tools []ToolParam
	Model *string
	Temperature *float64
	TopP *float64
	TopK *int
	StopSequences []string
}

// ToolParam is the wire shape of one tool declaration in the outbound
// request body, matching toolschema.VendorTool's fields so callers can
// pass ToVendorTools' output straight through.
type ToolParam struct {
	Name string
	Description string
	InputSchema map[string]any
}
