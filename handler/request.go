package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// wireMessage is one outbound message in snake_case.
type wireMessage struct {
	Role string `json:"role"`
	Content string `json:"content"`
}

// wireTool is one outbound tool declaration in snake_case.
type wireTool struct {
	Name string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// wireBody is the outbound request body shape. Optional fields use
// pointers/omitempty so a nil/zero value is dropped from the serialized
// JSON rather than sent as null or zero.
type wireBody struct {
	Messages []wireMessage `json:"messages"`
	MaxTokens int `json:"max_tokens"`
	Stream bool `json:"stream"`
	System *string `json:"system,omitempty"`
	Tools []wireTool `json:"tools,omitempty"`
	Model *string `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP *float64 `json:"top_p,omitempty"`
	TopK *int `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

func toWireBody(req ApiRequest) wireBody {
	messages := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
	}
	var tools []wireTool
	if len(req.Tools) > 0 {
		tools = make([]wireTool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, wireTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
		}
	}
	return wireBody{
		Messages: messages,
		MaxTokens: req.MaxTokens,
		Stream: true,
		System: req.SystemInstruction,
		Tools: tools,
		Model: req.Model,
		Temperature: req.Temperature,
		TopP: req.TopP,
		TopK: req.TopK,
		StopSequences: req.StopSequences,
	}
}

// buildHTTPRequest assembles the outbound *http.Request :
// headers Content-Type, Accept, X-Request-ID, and optionally Authorization
// plus caller-supplied extras.
func buildHTTPRequest(ctx context.Context, endpoint, requestID string, req ApiRequest, extraHeaders map[string]string, authToken string) (*http.Request, error) {
	body, err := json.Marshal(toWireBody(req))
	if err != nil {
		return nil, fmt.Errorf("handler: marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("handler: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", requestID)
	if authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+authToken)
	}
	for k, v := range extraHeaders {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}
