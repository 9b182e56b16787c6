// Package translator defines the OpenAI-compatible request and response
// shapes the bridge speaks on its HTTP surface, and the conversion from
// chat messages to the single text item Cascade accepts.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptyModel    = errors.New("model must be provided")
	errEmptyMessages = errors.New("at least one message is required")
	errInvalidRole   = errors.New("invalid role")
)

var allowedRoles = map[string]struct{}{
	"system":    {},
	"user":      {},
	"assistant": {},
	"tool":      {},
}

// ChatCompletionRequest models the recognized subset of the OpenAI
// chat/completions request payload.
type ChatCompletionRequest struct {
	Model    string
	Messages []ChatMessage
	Stream   bool
	Tools    []Tool
	// Variant carries providerOptions.windsurf.variant when present.
	Variant string
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model            string          `json:"model"`
		Messages         []ChatMessage   `json:"messages"`
		Stream           bool            `json:"stream"`
		Tools            []Tool          `json:"tools"`
		ProviderOptions  json.RawMessage `json:"providerOptions"`
		ProviderOptions2 json.RawMessage `json:"provider_options"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.Stream = raw.Stream
	r.Tools = raw.Tools
	r.Variant = parseVariantOption(raw.ProviderOptions)
	if r.Variant == "" {
		r.Variant = parseVariantOption(raw.ProviderOptions2)
	}

	return r.validate()
}

func parseVariantOption(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var opts struct {
		Windsurf struct {
			Variant string `json:"variant"`
		} `json:"windsurf"`
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return ""
	}
	return opts.Windsurf.Variant
}

func (r *ChatCompletionRequest) validate() error {
	if r.Model == "" {
		return errEmptyModel
	}
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	for i, msg := range r.Messages {
		if _, ok := allowedRoles[msg.Role]; !ok {
			return fmt.Errorf("message[%d]: %w: %q", i, errInvalidRole, msg.Role)
		}
	}
	return nil
}

// HasToolContext reports whether the tool planner must run: the request
// carries tools, or the history already contains tool traffic.
func (r ChatCompletionRequest) HasToolContext() bool {
	if len(r.Tools) > 0 {
		return true
	}
	for _, msg := range r.Messages {
		if msg.Role == "tool" || (msg.Role == "assistant" && len(msg.ToolCalls) > 0) {
			return true
		}
	}
	return false
}

// ChatMessage captures a single message within the chat request.
type ChatMessage struct {
	Role       string
	Content    string
	Name       string
	ToolCalls  []ToolCall
	ToolCallID string
}

// UnmarshalJSON supports string and array-of-text content formats.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		Name       string          `json:"name"`
		ToolCalls  []ToolCall      `json:"tool_calls"`
		ToolCallID string          `json:"tool_call_id"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.TrimSpace(raw.Role)
	m.Content = content
	m.Name = raw.Name
	m.ToolCalls = raw.ToolCalls
	m.ToolCallID = raw.ToolCallID
	return nil
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("message content must be a string or text parts: %w", err)
	}

	var builder strings.Builder
	for _, part := range parts {
		if part.Type != "text" {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String(), nil
}

// Tool is an OpenAI function tool declaration.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the callable side of a tool.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is an assistant-issued tool invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the call target and serialized arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FlattenForCascade joins the conversation into the single outbound text
// item Cascade accepts: system content first, then user content, with
// blank-line separators. Assistant and tool messages are dropped.
func FlattenForCascade(messages []ChatMessage) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == "system" && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
