package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalChatRequest(t *testing.T) {
	payload := `{
		"model": "gpt-5",
		"stream": true,
		"messages": [
			{"role": "system", "content": "be terse"},
			{"role": "user", "content": [{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}
		],
		"providerOptions": {"windsurf": {"variant": "high"}}
	}`
	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	assert.Equal(t, "gpt-5", req.Model)
	assert.True(t, req.Stream)
	assert.Equal(t, "high", req.Variant)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "part one part two", req.Messages[1].Content)
}

func TestUnmarshalChatRequestSnakeCaseOptions(t *testing.T) {
	payload := `{"model":"m","messages":[{"role":"user","content":"x"}],"provider_options":{"windsurf":{"variant":"low"}}}`
	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	assert.Equal(t, "low", req.Variant)
}

func TestUnmarshalChatRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing model", `{"messages":[{"role":"user","content":"x"}]}`},
		{"missing messages", `{"model":"m"}`},
		{"bad role", `{"model":"m","messages":[{"role":"robot","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ChatCompletionRequest
			assert.Error(t, json.Unmarshal([]byte(tt.payload), &req))
		})
	}
}

func TestHasToolContext(t *testing.T) {
	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":"m","messages":[{"role":"user","content":"x"}]}`), &req))
	assert.False(t, req.HasToolContext())

	require.NoError(t, json.Unmarshal([]byte(`{"model":"m","tools":[{"type":"function","function":{"name":"f"}}],"messages":[{"role":"user","content":"x"}]}`), &req))
	assert.True(t, req.HasToolContext())

	require.NoError(t, json.Unmarshal([]byte(`{"model":"m","messages":[{"role":"tool","content":"r","tool_call_id":"1"}]}`), &req))
	assert.True(t, req.HasToolContext())

	require.NoError(t, json.Unmarshal([]byte(`{"model":"m","messages":[{"role":"assistant","content":null,"tool_calls":[{"id":"1","type":"function","function":{"name":"f","arguments":"{}"}}]}]}`), &req))
	assert.True(t, req.HasToolContext())
}

func TestFlattenForCascade(t *testing.T) {
	messages := []ChatMessage{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "ignored"},
		{Role: "system", Content: "system rules"},
		{Role: "tool", Content: "ignored too"},
		{Role: "user", Content: "second question"},
	}
	assert.Equal(t, "system rules\n\nfirst question\n\nsecond question", FlattenForCascade(messages))
}

func TestFlattenForCascadeEmpty(t *testing.T) {
	assert.Empty(t, FlattenForCascade([]ChatMessage{{Role: "assistant", Content: "x"}}))
}

func TestEmissionStateChunks(t *testing.T) {
	state := EmissionState{ResponseID: "chatcmpl-1", Created: 1700000000, ModelEcho: "gpt-5:high"}

	chunk := state.ContentChunk("hello")
	assert.Equal(t, "chat.completion.chunk", chunk.Object)
	assert.Equal(t, "gpt-5:high", chunk.Model)
	require.Len(t, chunk.Choices, 1)
	assert.Equal(t, "hello", chunk.Choices[0].Delta.Content)
	assert.Nil(t, chunk.Choices[0].FinishReason)

	stop := state.StopChunk("stop")
	require.NotNil(t, stop.Choices[0].FinishReason)
	assert.Equal(t, "stop", *stop.Choices[0].FinishReason)
	assert.Empty(t, stop.Choices[0].Delta.Content)
}

func TestToolCallsEmission(t *testing.T) {
	state := EmissionState{ResponseID: "chatcmpl-2", Created: 1, ModelEcho: "m"}
	calls := []ToolCall{{
		ID:       "call_1",
		Type:     "function",
		Function: ToolCallFunction{Name: "read_file", Arguments: `{"path":"a.txt"}`},
	}}

	chunk := state.ToolCallsChunk(calls)
	require.Len(t, chunk.Choices[0].Delta.ToolCalls, 1)
	assert.Equal(t, 0, chunk.Choices[0].Delta.ToolCalls[0].Index)
	assert.Equal(t, "read_file", chunk.Choices[0].Delta.ToolCalls[0].Function.Name)

	full := state.ToolCallsCompletion(calls)
	assert.Equal(t, "tool_calls", full.Choices[0].FinishReason)
	assert.Nil(t, full.Choices[0].Message.Content)
}
