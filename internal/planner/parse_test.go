package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-bridge/internal/translator"
)

func TestParsePlanFinal(t *testing.T) {
	plan := ParsePlan(`{"action":"final","content":"all done"}`)
	require.NotNil(t, plan)
	assert.Equal(t, ActionFinal, plan.Action)
	assert.Equal(t, "all done", plan.Content)
}

func TestParsePlanToolCallWithSurroundingText(t *testing.T) {
	reply := `text before {"action":"tool_call","tool_calls":[{"name":"read_file","arguments":"{\"path\":\"a.txt\"}"}]} text after`
	plan := ParsePlan(reply)
	require.NotNil(t, plan)
	assert.Equal(t, ActionToolCall, plan.Action)
	require.Len(t, plan.Calls, 1)
	assert.Equal(t, "read_file", plan.Calls[0].Name)
	assert.JSONEq(t, `{"path":"a.txt"}`, plan.Calls[0].Arguments)
}

func TestParsePlanObjectArguments(t *testing.T) {
	reply := `{"action":"tool_call","tool_calls":[{"name":"search","arguments":{"query":"go testing","limit":3}}]}`
	plan := ParsePlan(reply)
	require.NotNil(t, plan)
	assert.JSONEq(t, `{"query":"go testing","limit":3}`, plan.Calls[0].Arguments)
}

func TestParsePlanNestedJSONStrings(t *testing.T) {
	reply := `{"action":"tool_call","tool_calls":[{"name":"f","arguments":{"inner":"[1,2,3]","plain":"not [json"}}]}`
	plan := ParsePlan(reply)
	require.NotNil(t, plan)
	assert.JSONEq(t, `{"inner":[1,2,3],"plain":"not [json"}`, plan.Calls[0].Arguments)
}

func TestParsePlanMissingArguments(t *testing.T) {
	plan := ParsePlan(`{"action":"tool_call","tool_calls":[{"name":"noop"}]}`)
	require.NotNil(t, plan)
	assert.Equal(t, "{}", plan.Calls[0].Arguments)
}

func TestParsePlanTaggedFallback(t *testing.T) {
	reply := "I will call these:\n<tool_call>read_file {\"path\":\"a.txt\"}\n<tool_call>list_dir {\"path\":\".\"}"
	plan := ParsePlan(reply)
	require.NotNil(t, plan)
	assert.Equal(t, ActionToolCall, plan.Action)
	require.Len(t, plan.Calls, 2)
	assert.Equal(t, "read_file", plan.Calls[0].Name)
	assert.Equal(t, "list_dir", plan.Calls[1].Name)
}

func TestParsePlanRejectsOtherShapes(t *testing.T) {
	assert.Nil(t, ParsePlan("just a plain answer"))
	assert.Nil(t, ParsePlan(`{"action":"unknown"}`))
	assert.Nil(t, ParsePlan(`{"action":"final","content":42}`))
	assert.Nil(t, ParsePlan(`{"action":"tool_call","tool_calls":[]}`))
	assert.Nil(t, ParsePlan(`{"action":"tool_call","tool_calls":"nope"}`))
	assert.Nil(t, ParsePlan(`{broken json`))
}

func TestParsePlanRoundTrip(t *testing.T) {
	original := ParsePlan(`{"action":"final","content":"answer with \"quotes\""}`)
	require.NotNil(t, original)

	serialized, err := json.Marshal(map[string]string{"action": original.Action, "content": original.Content})
	require.NoError(t, err)
	again := ParsePlan(string(serialized))
	require.NotNil(t, again)
	assert.Equal(t, original, again)
}

func TestBuildPromptSections(t *testing.T) {
	tools := []translator.Tool{{
		Type: "function",
		Function: translator.ToolFunction{
			Name:        "read_file",
			Description: "Read a file from disk",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
		},
	}}
	messages := []translator.ChatMessage{
		{Role: "system", Content: "answer briefly"},
		{Role: "user", Content: "what is in a.txt?"},
		{Role: "assistant", ToolCalls: []translator.ToolCall{{
			ID: "call_1", Type: "function",
			Function: translator.ToolCallFunction{Name: "read_file", Arguments: `{"path":"a.txt"}`},
		}}},
		{Role: "tool", ToolCallID: "call_1", Content: "file contents"},
	}

	prompt := BuildPrompt(tools, messages)
	assert.Contains(t, prompt, "- read_file: Read a file from disk")
	assert.Contains(t, prompt, `"path"`)
	assert.Contains(t, prompt, "answer briefly")
	assert.Contains(t, prompt, "exactly one JSON object")
	assert.Contains(t, prompt, "user: what is in a.txt?")
	assert.Contains(t, prompt, "assistant called read_file")
	assert.Contains(t, prompt, "tool result (call_1): file contents")
}
