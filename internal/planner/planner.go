// Package planner simulates OpenAI tool calling over a backend that has
// no native tool support. It renders the tools and conversation into a
// constrained prompt, and parses the model's reply back into either a
// tool-call plan or a final answer.
package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cascade-bridge/internal/translator"
)

const preamble = `You are an AI assistant that can call tools on behalf of the user.
You do not execute tools yourself; you decide which tool to call next, or answer directly.`

const outputRules = `Respond with exactly one JSON object and nothing else.
Do not wrap the object in markdown fences or tags.
Tool arguments must match the tool's parameter schema.

To call one or more tools, respond:
{"action": "tool_call", "tool_calls": [{"name": "<tool name>", "arguments": {<arguments>}}]}

To answer the user directly, respond:
{"action": "final", "content": "<your answer>"}`

// BuildPrompt renders the planner prompt: preamble, system guidance, the
// tool catalog, output rules, and the role-labeled conversation.
func BuildPrompt(tools []translator.Tool, messages []translator.ChatMessage) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")

	if system := systemText(messages); system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}

	b.WriteString("Available tools:\n")
	for _, tool := range tools {
		b.WriteString("- ")
		b.WriteString(tool.Function.Name)
		if tool.Function.Description != "" {
			b.WriteString(": ")
			b.WriteString(tool.Function.Description)
		}
		b.WriteString("\n")
		if schema := prettySchema(tool.Function.Parameters); schema != "" {
			b.WriteString(schema)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(outputRules)
	b.WriteString("\n\nConversation so far:\n")
	b.WriteString(renderConversation(messages))
	return b.String()
}

func systemText(messages []translator.ChatMessage) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == "system" && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func prettySchema(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "  ", "  "); err != nil {
		return "  " + string(raw)
	}
	return "  " + out.String()
}

func renderConversation(messages []translator.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			// Already hoisted into the prompt header.
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				for _, call := range msg.ToolCalls {
					fmt.Fprintf(&b, "assistant called %s with %s\n", call.Function.Name, call.Function.Arguments)
				}
			}
			if msg.Content != "" {
				fmt.Fprintf(&b, "assistant: %s\n", msg.Content)
			}
		case "tool":
			fmt.Fprintf(&b, "tool result (%s): %s\n", msg.ToolCallID, msg.Content)
		default:
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	return b.String()
}
