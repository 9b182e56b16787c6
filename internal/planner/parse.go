package planner

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Plan actions.
const (
	ActionFinal    = "final"
	ActionToolCall = "tool_call"
)

// Call is one planned tool invocation. Arguments is always a serialized
// JSON document.
type Call struct {
	Name      string
	Arguments string
}

// Plan is the parsed planner reply.
type Plan struct {
	Action  string
	Content string
	Calls   []Call
}

var taggedCallRe = regexp.MustCompile(`<tool_call>\s*([\w.-]+)\s*(\{[^<]*\})`)

// ParsePlan interprets a model reply. It first tries the outermost JSON
// object in the text, then falls back to <tool_call>name {json} tagged
// fragments. A nil result means the reply is not a plan and should be
// surfaced verbatim as a final answer.
func ParsePlan(reply string) *Plan {
	if plan := parseJSONPlan(reply); plan != nil {
		return plan
	}
	return parseTaggedCalls(reply)
}

func parseJSONPlan(reply string) *Plan {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return nil
	}
	candidate := reply[start : end+1]
	if !gjson.Valid(candidate) {
		return nil
	}

	doc := gjson.Parse(candidate)
	switch doc.Get("action").String() {
	case ActionFinal:
		content := doc.Get("content")
		if content.Type != gjson.String {
			return nil
		}
		return &Plan{Action: ActionFinal, Content: content.String()}
	case ActionToolCall:
		rawCalls := doc.Get("tool_calls")
		if !rawCalls.IsArray() {
			return nil
		}
		var calls []Call
		for _, rawCall := range rawCalls.Array() {
			name := rawCall.Get("name").String()
			if name == "" {
				continue
			}
			calls = append(calls, Call{
				Name:      name,
				Arguments: normalizeArguments(rawCall.Get("arguments")),
			})
		}
		if len(calls) == 0 {
			return nil
		}
		return &Plan{Action: ActionToolCall, Calls: calls}
	default:
		return nil
	}
}

func parseTaggedCalls(reply string) *Plan {
	var calls []Call
	for _, match := range taggedCallRe.FindAllStringSubmatch(reply, -1) {
		if !gjson.Valid(match[2]) {
			continue
		}
		calls = append(calls, Call{
			Name:      match[1],
			Arguments: normalizeArguments(gjson.Parse(match[2])),
		})
	}
	if len(calls) == 0 {
		return nil
	}
	return &Plan{Action: ActionToolCall, Calls: calls}
}

// normalizeArguments renders a tool-call argument value as a JSON
// document, opportunistically parsing string values that themselves
// contain JSON.
func normalizeArguments(args gjson.Result) string {
	if !args.Exists() {
		return "{}"
	}
	normalized := normalizeValue(args.Value())
	data, err := json.Marshal(normalized)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		if nested, ok := parseEmbeddedJSON(t); ok {
			return normalizeValue(nested)
		}
		return t
	case map[string]any:
		for k, elem := range t {
			t[k] = normalizeValue(elem)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = normalizeValue(elem)
		}
		return t
	default:
		return v
	}
}

// parseEmbeddedJSON applies the conservative looks-like-JSON test: the
// trimmed string must open and close with matching braces or brackets
// and parse cleanly; anything else stays a string.
func parseEmbeddedJSON(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	object := strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
	array := strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
	if !object && !array {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
