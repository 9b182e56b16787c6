package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"cascade-bridge/internal/credentials"
	"cascade-bridge/internal/fault"
	"cascade-bridge/internal/planner"
	"cascade-bridge/internal/registry"
	"cascade-bridge/internal/translator"
)

func (s *Server) handleChatCompletions(c echo.Context) error {
	var req translator.ChatCompletionRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	// Readiness gate: a request is only serviceable when the language
	// server is discoverable right now.
	creds, err := s.resolver.Resolve(ctx)
	if err != nil {
		return toHTTPError(err)
	}

	model := registry.Resolve(req.Model, req.Variant)
	state := translator.EmissionState{
		ResponseID: "chatcmpl-" + uuid.NewString(),
		Created:    time.Now().Unix(),
		ModelEcho:  req.Model,
	}

	if req.HasToolContext() {
		return s.completeWithTools(c, req, creds, model, state)
	}
	if req.Stream {
		return s.streamCompletion(c, req, creds, model, state)
	}

	text, err := s.collectCompletion(c, translator.FlattenForCascade(req.Messages), creds, model)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, state.Completion(text))
}

// streamCompletion pushes cascade chunks straight onto the SSE writer.
func (s *Server) streamCompletion(c echo.Context, req translator.ChatCompletionRequest, creds credentials.Credentials, model registry.Resolved, state translator.EmissionState) error {
	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}

	text := translator.FlattenForCascade(req.Messages)
	err = s.completer.Complete(c.Request().Context(), creds, text, model, func(chunk string) error {
		return stream.send(state.ContentChunk(chunk))
	})
	if err != nil {
		if !stream.started() {
			s.invalidateOnConnectionFault(err)
			return toHTTPError(err)
		}
		// The status line is gone; all that is left is to stop cleanly.
		slog.Error("stream aborted mid-response", "err", err)
		return nil
	}

	if err := stream.send(state.StopChunk("stop")); err != nil {
		return nil
	}
	return stream.done()
}

// completeWithTools runs the prompt-engineered tool planner: the whole
// reply is needed before it can be classified, so both streaming and
// non-streaming buffer first.
func (s *Server) completeWithTools(c echo.Context, req translator.ChatCompletionRequest, creds credentials.Credentials, model registry.Resolved, state translator.EmissionState) error {
	prompt := planner.BuildPrompt(req.Tools, req.Messages)

	reply, err := s.collectCompletion(c, prompt, creds, model)
	if err != nil {
		return toHTTPError(err)
	}

	plan := planner.ParsePlan(reply)

	var content string
	var calls []translator.ToolCall
	switch {
	case plan == nil:
		// Unparseable replies surface verbatim as a final answer.
		content = reply
	case plan.Action == planner.ActionFinal:
		content = plan.Content
	default:
		calls = make([]translator.ToolCall, len(plan.Calls))
		for i, call := range plan.Calls {
			calls[i] = translator.ToolCall{
				ID:   synthesizeCallID(),
				Type: "function",
				Function: translator.ToolCallFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			}
		}
	}

	if !req.Stream {
		if len(calls) > 0 {
			return c.JSON(http.StatusOK, state.ToolCallsCompletion(calls))
		}
		return c.JSON(http.StatusOK, state.Completion(content))
	}

	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}
	finish := "stop"
	if len(calls) > 0 {
		if err := stream.send(state.ToolCallsChunk(calls)); err != nil {
			return nil
		}
		finish = "tool_calls"
	} else if err := stream.send(state.ContentChunk(content)); err != nil {
		return nil
	}
	if err := stream.send(state.StopChunk(finish)); err != nil {
		return nil
	}
	return stream.done()
}

// collectCompletion buffers the full cascade output.
func (s *Server) collectCompletion(c echo.Context, text string, creds credentials.Credentials, model registry.Resolved) (string, error) {
	var builder strings.Builder
	err := s.completer.Complete(c.Request().Context(), creds, text, model, func(chunk string) error {
		builder.WriteString(chunk)
		return nil
	})
	if err != nil {
		s.invalidateOnConnectionFault(err)
		return "", err
	}
	return builder.String(), nil
}

// invalidateOnConnectionFault drops the credential cache when the
// language server could not be reached, so the next request re-inspects.
func (s *Server) invalidateOnConnectionFault(err error) {
	if fault.CodeOf(err) == fault.ConnectionFailed {
		s.resolver.Invalidate()
	}
}

func synthesizeCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// sseStream serializes chunks onto an event-stream response. Headers are
// flushed lazily on the first chunk so pre-stream failures can still
// produce a proper error status.
type sseStream struct {
	c       echo.Context
	flusher http.Flusher
	wrote   bool
}

func newSSEStream(c echo.Context) (*sseStream, error) {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return nil, requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
		}
	}
	return &sseStream{c: c, flusher: flusher}, nil
}

func (s *sseStream) started() bool { return s.wrote }

func (s *sseStream) send(payload any) error {
	if !s.wrote {
		header := s.c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set(echo.HeaderConnection, "keep-alive")
		s.c.Response().WriteHeader(http.StatusOK)
		s.wrote = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) done() error {
	if _, err := fmt.Fprint(s.c.Response(), "data: [DONE]\n\n"); err != nil {
		return nil
	}
	s.flusher.Flush()
	return nil
}
