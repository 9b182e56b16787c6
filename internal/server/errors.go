package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"cascade-bridge/internal/fault"
)

// requestError is an HTTP-ready error carrying the status and the
// OpenAI-shaped body fields.
type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

// errorBody is the uniform OpenAI-compatible error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

const errorType = "windsurf_error"

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorBody{Error: errorDetail{Message: message, Type: errorType}})
}

// toHTTPError maps a tagged fault onto a status code and body message.
func toHTTPError(err error) requestError {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	fe, ok := fault.As(err)
	if !ok {
		return requestError{Status: http.StatusInternalServerError, Message: "internal server error"}
	}

	switch fe.Code {
	case fault.NotRunning, fault.CSRFMissing, fault.APIKeyMissing:
		return requestError{Status: http.StatusServiceUnavailable, Message: fe.Message}
	case fault.ConnectionFailed:
		return requestError{Status: http.StatusBadGateway, Message: fe.Message}
	case fault.StreamError:
		message := fe.Message
		if fe.GRPCMessage != "" {
			message = fmt.Sprintf("%s (grpc-status %d: %s)", fe.Message, fe.GRPCStatus, fe.GRPCMessage)
		}
		return requestError{Status: http.StatusBadGateway, Message: message}
	case fault.BadRequest:
		return requestError{Status: http.StatusBadRequest, Message: fe.Message}
	default:
		return requestError{Status: http.StatusInternalServerError, Message: fe.Message}
	}
}

// openAIErrorHandler renders every unhandled error as an OpenAI-shaped
// body, including echo's own routing errors.
func openAIErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message)
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = writeError(c, httpErr.Code, fmt.Sprintf("%v", httpErr.Message))
		return
	}

	mapped := toHTTPError(err)
	_ = writeError(c, mapped.Status, mapped.Message)
}
