package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/detection"
	"github.com/ironsheep/medilabel-reader/internal/explain"
	"github.com/ironsheep/medilabel-reader/internal/logging"
	"github.com/ironsheep/medilabel-reader/internal/pipeline"
)

// Error is an error with an HTTP status.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with a plain message.
func NewError(code int, msg string) error {
	return &Error{Code: code, Err: errors.New(msg)}
}

// Request errors.
var (
	ErrMissingFile     = NewError(http.StatusBadRequest, "file is required")
	ErrEmptyFile       = NewError(http.StatusBadRequest, "uploaded file is empty")
	ErrNotAnImage      = NewError(http.StatusBadRequest, "uploaded file must be an image")
	ErrTooManyRequests = NewError(http.StatusTooManyRequests, "too many requests")
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// classify maps an error to a status and a machine readable code.
func classify(err error) (int, string) {
	var reqErr *Error
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &reqErr):
		return reqErr.Code, codeForStatus(reqErr.Code)
	case errors.As(err, &fiberErr):
		return fiberErr.Code, codeForStatus(fiberErr.Code)
	case errors.Is(err, pipeline.ErrInvalidImage):
		return http.StatusBadRequest, "INVALID_IMAGE"
	case errors.Is(err, pipeline.ErrNoDetections):
		return http.StatusUnprocessableEntity, "NO_DETECTIONS"
	case errors.Is(err, pipeline.ErrNoText):
		return http.StatusUnprocessableEntity, "NO_TEXT"
	case errors.Is(err, pipeline.ErrNoResponse):
		return http.StatusBadGateway, "NO_RESPONSE"
	case errors.Is(err, pipeline.ErrNoExplainer):
		return http.StatusServiceUnavailable, "LLM_DISABLED"
	case errors.Is(err, detection.ErrUnavailable):
		return http.StatusBadGateway, "DETECTION_UNAVAILABLE"
	case errors.Is(err, explain.ErrUnavailable):
		return http.StatusBadGateway, "LLM_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "FILE_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	}
	return ""
}

// errorHandler is the fiber error handler.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	requestID := getRequestID(c)

	fields := logrus.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"status":     status,
		"error":      err.Error(),
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	if status >= http.StatusInternalServerError && !upstreamStatus(status) {
		resp.TraceID = logging.ErrorWithTraceID(s.log, fields, "request failed")
		resp.Error = "internal server error"
	} else {
		s.log.WithFields(fields).Warn("request failed")
	}

	return c.Status(status).JSON(resp)
}

// upstreamStatus reports whether status blames a dependency rather than the
// server itself.
func upstreamStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
