// Package errors defines the API error envelope and the helpers handlers use
// to write JSON responses.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[ErrorCode]int{
	CodeValidation:     http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
}

// Status maps a code to its HTTP status. Unknown codes are server errors.
func (c ErrorCode) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Param      string    `json:"param,omitempty"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Param != "" {
		msg += " [" + e.Param + "]"
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ForParam names the query parameter or signal the error refers to.
func (e *AppError) ForParam(name string) *AppError {
	e.Param = name
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.Status(),
		Timestamp:  time.Now().UTC(),
	}
}

// Wrap attaches err as the cause. Its text is exposed as Details, so only
// wrap errors that are safe to show to clients.
func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func Internal(message string) *AppError                { return New(CodeInternal, message) }
func InternalWrap(err error, message string) *AppError { return Wrap(err, CodeInternal, message) }
func Validation(message string) *AppError              { return New(CodeValidation, message) }
func ValidationWrap(err error, msg string) *AppError   { return Wrap(err, CodeValidation, msg) }
func NotFound(message string) *AppError                { return New(CodeNotFound, message) }
func BadRequestWrap(err error, msg string) *AppError   { return Wrap(err, CodeBadRequest, msg) }
func RateLimit(message string) *AppError               { return New(CodeRateLimit, message) }
func ServiceUnavailable(message string) *AppError      { return New(CodeServiceUnavail, message) }

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *AppError
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError renders err as the JSON error envelope. Errors that are not an
// AppError are reported as internal errors without exposing their text.
// Client errors log at warn level, server errors at error level.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var found *AppError
	var resp AppError
	if stderrors.As(err, &found) {
		resp = *found
	} else {
		resp = *New(CodeInternal, "An unexpected error occurred")
		resp.Cause = err
	}
	resp.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: &resp}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if resp.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", resp.Code,
		"error_message", resp.Message,
		"param", resp.Param,
		"status_code", resp.StatusCode,
		"request_id", requestID,
		"cause", resp.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessWithHeaders(w, data, nil)
}

// WriteSuccessWithHeaders encodes data before any header is written, so a
// value that cannot be encoded becomes a 500 error envelope instead of an
// empty 200.
func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	body, err := json.Marshal(SuccessResponse{Data: data, Success: true})
	if err != nil {
		appErr := Internal("failed to encode response")
		appErr.Cause = err
		WriteError(w, slog.Default(), appErr, w.Header().Get("X-Request-ID"))
		return
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(body, '\n'))
}
