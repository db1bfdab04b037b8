// Package apperr defines the stable error-code taxonomy shared by every
// HTTP-facing component. Handlers never write ad hoc error bodies; they
// wrap a cause in an *Error and let the API layer render it.
package apperr

import (
	"errors"
	"net/http"
)

// Code is one of the stable, externally-documented error identifiers.
type Code string

const (
	CodeValidationError        Code = "validation_error"
	CodeInvalidInput           Code = "invalid_input"
	CodeInputTooLarge          Code = "input_too_large"
	CodeNotReady               Code = "not_ready"
	CodeLLMTimeout             Code = "llm_timeout"
	CodeUpstreamTimeout        Code = "upstream_timeout"
	CodeUpstreamNetworkError   Code = "upstream_network_error"
	CodeNotFound               Code = "not_found"
	CodeCannotCancel           Code = "cannot_cancel"
	CodeCannotRefund           Code = "cannot_refund"
	CodeUnauthorized           Code = "unauthorized"
	CodeUnverifiedInbound      Code = "unverified_inbound"
	CodeUnsupportedConnector   Code = "unsupported_connector"
	CodeStreamError            Code = "stream_error"
	CodeInternalError          Code = "internal_error"
	CodeToolCallLimitExceeded  Code = "tool_call_limit_exceeded"
)

var statusByCode = map[Code]int{
	CodeValidationError:       http.StatusUnprocessableEntity,
	CodeInvalidInput:          http.StatusBadRequest,
	CodeInputTooLarge:         http.StatusRequestEntityTooLarge,
	CodeNotReady:              http.StatusServiceUnavailable,
	CodeLLMTimeout:            http.StatusGatewayTimeout,
	CodeUpstreamTimeout:       http.StatusGatewayTimeout,
	CodeUpstreamNetworkError:  http.StatusBadGateway,
	CodeNotFound:              http.StatusNotFound,
	CodeCannotCancel:          http.StatusConflict,
	CodeCannotRefund:          http.StatusConflict,
	CodeUnauthorized:          http.StatusUnauthorized,
	CodeUnverifiedInbound:     http.StatusBadRequest,
	CodeUnsupportedConnector:  http.StatusBadRequest,
	CodeStreamError:           http.StatusInternalServerError,
	CodeInternalError:         http.StatusInternalServerError,
	CodeToolCallLimitExceeded: http.StatusInternalServerError,
}

// Error is the envelope carried from any layer up to the HTTP boundary.
type Error struct {
	Code    Code
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error's code, defaulting
// to 500 for unrecognized codes.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs a bare application error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an application error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts an *Error from err, or reports false if none is present.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the Code carried by err if it (or something it wraps)
// is an *Error, else CodeInternalError.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeInternalError
}
