package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrorType classifies failures for logging and metrics.
type ErrorType int

const (
	// ErrorTypeTransient - the upstream may succeed on a later run
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent - the request or payload itself is wrong
	ErrorTypePermanent
	// ErrorTypeDegraded - the run continues with reduced content
	ErrorTypeDegraded
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeDegraded:
		return "degraded"
	default:
		return "permanent"
	}
}

// UpstreamError reports a transport or HTTP failure talking to a data source.
type UpstreamError struct {
	Source     string
	StatusCode int // zero when the request never produced a response
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream returned HTTP %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream request failed: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as an upstream failure for source.
func NewUpstreamError(source string, statusCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(statusCode))
	}
	return &UpstreamError{Source: source, StatusCode: statusCode, Err: err}
}

// DecodeError reports a payload that could not be decoded or lacked required keys.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err as a malformed payload from source.
func NewDecodeError(source string, err error) error {
	return &DecodeError{Source: source, Err: err}
}

// StageError reports a failed briefing stage. It is the only error class
// that aborts a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// DegradedError reports that a category was replaced by its empty value.
type DegradedError struct {
	Category string
	Err      error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s degraded to empty: %v", e.Category, e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err looks like a temporary upstream condition.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.StatusCode > 0 {
		return isTransientHTTPStatus(upstreamErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// IsDegraded reports whether err marks a category that fell back to empty.
func IsDegraded(err error) bool {
	var degradedErr *DegradedError
	return errors.As(err, &degradedErr)
}

// GetErrorType classifies an error.
func GetErrorType(err error) ErrorType {
	if IsDegraded(err) {
		return ErrorTypeDegraded
	}
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// SourceOf returns the data source named by an upstream or decode error.
func SourceOf(err error) string {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Source
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Source
	}
	return ""
}

func isTransientHTTPStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
