package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoActiveCollection indicates an operation needs an active collection
	// and the operator has none. Read paths report this as a result flag instead.
	ErrNoActiveCollection = errors.New("no active collection")

	// ErrEmptySelection indicates a run was requested with an empty basket.
	ErrEmptySelection = errors.New("no sources selected")

	// ErrNoLastRun indicates there is no completed run to act on.
	ErrNoLastRun = errors.New("no last run")

	// ErrModelUnavailable indicates the model client is disabled or not configured.
	ErrModelUnavailable = errors.New("model service unavailable")
)

// ErrorClass separates retryable model failures from terminal ones.
type ErrorClass string

// Model error classes.
const (
	// ClassTransient covers timeouts, rate limits and server overload.
	ClassTransient ErrorClass = "transient"

	// ClassPermanent covers auth, configuration and malformed requests.
	ClassPermanent ErrorClass = "permanent"
)

// Reasons attached to model errors.
const (
	ReasonTimeout        = "timeout"
	ReasonRateLimit      = "rate_limit"
	ReasonServer         = "server"
	ReasonCircuitOpen    = "circuit_open"
	ReasonNetwork        = "network"
	ReasonAuth           = "auth"
	ReasonInvalidRequest = "invalid_request"
	ReasonContextLength  = "context_length"
	ReasonEmptyResponse  = "empty_response"
)

// ModelError is a classified failure from a model client.
type ModelError struct {
	Class      ErrorClass
	Reason     string
	StatusCode int
	Err        error
}

// NewTransientError returns a retry-eligible model error.
func NewTransientError(reason string, err error) *ModelError {
	return &ModelError{Class: ClassTransient, Reason: reason, Err: err}
}

// NewPermanentError returns a model error that must not be retried.
func NewPermanentError(reason string, err error) *ModelError {
	return &ModelError{Class: ClassPermanent, Reason: reason, Err: err}
}

// NewStatusError classifies an HTTP status returned by a provider.
func NewStatusError(code int, err error) *ModelError {
	e := &ModelError{Class: ClassifyStatus(code), StatusCode: code, Err: err}
	switch {
	case code == http.StatusTooManyRequests:
		e.Reason = ReasonRateLimit
	case code == http.StatusRequestTimeout:
		e.Reason = ReasonTimeout
	case code >= 500:
		e.Reason = ReasonServer
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		e.Reason = ReasonAuth
	default:
		e.Reason = ReasonInvalidRequest
	}
	return e
}

func (e *ModelError) Error() string {
	msg := fmt.Sprintf("%s model error (%s)", e.Class, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an error class.
// 408, 429 and 5xx are transient; everything else is permanent.
func ClassifyStatus(code int) ErrorClass {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 {
		return ClassTransient
	}
	return ClassPermanent
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var me *ModelError
	if errors.As(err, &me) {
		return me.Class == ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// HasReason reports whether err is a ModelError with the given reason.
func HasReason(err error, reason string) bool {
	var me *ModelError
	return errors.As(err, &me) && me.Reason == reason
}

// RunError is the failure surfaced by the request pipeline.
// It carries enough context to diagnose a failed run.
type RunError struct {
	RunID    string
	Model    string
	Scope    ScopeMode
	Budget   int
	Attempts int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed after %d attempt(s) (model=%s scope=%s budget=%d): %v",
		e.RunID, e.Attempts, e.Model, e.Scope, e.Budget, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
