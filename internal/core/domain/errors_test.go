package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrNoActiveCollection", ErrNoActiveCollection},
		{"ErrEmptySelection", ErrEmptySelection},
		{"ErrNoLastRun", ErrNoLastRun},
		{"ErrModelUnavailable", ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorClass
	}{
		{http.StatusRequestTimeout, ClassTransient},
		{http.StatusTooManyRequests, ClassTransient},
		{http.StatusInternalServerError, ClassTransient},
		{http.StatusServiceUnavailable, ClassTransient},
		{http.StatusBadRequest, ClassPermanent},
		{http.StatusUnauthorized, ClassPermanent},
		{http.StatusNotFound, ClassPermanent},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.code))
		})
	}
}

func TestNewStatusError_Reasons(t *testing.T) {
	assert.Equal(t, ReasonRateLimit, NewStatusError(429, nil).Reason)
	assert.Equal(t, ReasonServer, NewStatusError(503, nil).Reason)
	assert.Equal(t, ReasonAuth, NewStatusError(401, nil).Reason)
	assert.Equal(t, ReasonInvalidRequest, NewStatusError(422, nil).Reason)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewTransientError(ReasonTimeout, nil)))
	assert.False(t, IsTransient(NewPermanentError(ReasonAuth, nil)))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", NewStatusError(500, nil))))
	assert.False(t, IsTransient(errors.New("boom")))
}

func TestModelError_UnwrapAndMessage(t *testing.T) {
	inner := errors.New("quota")
	err := NewStatusError(429, inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "transient")
	assert.Contains(t, err.Error(), "status 429")
	assert.True(t, HasReason(err, ReasonRateLimit))
	assert.False(t, HasReason(inner, ReasonRateLimit))
}

func TestRunError(t *testing.T) {
	inner := NewPermanentError(ReasonAuth, errors.New("bad key"))
	err := &RunError{RunID: "r1", Model: "gpt-4o", Scope: ScopeLinked, Budget: 1200, Attempts: 1, Err: inner}

	var me *ModelError
	assert.True(t, errors.As(err, &me))
	assert.Contains(t, err.Error(), "model=gpt-4o")
	assert.Contains(t, err.Error(), "scope=linked")
	assert.Contains(t, err.Error(), "budget=1200")
}
