// Package llm holds helpers shared by the model client adapters.
// Each provider lives in its own subpackage.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// TransportError classifies a failure to reach the provider at all.
// Deadlines and network failures are transient; a cancelled context is not.
func TransportError(provider string, err error) *domain.ModelError {
	wrapped := fmt.Errorf("%s: send request: %w", provider, err)
	switch {
	case errors.Is(err, context.Canceled):
		return domain.NewPermanentError(domain.ReasonInvalidRequest, wrapped)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewTransientError(domain.ReasonTimeout, wrapped)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewTransientError(domain.ReasonTimeout, wrapped)
	}
	return domain.NewTransientError(domain.ReasonNetwork, wrapped)
}

// StatusError classifies a non-2xx response. A 400 whose message contains one
// of overflowMarkers is reported as a context-length failure.
func StatusError(provider string, code int, message string, overflowMarkers ...string) *domain.ModelError {
	e := domain.NewStatusError(code, fmt.Errorf("%s: %s", provider, Truncate(message, 300)))
	if code == 400 && IsOverflow(message, overflowMarkers...) {
		e.Reason = domain.ReasonContextLength
	}
	return e
}

// IsOverflow reports whether message mentions any of markers, ignoring case.
func IsOverflow(message string, markers ...string) bool {
	lower := strings.ToLower(message)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// EmptyResponse is returned when a provider answers without any text.
func EmptyResponse(provider string) *domain.ModelError {
	return domain.NewPermanentError(domain.ReasonEmptyResponse, fmt.Errorf("%s: no content returned", provider))
}

// Truncate shortens s to n bytes for error messages.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
