package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vanshika/chronos/internal/domain"
)

// FetchError describes a failed request. Kind is domain.ErrTransport or
// domain.ErrProtocol so callers can match with errors.Is.
type FetchError struct {
	Kind       error
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 && !containsStatus(msg, e.StatusCode) {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s", e.Endpoint, msg)
}

func (e *FetchError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Retryable reports whether repeating the request could succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == domain.ErrTransport || e.StatusCode == 0 || e.StatusCode >= 500
}

func transportError(endpoint string, err error) *FetchError {
	return &FetchError{Kind: domain.ErrTransport, Endpoint: endpoint, Err: err}
}

func containsStatus(msg string, code int) bool {
	return strings.Contains(msg, strconv.Itoa(code))
}
