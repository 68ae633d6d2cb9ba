// Package external holds the clients for the two network collaborators:
// the generation service (Gemini) and the semantic retrieval service (Dify
// knowledge base). Every failure they return is a *CallError.
package external

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a collaborator failure
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
)

// Service names used in CallError and metrics labels
const (
	ServiceGeneration = "generation"
	ServiceRetrieval  = "retrieval"
)

// CallError is a classified failure of an external collaborator call
type CallError struct {
	Service    string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s call failed (%s, status %d): %v", e.Service, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s call failed (%s): %v", e.Service, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a single retry may succeed. Timeouts and
// malformed responses are not retried.
func (e *CallError) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	}
	return false
}

// KindOf returns the failure kind of err, or "" when err is not a CallError.
func KindOf(err error) Kind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// classify wraps a transport-level error, telling timeouts apart.
func classify(service string, err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Service: service, Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &CallError{Service: service, Kind: KindTimeout, Err: err}
	}
	return &CallError{Service: service, Kind: KindTransport, Err: err}
}
