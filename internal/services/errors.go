package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// ErrorKind classifies a generator failure.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindValidation ErrorKind = "validation"
	KindRateLimit  ErrorKind = "rate_limit"
	KindAuth       ErrorKind = "auth"
	KindUnknown    ErrorKind = "unknown"
)

// GenerationError is the single failure shape returned across the
// generator boundary. Message is safe to log; Err carries provider detail.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx HTTP reply from a provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// KindForStatus maps an HTTP status code to an ErrorKind.
func KindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Classify normalises any error into a *GenerationError. It returns nil
// for a nil error.
func Classify(err error) *GenerationError {
	if err == nil {
		return nil
	}

	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr
	}

	var verr *narrative.ValidationError
	if errors.As(err, &verr) {
		return &GenerationError{Kind: KindValidation, Message: "narrator response failed validation", Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &GenerationError{Kind: KindNetwork, Message: "narrator request timed out", Err: err}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return &GenerationError{Kind: KindForStatus(statusErr.StatusCode), Message: fmt.Sprintf("narrator returned status %d", statusErr.StatusCode), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &GenerationError{Kind: KindNetwork, Message: "narrator unreachable", Err: err}
	}

	return &GenerationError{Kind: KindUnknown, Message: "narrator request failed", Err: err}
}
