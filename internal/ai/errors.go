package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind groups service failures by how the caller should react to them.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindCanceled     ErrorKind = "canceled"
	KindUnauthorized ErrorKind = "unauthorized"
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnavailable  ErrorKind = "unavailable"
	KindBadRequest   ErrorKind = "bad_request"
	KindEmptyReply   ErrorKind = "empty_reply"
	KindUnknown      ErrorKind = "unknown"
)

// ErrService matches every *ServiceError with errors.Is.
var ErrService = errors.New("ai service error")

// ServiceError reports a failed call to the generative text service.
type ServiceError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ServiceError) Error() string {
	provider := e.Provider
	if provider == "" {
		provider = "ai"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s service error (%s)", provider, e.Kind)
	}
	return fmt.Sprintf("%s service error (%s): %v", provider, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// Temporary reports whether repeating the same call may succeed.
func (e *ServiceError) Temporary() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of the first ServiceError in the chain, or an empty kind.
func KindOf(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// IsKind reports whether err carries a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// KindFromHTTPStatus maps an HTTP status code returned by a provider API.
func KindFromHTTPStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= http.StatusInternalServerError:
		return KindUnavailable
	case code >= http.StatusBadRequest:
		return KindBadRequest
	default:
		return KindUnknown
	}
}

// Classify wraps err into a ServiceError. ctx is the caller's context: when it is done
// the failure is attributed to the caller, otherwise deadline errors are per-call timeouts.
// Errors that already carry a ServiceError are returned unchanged.
func Classify(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	kind := KindUnknown
	var netErr net.Error

	switch {
	case ctx != nil && errors.Is(ctx.Err(), context.Canceled):
		kind = KindCanceled
	case ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &netErr):
		kind = KindUnavailable
		if netErr.Timeout() {
			kind = KindTimeout
		}
	}

	return &ServiceError{Provider: provider, Kind: kind, Err: err}
}
