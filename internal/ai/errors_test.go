package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		kind ErrorKind
	}{
		{name: "call deadline", ctx: context.Background(), err: fmt.Errorf("do: %w", context.DeadlineExceeded), kind: KindTimeout},
		{name: "caller canceled", ctx: canceled, err: errors.New("transport closed"), kind: KindCanceled},
		{name: "network timeout", ctx: context.Background(), err: timeoutNetError{}, kind: KindTimeout},
		{name: "unknown", ctx: context.Background(), err: errors.New("boom"), kind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Classify(tt.ctx, "gemini", tt.err)
			if !errors.Is(err, ErrService) {
				t.Fatalf("expected service error, got %v", err)
			}
			if got := KindOf(err); got != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, got)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected original error to stay in chain")
			}
		})
	}
}

func TestClassifyKeepsServiceError(t *testing.T) {
	t.Parallel()

	original := &ServiceError{Provider: "gemini", Kind: KindUnauthorized}
	if err := Classify(context.Background(), "other", original); err != original {
		t.Fatalf("expected service error to be returned unchanged, got %v", err)
	}
	if Classify(context.Background(), "gemini", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestKindFromHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]ErrorKind{
		http.StatusUnauthorized:        KindUnauthorized,
		http.StatusForbidden:           KindUnauthorized,
		http.StatusTooManyRequests:     KindRateLimited,
		http.StatusInternalServerError: KindUnavailable,
		http.StatusServiceUnavailable:  KindUnavailable,
		http.StatusGatewayTimeout:      KindTimeout,
		http.StatusBadRequest:          KindBadRequest,
		http.StatusOK:                  KindUnknown,
	}

	for code, want := range cases {
		if got := KindFromHTTPStatus(code); got != want {
			t.Fatalf("status %d: expected %q, got %q", code, want, got)
		}
	}
}

func TestServiceErrorTemporary(t *testing.T) {
	t.Parallel()

	temporary := []ErrorKind{KindTimeout, KindRateLimited, KindUnavailable}
	permanent := []ErrorKind{KindUnauthorized, KindCanceled, KindBadRequest, KindEmptyReply, KindUnknown}

	for _, kind := range temporary {
		if !(&ServiceError{Kind: kind}).Temporary() {
			t.Fatalf("expected %q to be temporary", kind)
		}
	}
	for _, kind := range permanent {
		if (&ServiceError{Kind: kind}).Temporary() {
			t.Fatalf("expected %q to be permanent", kind)
		}
	}
}
