package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyUpstream(t *testing.T) {
	err := ClassifyUpstream("fetch markets", fmt.Errorf("do request: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}

	other := ClassifyUpstream("fetch markets", errors.New("boom"))
	if errors.Is(other, ErrUpstreamTimeout) {
		t.Error("plain errors must not be classified as timeouts")
	}

	if ClassifyUpstream("noop", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestValidationError_Is(t *testing.T) {
	var err error = &ValidationError{Field: "signature", Reason: "required"}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if IsRetryable(err) {
		t.Error("validation errors are not retryable")
	}
}
