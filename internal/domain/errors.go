package domain

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline error taxonomy.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrNoMatch            = errors.New("no matching market")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrPersistence        = errors.New("persistence error")
	ErrCatalogUnavailable = errors.New("market catalog unavailable")

	// ErrCatalogStale is soft: a refresh failed but a previous snapshot was served.
	ErrCatalogStale = errors.New("market catalog stale")
)

// NoMatchMessage is the ledger error text recorded when no market matches.
const NoMatchMessage = "No matching market"

// ValidationError describes malformed input rejected at a boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Persistence wraps a storage failure so callers can classify it.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// ClassifyUpstream maps context deadline errors to ErrUpstreamTimeout.
func ClassifyUpstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryable reports whether the failure should be retried on the next natural cycle.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrCatalogUnavailable)
}
