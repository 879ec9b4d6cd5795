// Package retry classifies delivery errors and retries sends on behalf of a
// caller. The analytics clients never retry on their own; a caller that
// wants at-least-once delivery wraps Send with Do.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: connection refused, request timeout, 429, 5xx.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: validation failure, 400, 401, caller cancellation.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that have been made.
	Attempts int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Transient marks err as worth retrying.
func Transient(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: context}
}

// Permanent marks err as not worth retrying.
func Permanent(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: context}
}

// Categorize determines how an error from Send should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	// Rejected before sending; the same message fails again.
	var valErr *analytics.ValidationError
	if errors.As(err, &valErr) {
		return CategoryPermanent
	}

	var invalid *analytics.InvalidRequestError
	if errors.As(err, &invalid) {
		return categorizeStatus(invalid.StatusCode)
	}

	var reqErr *analytics.RequestError
	if errors.As(err, &reqErr) {
		if errors.Is(err, context.Canceled) {
			return CategoryPermanent
		}
		return CategoryTransient
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

func categorizeStatus(code int) Category {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return CategoryTransient
	case code >= 500:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
