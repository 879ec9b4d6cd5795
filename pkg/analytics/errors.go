package analytics

import (
	"errors"
	"fmt"
)

// Sentinel errors for message validation.
var (
	// ErrMissingIdentity indicates a message that needs an identity has
	// neither UserID nor AnonymousID.
	ErrMissingIdentity = errors.New("either of user_id or anonymous_id is required")

	// ErrReservedKeyword indicates the message context uses a key the
	// client reserves for itself.
	ErrReservedKeyword = errors.New("reserve keyword present in context")

	// ErrNilMessage indicates Send or Validate was called with a nil Message.
	ErrNilMessage = errors.New("message cannot be nil")

	// ErrUnknownType indicates a Message whose type has no API path.
	ErrUnknownType = errors.New("unknown message type")
)

// Sentinel errors for delivery.
var (
	// ErrInvalidRequest matches every *InvalidRequestError via errors.Is.
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError describes why a message was rejected before sending.
type ValidationError struct {
	// Type is the variant that failed validation. Empty for a nil message.
	Type MessageType
	// Key is the conflicting context key for ErrReservedKeyword.
	Key string
	// Err is one of the validation sentinels.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Type == "":
		return e.Err.Error()
	case e.Key != "":
		return fmt.Sprintf("%s: %v: %q", e.Type, e.Err, e.Key)
	default:
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidRequestError reports a message the data plane did not accept,
// either because it failed validation (StatusCode is 0 and Err holds the
// *ValidationError) or because the server answered with a status other
// than 200.
type InvalidRequestError struct {
	// StatusCode is the HTTP status returned, or 0 if nothing was sent.
	StatusCode int
	// Message describes the failure.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// newStatusError builds the error returned for a non-200 response.
func newStatusError(code int) *InvalidRequestError {
	return &InvalidRequestError{
		StatusCode: code,
		Message:    fmt.Sprintf("status code: %d, message: Invalid request", code),
	}
}

// RequestError wraps a transport failure: connection refused, DNS, TLS,
// timeout or cancellation. The exchange did not complete.
type RequestError struct {
	// URL is the endpoint that was being called.
	URL string
	// Err is the transport error.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the transport error for errors.Is/As support.
func (e *RequestError) Unwrap() error {
	return e.Err
}
