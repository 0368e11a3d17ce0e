package httpclient

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for collaborator calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// CollaboratorError classifies a failed collaborator call. Stage evaluators
// turn any error into a failed stage; the category ends up in logs and in the
// stage details.
type CollaboratorError struct {
	Category     ErrorCategory
	Collaborator string
	Message      string
	Underlying   error
	Retryable    bool
}

func (e *CollaboratorError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("collaborator %s [%s]: %s: %v", e.Collaborator, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("collaborator %s [%s]: %s", e.Collaborator, e.Category, e.Message)
}

func (e *CollaboratorError) Unwrap() error { return e.Underlying }

func newError(category ErrorCategory, collaborator, message string, underlying error) *CollaboratorError {
	return &CollaboratorError{
		Category:     category,
		Collaborator: collaborator,
		Message:      message,
		Underlying:   underlying,
		Retryable:    category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// CategoryOf returns the category of a CollaboratorError in err's chain, or
// ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}
