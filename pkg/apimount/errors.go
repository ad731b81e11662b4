// pkg/apimount/errors.go
package apimount

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// APIError is the structured failure shape that crosses the wire as
// {name, message, stack}.
type APIError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Name
}

// NewError builds an APIError with the stack captured at the construction
// site, mirroring how a thrown error records where it was raised.
func NewError(name, message string) *APIError {
	return &APIError{Name: name, Message: message, Stack: string(debug.Stack())}
}

// rejection carries an arbitrary failure value that should reach the caller
// verbatim instead of being reshaped into {name, message, stack}.
type rejection struct{ value any }

func (r *rejection) Error() string { return fmt.Sprintf("rejected: %v", r.value) }

// Reject wraps a non-error failure value. The pipeline serializes the value
// as-is into a 500 body.
func Reject(value any) error { return &rejection{value: value} }

// failurePayload maps a handler failure onto its wire body.
func failurePayload(err error) any {
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.value
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	return &APIError{Name: "Error", Message: err.Error(), Stack: string(debug.Stack())}
}
