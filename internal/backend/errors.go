package backend

import (
	"errors"
	"fmt"
)

// ErrUserAlreadyExists is reported when a user with the requested email is
// already registered.
var ErrUserAlreadyExists = errors.New("user already exists")

// APIError is a failure reported by the backend itself (as opposed to a
// transport failure). Status is the HTTP-like status of the failed call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}
