package cowork

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cowork error %d: %s", e.Status, e.Message)
}

// CommandError wraps a failed write operation. Commands never mutate
// local state optimistically, so a CommandError means nothing changed.
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// FetchError wraps a failed read. Callers are expected to degrade to
// an empty result rather than abort.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether an error is the server rejecting a command
// as a duplicate or an invalid transition. These are usually benign
// races: another device or the other participant got there first.
func IsConflict(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusConflict
	}
	return false
}
