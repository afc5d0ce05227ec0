package subsprovider

import (
	"errors"
	"fmt"
)

var ErrEmptyID = errors.New("provider returned subscription without id")

// CallError is a failed provider call. StatusCode is 0 when no response was received.
type CallError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e CallError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %s", e.Method, e.Endpoint, e.Err)
	}

	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Err)
}

func (e CallError) IsNotFound() bool {
	return e.StatusCode == 404
}
