package apierrors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("no data")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("interal error")
	ErrConflict   = errors.New("conflict")
)

// ValidationError describes rejected input field by field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

func (e ValidationError) GetMessage() string {
	return e.Error()
}

type LocalizedError interface {
	GetMessage() string
}
