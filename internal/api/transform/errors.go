package transform

import "fmt"

// MappingError means a local record can't be expressed in the provider schema.
// It's a data problem: retrying won't help.
type MappingError struct {
	Field  string
	Value  string
	Reason string
}

func (e MappingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("can't map %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("can't map %s %q: %s", e.Field, e.Value, e.Reason)
}

func IsMappingError(err error) bool {
	switch err.(type) {
	case *MappingError, MappingError:
		return true
	}
	return false
}
