package transportutil

import (
	"net/http"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int               `json:"-"`
	Message  string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

func makeError(code int, e error) *Error {
	return &Error{
		HTTPCode: code,
		Message:  e.Error(),
	}
}

// MakeError maps an error to a response. Messages of unknown errors are
// hidden from the client.
func MakeError(e error) *Error {
	if verr, ok := e.(*apierrors.ValidationError); ok {
		ret := makeError(http.StatusBadRequest, verr)
		ret.Fields = verr.Fields
		return ret
	}

	switch errors.Cause(e) {
	case apierrors.ErrNotFound:
		return makeError(http.StatusNotFound, e)
	case apierrors.ErrBadRequest:
		return makeError(http.StatusBadRequest, e)
	case apierrors.ErrConflict:
		return makeError(http.StatusConflict, e)
	}

	return makeError(http.StatusInternalServerError, errors.New("internal error"))
}
