package error

import (
	"errors"
	"net/http"
)

// GenericError is implemented by every error that knows how it should be
// rendered over HTTP.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

// As extracts a GenericError from err's chain.
func As(err error) (GenericError, bool) {
	var generic GenericError
	if errors.As(err, &generic) {
		return generic, true
	}
	return nil, false
}

type InternalError string

func (err InternalError) Error() string {
	return string(err)
}

func (err InternalError) ErrCode() string {
	return "INTERNAL_SERVER_ERROR"
}

func (err InternalError) StatusCode() int {
	return http.StatusInternalServerError
}
