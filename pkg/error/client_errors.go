package error

import "net/http"

// Client-side failures: the request can never succeed as sent.

type ValidationError string

func (err ValidationError) Error() string {
	return string(err)
}

func (err ValidationError) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (err ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

type AuthError string

func (err AuthError) Error() string {
	return string(err)
}

func (err AuthError) ErrCode() string {
	return "AUTHENTICATION_ERROR"
}

func (err AuthError) StatusCode() int {
	return http.StatusUnauthorized
}

type ForbiddenError string

func (err ForbiddenError) Error() string {
	return string(err)
}

func (err ForbiddenError) ErrCode() string {
	return "FORBIDDEN"
}

func (err ForbiddenError) StatusCode() int {
	return http.StatusForbidden
}

type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// ConflictError signals a lost race or a state that forbids the operation.
type ConflictError string

func (err ConflictError) Error() string {
	return string(err)
}

func (err ConflictError) ErrCode() string {
	return "CONFLICT"
}

func (err ConflictError) StatusCode() int {
	return http.StatusConflict
}
