package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")  // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrNotFound           = errors.New("not found")           // 404
	ErrConflict           = errors.New("conflict")            // 409
)

// serviceError carries a client-safe message for one of the sentinels above.
type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func conflictf(format string, args ...any) error {
	return &serviceError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &serviceError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}
