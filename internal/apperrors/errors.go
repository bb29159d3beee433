package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the services distinguish.
// Callers branch with errors.Is; the message carries the detail.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrPermission = errors.New("permission denied")
	ErrStorageIO  = errors.New("storage failure")
)

func wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

func NotFoundf(format string, args ...interface{}) error {
	return wrap(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return wrap(ErrConflict, format, args...)
}

func Validationf(format string, args ...interface{}) error {
	return wrap(ErrValidation, format, args...)
}

func Authf(format string, args ...interface{}) error {
	return wrap(ErrAuth, format, args...)
}

func Permissionf(format string, args ...interface{}) error {
	return wrap(ErrPermission, format, args...)
}

func StorageIOf(format string, args ...interface{}) error {
	return wrap(ErrStorageIO, format, args...)
}
