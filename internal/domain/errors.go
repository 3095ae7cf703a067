package domain

import "errors"

// Failure kinds. Callers wrap them with a reason and classify with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicate          = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrAuthentication     = errors.New("invalid credentials")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
