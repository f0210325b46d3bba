package application

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrNotifyFailed       = errors.New("could not deliver code")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidInput       = errors.New("invalid input")
)
