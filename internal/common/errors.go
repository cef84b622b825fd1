package common

import "errors"

var (
	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrUnknownTable  = errors.New("unknown table")
	ErrAlreadyExists = errors.New("already exists")

	// remote link errors
	ErrUnavailable  = errors.New("remote unavailable")
	ErrProtocol     = errors.New("protocol error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// programming errors, raised as panics
	ErrValidation = errors.New("validation error")

	ErrInvalidCredentials = errors.New("invalid username or password")
)
