package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrSpotNotFound = errors.New("spot not found")

	ErrUserNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrLockHeld = errors.New("spot lock already held")
)
