package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrClanNotFound     = errors.New("clan not found")
	ErrConcurrentUpdate = errors.New("concurrent update lost")
	ErrInvalidWindow    = errors.New("invalid leaderboard window")
	ErrInvalidCoinEvent = errors.New("invalid coin event")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrClanNotFound)
}
