package api

import (
	"errors"
	"fmt"
)

// Error is a non-401 application error returned by the backend. Message is
// the server-provided text when the body carried one, else the HTTP status
// text.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// SessionExpiredError is terminal for the session: the refresh exchange
// failed (or no refresh token was available) and the token store has been
// cleared. The caller must route the user back to login.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session expired, please login again: %v", e.Err)
	}
	return "session expired, please login again"
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// IsSessionExpired reports whether err (or any error in its chain) is a
// SessionExpiredError.
func IsSessionExpired(err error) bool {
	var sessionErr *SessionExpiredError
	return errors.As(err, &sessionErr)
}

// StatusCode returns the HTTP status carried by err when it is an api
// Error, and 0 otherwise.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
