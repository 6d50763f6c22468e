package account

import "errors"

// Public, stable errors for callers.
var (
	// ErrUsernameTaken is returned when the requested username is in use.
	ErrUsernameTaken = errors.New("username already in use")

	// ErrPasswordTooShort is returned when a registration password is under
	// the minimum length.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrInvalidUsername is returned for an empty or malformed username.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrBadLogin is returned for any unknown-user or wrong-password login.
	// It is deliberately indistinguishable between the two.
	ErrBadLogin = errors.New("bad username or password")
)
