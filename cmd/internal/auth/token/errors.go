package token

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to HTTP status codes).
var (
	// ErrMalformedRequest marks structurally invalid input, such as a
	// missing or duplicated Authorization header.
	ErrMalformedRequest = errors.New("malformed_request")

	// ErrInvalidCredential marks a syntactically valid but unrecognized key.
	ErrInvalidCredential = errors.New("invalid_credential")

	// ErrStoreUnavailable marks a persistence failure or an inconsistency
	// such as a token whose user no longer exists.
	ErrStoreUnavailable = errors.New("store_unavailable")

	// ErrKeyspaceExhausted marks a failed bounded search for an unused key.
	// It implies a keyspace exhaustion bug or a defective random source and
	// is logged as anomalous.
	ErrKeyspaceExhausted = errors.New("keyspace_exhausted")
)

// Store-level sentinels.
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateKey  = errors.New("duplicate token key")
)

// AuthError is a typed authentication error carrying a stable Op + Kind
// contract for callers. Msg may include human-readable context suitable for
// the client when Kind is a client error.
type AuthError struct {
	Op   string
	Kind error
	Msg  string
}

func (e AuthError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e AuthError) Unwrap() error { return e.Kind }

// Message returns the client-facing message of err when it carries one.
func Message(err error) string {
	var ae AuthError
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return ""
}

// IsMalformedRequest reports whether err represents ErrMalformedRequest.
func IsMalformedRequest(err error) bool { return errors.Is(err, ErrMalformedRequest) }

// IsInvalidCredential reports whether err represents ErrInvalidCredential.
func IsInvalidCredential(err error) bool { return errors.Is(err, ErrInvalidCredential) }

// IsStoreUnavailable reports whether err represents ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }
