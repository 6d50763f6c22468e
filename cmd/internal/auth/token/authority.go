package token

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const (
	// KeyLength is the length of an issued session key in characters.
	KeyLength = 64

	// HeaderPrefix is the literal each Authorization header value must
	// begin with.
	HeaderPrefix = "Token "

	// maxKeyAttempts bounds the search for an unused key. Exceeding it is
	// astronomically unlikely with a 64-character keyspace, but the search
	// must never retry unboundedly.
	maxKeyAttempts = 10
)

// keyAlphabet is the printable ASCII range '!'..'~' (94 symbols).
var keyAlphabet = func() string {
	var b []byte
	for c := byte('!'); c <= '~'; c++ {
		b = append(b, c)
	}
	return string(b)
}()

// Authority issues and validates session tokens against an injected Store.
type Authority struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewAuthority constructs an Authority. The store handle is required; there
// is no hidden global state.
func NewAuthority(store Store, log *slog.Logger) *Authority {
	if log == nil {
		log = slog.Default()
	}
	return &Authority{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// InvalidateFor deletes every token owned by userID.
// Idempotent: invalidating a user with no tokens is success.
func (a *Authority) InvalidateFor(ctx context.Context, userID string) error {
	const op = "token.InvalidateFor"

	if err := a.store.DeleteTokensForUser(ctx, userID); err != nil {
		return AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: err.Error()}
	}
	return nil
}

// CreateFor issues a fresh key for userID, replacing any previously live
// token. Returns the new key.
//
// Candidate keys are checked against the whole token table before the write,
// and the write itself treats a key-column conflict as one more failed
// attempt, so two interleaved logins can never both install the same key.
func (a *Authority) CreateFor(ctx context.Context, userID string) (string, error) {
	const op = "token.CreateFor"

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := NewKey()

		exists, err := a.store.TokenKeyExists(ctx, key)
		if err != nil {
			return "", AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: err.Error()}
		}
		if exists {
			continue
		}

		err = a.store.ReplaceToken(ctx, userID, key, a.now())
		if errors.Is(err, ErrDuplicateKey) {
			// Lost the race to a concurrent issuance of the same key.
			continue
		}
		if err != nil {
			return "", AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: err.Error()}
		}
		return key, nil
	}

	a.log.Error("token.create.keyspace_exhausted", "user_id", userID, "attempts", maxKeyAttempts)
	return "", AuthError{Op: op, Kind: ErrKeyspaceExhausted, Msg: "could not generate an unused token key"}
}

// Authenticate resolves the user presenting an Authorization header.
//
// headerValues must hold every value of the request's Authorization header;
// anything but exactly one well-formed `Token <key>` value is rejected
// before the store is consulted.
func (a *Authority) Authenticate(ctx context.Context, headerValues []string) (User, error) {
	const op = "token.Authenticate"

	if len(headerValues) != 1 {
		return User{}, AuthError{
			Op:   op,
			Kind: ErrMalformedRequest,
			Msg:  "`Authorization` header must appear exactly once",
		}
	}
	value := headerValues[0]
	if !strings.HasPrefix(value, HeaderPrefix) {
		return User{}, AuthError{
			Op:   op,
			Kind: ErrMalformedRequest,
			Msg:  "`Authorization` header must begin with the string '" + HeaderPrefix + "'",
		}
	}

	// The remainder is looked up verbatim; no trimming or normalization.
	key := value[len(HeaderPrefix):]

	tok, err := a.store.FindTokenByKey(ctx, key)
	if errors.Is(err, ErrTokenNotFound) {
		return User{}, AuthError{Op: op, Kind: ErrInvalidCredential, Msg: "Token presented was not valid"}
	}
	if err != nil {
		return User{}, AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: err.Error()}
	}

	user, err := a.store.FindUserByID(ctx, tok.UserID)
	if errors.Is(err, ErrUserNotFound) {
		// A token without a user is corrupted state, never an auth failure.
		a.log.Error("token.authenticate.orphaned_token", "token_id", tok.ID, "user_id", tok.UserID)
		return User{}, AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: "token references a missing user"}
	}
	if err != nil {
		return User{}, AuthError{Op: op, Kind: ErrStoreUnavailable, Msg: err.Error()}
	}

	return user, nil
}

// NewKey returns a fresh 64-character key drawn uniformly from the printable
// ASCII alphabet.
//
// It panics if the OS random source is unavailable; that is a process-level
// fault, not a recoverable error.
func NewKey() string {
	// Largest multiple of len(keyAlphabet) that fits in a byte; bytes at or
	// above it are rejected to keep the draw uniform.
	limit := byte(len(keyAlphabet) * (256 / len(keyAlphabet)))

	out := make([]byte, 0, KeyLength)
	buf := make([]byte, KeyLength)
	for len(out) < KeyLength {
		if _, err := rand.Read(buf); err != nil {
			panic("token: OS random source unavailable: " + err.Error())
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(out) == KeyLength {
				break
			}
		}
	}
	return string(out)
}
