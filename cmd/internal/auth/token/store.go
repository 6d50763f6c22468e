package token

import (
	"context"
	"time"
)

// User is the security principal resolved by authentication.
// The authority reads users through the store and never mutates them.
type User struct {
	ID       string
	Username string
	RealName string
	Blurb    string

	CreatedAt time.Time
}

// Token is one live session token row.
//
// IssuedAt is stored but not read back for expiry; no expiry semantics exist
// in the current design.
type Token struct {
	ID       string
	UserID   string
	IssuedAt time.Time
	Key      string
}

// Store is the credential persistence boundary.
//
// The authority is agnostic to the backing engine; it requires only these
// operations. Implementations must keep ReplaceToken atomic per user so that
// "replace the one live token for this user" never leaves zero or two live
// tokens, and must report a key collision on write as ErrDuplicateKey.
type Store interface {
	// FindTokenByKey looks up a token by its exact key.
	// Returns ErrTokenNotFound when no such key exists.
	FindTokenByKey(ctx context.Context, key string) (Token, error)

	// FindUserByID loads the user owning a token.
	// Returns ErrUserNotFound when the id is unknown.
	FindUserByID(ctx context.Context, id string) (User, error)

	// TokenKeyExists reports whether key is held by any live token,
	// regardless of owner.
	TokenKeyExists(ctx context.Context, key string) (bool, error)

	// DeleteTokensForUser deletes every token owned by userID.
	// Deleting zero rows is success.
	DeleteTokensForUser(ctx context.Context, userID string) error

	// InsertToken inserts a new token row.
	// Returns ErrDuplicateKey if the key is already held.
	InsertToken(ctx context.Context, userID, key string, issuedAt time.Time) error

	// ReplaceToken atomically installs key as the single live token for
	// userID, discarding any previous one.
	// Returns ErrDuplicateKey if the key is already held by another user.
	ReplaceToken(ctx context.Context, userID, key string, issuedAt time.Time) error
}
