package token

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it. Every
// operation acquires a connection from the pool for exactly its own
// duration, so nothing is held across unrelated work.
//
// ReplaceToken is a single upsert keyed by user_id: the auth_tokens table
// carries one row per user, and the key column is regenerated in place under
// its own unique constraint. That makes "replace this user's token" one
// atomic write.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "sonar").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("token: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("token: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "sonar",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("token: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) tokens() string { return s.schema + ".auth_tokens" }
func (s *PostgresStore) users() string  { return s.schema + ".users" }

// FindTokenByKey implements Store.
func (s *PostgresStore) FindTokenByKey(ctx context.Context, key string) (Token, error) {
	var tok Token
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, key, issued_at FROM `+s.tokens()+` WHERE key = $1`,
		key,
	).Scan(&tok.ID, &tok.UserID, &tok.Key, &tok.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// FindUserByID implements Store.
func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, real_name, blurb, created_at FROM `+s.users()+` WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.RealName, &u.Blurb, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// TokenKeyExists implements Store.
func (s *PostgresStore) TokenKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.tokens()+` WHERE key = $1)`,
		key,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteTokensForUser implements Store. Deleting zero rows is success.
func (s *PostgresStore) DeleteTokensForUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.tokens()+` WHERE user_id = $1`,
		userID,
	)
	return err
}

// InsertToken implements Store.
func (s *PostgresStore) InsertToken(ctx context.Context, userID, key string, issuedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.tokens()+` (id, user_id, key, issued_at) VALUES ($1, $2, $3, $4)`,
		ulid.Make().String(), userID, key, issuedAt,
	)
	if isKeyConflict(err) {
		return ErrDuplicateKey
	}
	return err
}

// ReplaceToken implements Store.
func (s *PostgresStore) ReplaceToken(ctx context.Context, userID, key string, issuedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.tokens()+` (id, user_id, key, issued_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET key = EXCLUDED.key, issued_at = EXCLUDED.issued_at`,
		ulid.Make().String(), userID, key, issuedAt,
	)
	if isKeyConflict(err) {
		return ErrDuplicateKey
	}
	return err
}

// isKeyConflict reports whether err is a unique violation on the token key
// column (constraint auth_tokens_key_unique in the migrations).
func isKeyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == "auth_tokens_key_unique"
}
