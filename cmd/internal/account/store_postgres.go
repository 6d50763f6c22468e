package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"sonar/cmd/internal/auth/token"
)

// PostgresStore implements Store over PostgreSQL.
// The pool is owned by the caller and is never closed here.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresStore constructs a PostgresStore on the given schema
// (default "sonar").
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("account: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "sonar"
	}
	return &PostgresStore{pool: pool, schema: schema}, nil
}

func (s *PostgresStore) users() string { return s.schema + ".users" }

// CreateUser implements Store.
func (s *PostgresStore) CreateUser(ctx context.Context, username, credential, realName, blurb string) (token.User, error) {
	now := time.Now().UTC()
	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.users()+` (id, username, password, real_name, blurb, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, username, credential, realName, blurb, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return token.User{}, ErrUsernameTaken
		}
		return token.User{}, err
	}

	return token.User{
		ID:        id,
		Username:  username,
		RealName:  realName,
		Blurb:     blurb,
		CreatedAt: now,
	}, nil
}

// FindByUsername implements Store.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (token.User, string, error) {
	var (
		u          token.User
		credential string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, real_name, blurb, created_at
		 FROM `+s.users()+` WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &credential, &u.RealName, &u.Blurb, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return token.User{}, "", token.ErrUserNotFound
	}
	if err != nil {
		return token.User{}, "", err
	}
	return u, credential, nil
}
