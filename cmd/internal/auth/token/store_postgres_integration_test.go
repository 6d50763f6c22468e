package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Integration tests are opt-in and require SONAR_TEST_DATABASE_URL.

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("SONAR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SONAR_TEST_DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	ctx := context.Background()
	schema := "sonar_test_" + ulid.Make().String()

	ddl := []string{
		`CREATE SCHEMA ` + schema,
		`CREATE TABLE ` + schema + `.users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			real_name TEXT NOT NULL DEFAULT '',
			blurb TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT users_username_unique UNIQUE (username)
		)`,
		`CREATE TABLE ` + schema + `.auth_tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES ` + schema + `.users (id) ON DELETE CASCADE,
			key TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT auth_tokens_one_per_user UNIQUE (user_id),
			CONSTRAINT auth_tokens_key_unique UNIQUE (key)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("schema setup: %v", err)
		}
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
	})
	return schema
}

func mustInsertTestUser(t *testing.T, pool *pgxpool.Pool, schema, username string) string {
	t.Helper()

	id := ulid.Make().String()
	_, err := pool.Exec(context.Background(),
		fmt.Sprintf(`INSERT INTO %s.users (id, username, password) VALUES ($1, $2, 'x')`, schema),
		id, username,
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func TestPostgresStore_ReplaceToken_Atomic(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	userID := mustInsertTestUser(t, pool, schema, "alice")

	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := s.ReplaceToken(ctx, userID, "key-one", now); err != nil {
		t.Fatalf("replace 1: %v", err)
	}
	if err := s.ReplaceToken(ctx, userID, "key-two", now); err != nil {
		t.Fatalf("replace 2: %v", err)
	}

	if _, err := s.FindTokenByKey(ctx, "key-one"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("old key should be gone, got %v", err)
	}
	tok, err := s.FindTokenByKey(ctx, "key-two")
	if err != nil {
		t.Fatalf("find new key: %v", err)
	}
	if tok.UserID != userID {
		t.Fatalf("token owner = %q, want %q", tok.UserID, userID)
	}

	var count int
	if err := pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s.auth_tokens WHERE user_id = $1`, schema),
		userID,
	).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one live token, got %d", count)
	}
}

func TestPostgresStore_ReplaceToken_KeyConflict(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	alice := mustInsertTestUser(t, pool, schema, "alice")
	bob := mustInsertTestUser(t, pool, schema, "bob")

	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := s.ReplaceToken(ctx, alice, "shared-key", now); err != nil {
		t.Fatalf("replace alice: %v", err)
	}
	if err := s.ReplaceToken(ctx, bob, "shared-key", now); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPostgresStore_FindAndDelete(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	userID := mustInsertTestUser(t, pool, schema, "alice")

	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.InsertToken(ctx, userID, "the-key", time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	exists, err := s.TokenKeyExists(ctx, "the-key")
	if err != nil || !exists {
		t.Fatalf("exists=%v err=%v, want true,nil", exists, err)
	}

	u, err := s.FindUserByID(ctx, userID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("username = %q", u.Username)
	}

	if err := s.DeleteTokensForUser(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting zero rows is success.
	if err := s.DeleteTokensForUser(ctx, userID); err != nil {
		t.Fatalf("idempotent delete: %v", err)
	}
	if _, err := s.FindTokenByKey(ctx, "the-key"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}
