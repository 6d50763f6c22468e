package token

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_InsertToken_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if err := s.InsertToken(ctx, "u1", "key-one", now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertToken(ctx, "u2", "key-one", now); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemoryStore_ReplaceToken_OnePerUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if err := s.ReplaceToken(ctx, "u1", "key-one", now); err != nil {
		t.Fatalf("replace 1: %v", err)
	}
	if err := s.ReplaceToken(ctx, "u1", "key-two", now); err != nil {
		t.Fatalf("replace 2: %v", err)
	}

	if _, err := s.FindTokenByKey(ctx, "key-one"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("old key should be gone, got %v", err)
	}
	tok, err := s.FindTokenByKey(ctx, "key-two")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if tok.UserID != "u1" {
		t.Fatalf("token owner = %q, want u1", tok.UserID)
	}
}

func TestMemoryStore_ReplaceToken_KeyHeldByOtherUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if err := s.ReplaceToken(ctx, "u1", "shared-key", now); err != nil {
		t.Fatalf("replace u1: %v", err)
	}
	if err := s.ReplaceToken(ctx, "u2", "shared-key", now); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// u1's token must be untouched by the failed replace.
	tok, err := s.FindTokenByKey(ctx, "shared-key")
	if err != nil || tok.UserID != "u1" {
		t.Fatalf("u1 token disturbed: tok=%+v err=%v", tok, err)
	}
}

func TestMemoryStore_TokenKeyExists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	exists, err := s.TokenKeyExists(ctx, "nope")
	if err != nil || exists {
		t.Fatalf("exists=%v err=%v, want false,nil", exists, err)
	}

	if err := s.InsertToken(ctx, "u1", "yep", time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	exists, err = s.TokenKeyExists(ctx, "yep")
	if err != nil || !exists {
		t.Fatalf("exists=%v err=%v, want true,nil", exists, err)
	}
}
