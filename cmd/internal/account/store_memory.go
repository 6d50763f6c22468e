package account

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"sonar/cmd/internal/auth/token"
)

// MemoryStore implements Store over a token.MemoryStore so that the db-less
// dev mode and tests share one set of users between account and token
// operations.
type MemoryStore struct {
	backend *token.MemoryStore
}

// NewMemoryStore wraps a token.MemoryStore.
func NewMemoryStore(backend *token.MemoryStore) *MemoryStore {
	return &MemoryStore{backend: backend}
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(_ context.Context, username, credential, realName, blurb string) (token.User, error) {
	u := token.User{
		ID:        ulid.Make().String(),
		Username:  username,
		RealName:  realName,
		Blurb:     blurb,
		CreatedAt: time.Now().UTC(),
	}
	if !s.backend.PutUser(u, credential) {
		return token.User{}, ErrUsernameTaken
	}
	return u, nil
}

// FindByUsername implements Store.
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (token.User, string, error) {
	u, credential, ok := s.backend.UserByUsername(username)
	if !ok {
		return token.User{}, "", token.ErrUserNotFound
	}
	return u, credential, nil
}
