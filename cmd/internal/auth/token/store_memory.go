package token

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and by the
// db-less dev mode. It also backs the in-memory account store so both share
// one set of users.
type MemoryStore struct {
	mu sync.Mutex

	users       map[string]User   // user id -> user
	credentials map[string]string // user id -> serialized password
	byUsername  map[string]string // username -> user id

	byKey  map[string]Token // key -> token
	byUser map[string]Token // user id -> the one live token
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]User),
		credentials: make(map[string]string),
		byUsername:  make(map[string]string),
		byKey:       make(map[string]Token),
		byUser:      make(map[string]Token),
	}
}

// FindTokenByKey implements Store.
func (s *MemoryStore) FindTokenByKey(_ context.Context, key string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.byKey[key]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return tok, nil
}

// FindUserByID implements Store.
func (s *MemoryStore) FindUserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// TokenKeyExists implements Store.
func (s *MemoryStore) TokenKeyExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byKey[key]
	return ok, nil
}

// DeleteTokensForUser implements Store.
func (s *MemoryStore) DeleteTokensForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteForUserLocked(userID)
	return nil
}

// InsertToken implements Store.
func (s *MemoryStore) InsertToken(_ context.Context, userID, key string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[key]; ok {
		return ErrDuplicateKey
	}
	s.installLocked(userID, key, issuedAt)
	return nil
}

// ReplaceToken implements Store. The whole replace happens under one lock,
// mirroring the single-statement upsert of the Postgres store.
func (s *MemoryStore) ReplaceToken(_ context.Context, userID, key string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.byKey[key]; ok && held.UserID != userID {
		return ErrDuplicateKey
	}
	s.deleteForUserLocked(userID)
	s.installLocked(userID, key, issuedAt)
	return nil
}

func (s *MemoryStore) deleteForUserLocked(userID string) {
	if tok, ok := s.byUser[userID]; ok {
		delete(s.byKey, tok.Key)
		delete(s.byUser, userID)
	}
}

func (s *MemoryStore) installLocked(userID, key string, issuedAt time.Time) {
	tok := Token{
		ID:       ulid.Make().String(),
		UserID:   userID,
		IssuedAt: issuedAt,
		Key:      key,
	}
	s.byKey[key] = tok
	s.byUser[userID] = tok
}

// PutUser stores a user and its serialized credential.
// Reports false when the username is already in use.
func (s *MemoryStore) PutUser(u User, credential string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return false
	}
	s.users[u.ID] = u
	s.credentials[u.ID] = credential
	s.byUsername[u.Username] = u.ID
	return true
}

// UserByUsername returns a user and its serialized credential.
func (s *MemoryStore) UserByUsername(username string) (User, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return User{}, "", false
	}
	return s.users[id], s.credentials[id], true
}

// RemoveUser deletes a user record, leaving any token rows behind.
// Test hook for exercising orphaned-token handling.
func (s *MemoryStore) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		delete(s.byUsername, u.Username)
	}
	delete(s.users, userID)
	delete(s.credentials, userID)
}
