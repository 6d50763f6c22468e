package token

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUser(t *testing.T, store *MemoryStore, username string) User {
	t.Helper()

	u := User{
		ID:        "user-" + username,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if !store.PutUser(u, "$argon2$unused$0000$") {
		t.Fatalf("seed user %q: username taken", username)
	}
	return u
}

func TestNewKey_LengthAndAlphabet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		key := NewKey()
		if len(key) != KeyLength {
			t.Fatalf("key length = %d, want %d", len(key), KeyLength)
		}
		for j := 0; j < len(key); j++ {
			if key[j] < '!' || key[j] > '~' {
				t.Fatalf("key byte %q outside printable ASCII", key[j])
			}
		}
		if seen[key] {
			t.Fatalf("duplicate key generated")
		}
		seen[key] = true
	}
}

func TestCreateFor_ReplacesPreviousToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	u := seedUser(t, store, "alice")
	a := NewAuthority(store, nil)

	k1, err := a.CreateFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateFor 1: %v", err)
	}
	k2, err := a.CreateFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateFor 2: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("expected distinct keys")
	}

	if _, err := a.Authenticate(ctx, []string{HeaderPrefix + k1}); !IsInvalidCredential(err) {
		t.Fatalf("old key: expected invalid credential, got %v", err)
	}

	got, err := a.Authenticate(ctx, []string{HeaderPrefix + k2})
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved user %q, want %q", got.ID, u.ID)
	}
}

func TestCreateFor_DoesNotDisturbOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	a := NewAuthority(store, nil)

	aliceKey, err := a.CreateFor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("CreateFor alice: %v", err)
	}
	if _, err := a.CreateFor(ctx, bob.ID); err != nil {
		t.Fatalf("CreateFor bob: %v", err)
	}

	if _, err := a.Authenticate(ctx, []string{HeaderPrefix + aliceKey}); err != nil {
		t.Fatalf("alice key invalidated by bob's login: %v", err)
	}
}

func TestAuthenticate_HeaderValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := NewAuthority(store, nil)

	cases := map[string][]string{
		"absent header":     nil,
		"duplicated header": {HeaderPrefix + NewKey(), HeaderPrefix + NewKey()},
		"missing prefix":    {NewKey()},
		"lowercase prefix":  {"token " + NewKey()},
		"bearer scheme":     {"Bearer " + NewKey()},
	}

	for name, values := range cases {
		_, err := a.Authenticate(ctx, values)
		if !IsMalformedRequest(err) {
			t.Errorf("%s: expected malformed request, got %v", name, err)
		}
	}
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	ctx := context.Background()
	a := NewAuthority(NewMemoryStore(), nil)

	_, err := a.Authenticate(ctx, []string{HeaderPrefix + NewKey()})
	if !IsInvalidCredential(err) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
	if Message(err) != "Token presented was not valid" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestAuthenticate_OrphanedTokenIsStoreFault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	u := seedUser(t, store, "alice")
	a := NewAuthority(store, nil)

	key, err := a.CreateFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateFor: %v", err)
	}

	// Corrupt the store: the token row survives its user.
	store.RemoveUser(u.ID)

	_, err = a.Authenticate(ctx, []string{HeaderPrefix + key})
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if IsInvalidCredential(err) {
		t.Fatalf("orphaned token must not look like an auth failure")
	}
}

func TestInvalidateFor_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	u := seedUser(t, store, "alice")
	a := NewAuthority(store, nil)

	if err := a.InvalidateFor(ctx, u.ID); err != nil {
		t.Fatalf("invalidate with no tokens: %v", err)
	}

	key, err := a.CreateFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateFor: %v", err)
	}
	if err := a.InvalidateFor(ctx, u.ID); err != nil {
		t.Fatalf("InvalidateFor: %v", err)
	}
	if _, err := a.Authenticate(ctx, []string{HeaderPrefix + key}); !IsInvalidCredential(err) {
		t.Fatalf("key survived invalidation: %v", err)
	}
	if err := a.InvalidateFor(ctx, u.ID); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

// collidingStore reports every candidate key as taken.
type collidingStore struct {
	Store
	checks int
}

func (s *collidingStore) TokenKeyExists(context.Context, string) (bool, error) {
	s.checks++
	return true, nil
}

func TestCreateFor_BoundedRetry(t *testing.T) {
	ctx := context.Background()
	store := &collidingStore{Store: NewMemoryStore()}
	a := NewAuthority(store, nil)

	_, err := a.CreateFor(ctx, "user-alice")
	if !errors.Is(err, ErrKeyspaceExhausted) {
		t.Fatalf("expected keyspace exhausted, got %v", err)
	}
	if store.checks != 10 {
		t.Fatalf("expected exactly 10 attempts, got %d", store.checks)
	}
}

// failingStore returns a fixed error from every operation it overrides.
type failingStore struct {
	Store
	err error
}

func (s failingStore) TokenKeyExists(context.Context, string) (bool, error) { return false, s.err }
func (s failingStore) FindTokenByKey(context.Context, string) (Token, error) {
	return Token{}, s.err
}
func (s failingStore) DeleteTokensForUser(context.Context, string) error { return s.err }

func TestStoreFailuresMapToStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	a := NewAuthority(failingStore{Store: NewMemoryStore(), err: boom}, nil)

	if _, err := a.CreateFor(ctx, "u"); !IsStoreUnavailable(err) {
		t.Fatalf("CreateFor: expected store unavailable, got %v", err)
	}
	if _, err := a.Authenticate(ctx, []string{HeaderPrefix + NewKey()}); !IsStoreUnavailable(err) {
		t.Fatalf("Authenticate: expected store unavailable, got %v", err)
	}
	if err := a.InvalidateFor(ctx, "u"); !IsStoreUnavailable(err) {
		t.Fatalf("InvalidateFor: expected store unavailable, got %v", err)
	}
}
