package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sonar/cmd/internal/auth/password"
	"sonar/cmd/internal/auth/token"
)

// MinPasswordLength is the minimum plaintext length accepted at
// registration.
const MinPasswordLength = 16

// Store abstracts user persistence for the account service.
type Store interface {
	// CreateUser stores a new user with its serialized credential.
	// Returns ErrUsernameTaken when the username is in use.
	CreateUser(ctx context.Context, username, credential, realName, blurb string) (token.User, error)

	// FindByUsername returns a user and its serialized credential.
	// Returns token.ErrUserNotFound when the username is unknown.
	FindByUsername(ctx context.Context, username string) (token.User, string, error)
}

// Service registers users and checks login credentials.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService constructs an account Service.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// Register creates a user from a plaintext password.
func (s *Service) Register(ctx context.Context, username, plaintext, realName, blurb string) (token.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return token.User{}, ErrInvalidUsername
	}
	if len(plaintext) < MinPasswordLength {
		return token.User{}, ErrPasswordTooShort
	}

	credential := password.Encode(plaintext).String()
	return s.store.CreateUser(ctx, username, credential, realName, blurb)
}

// Login resolves username+plaintext to the owning user.
//
// A stored credential that fails to parse is treated as a login failure, not
// a crash: the record is unrecognized, and the anomaly is logged once here
// rather than surfaced to the client.
func (s *Service) Login(ctx context.Context, username, plaintext string) (token.User, error) {
	user, credential, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, token.ErrUserNotFound) {
			return token.User{}, ErrBadLogin
		}
		return token.User{}, err
	}

	stored, ok := password.Parse(credential)
	if !ok {
		s.log.Warn("account.login.unrecognized_credential_record", "user_id", user.ID)
		return token.User{}, ErrBadLogin
	}
	if !stored.Verify(plaintext) {
		return token.User{}, ErrBadLogin
	}
	return user, nil
}
