package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/posrapor/posrapor/internal/shared"
	"github.com/posrapor/posrapor/internal/tenant"
)

// UserStore is the slice of the catalog the auth flow needs.
type UserStore interface {
	CredentialsByEmail(ctx context.Context, email string) (tenant.Credentials, error)
	UserByID(ctx context.Context, id int64) (*tenant.User, error)
	TouchLastSeen(ctx context.Context, userID int64) error
}

// Service verifies credentials and issues tokens.
type Service struct {
	store  UserStore
	tokens *TokenManager
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the catalog with the token manager.
func NewService(store UserStore, tokens *TokenManager, logger *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, logger: logger, now: time.Now}
}

// Login checks the password against the catalog hash and returns a signed
// token with the loaded user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *tenant.User, error) {
	creds, err := s.store.CredentialsByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	user, err := s.store.UserByID(ctx, creds.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := s.store.TouchLastSeen(ctx, user.ID); err != nil {
		s.logger.Warn("touch last seen", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
