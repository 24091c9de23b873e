package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexusplay/nexusplay/internal/ledger"
)

// ErrInvalidCredentials is returned for a wrong email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrAccountDisabled is returned when authenticating a deactivated account.
var ErrAccountDisabled = errors.New("account disabled")

// ErrWeakPassword is returned when a password fails the minimum policy.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// Service manages account lifecycle. Every account gets a wallet at
// registration so financial operations never have to create one lazily.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService creates a new identity service.
func NewService(repo Repository, l ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: l}
}

// RegisterInput describes a signup request.
type RegisterInput struct {
	Email           string
	Password        string
	FullName        string
	Role            string
	AgentID         string
	AffiliateLinkID string
}

// Register creates an account with a bcrypt-hashed password and provisions its
// wallet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if len(in.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	if in.Role == "" {
		in.Role = RoleUser
	}
	if !ValidRole(in.Role) {
		return User{}, errors.New("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:              uuid.New().String(),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:        in.FullName,
		PasswordHash:    hash,
		Role:            in.Role,
		AgentID:         in.AgentID,
		AffiliateLinkID: in.AffiliateLinkID,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	if _, err := s.ledger.EnsureWallet(ctx, user.ID); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials against the stored hash.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return User{}, ErrAccountDisabled
	}
	return user, nil
}

// Get fetches a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Players lists the accounts onboarded under an agent. A non-empty search
// narrows by email or name substring.
func (s *Service) Players(ctx context.Context, agentID, search string, limit, offset int) ([]User, error) {
	return s.repo.ListByAgent(ctx, agentID, search, limit, offset)
}

// CreatePlayer registers a player on behalf of an agent.
func (s *Service) CreatePlayer(ctx context.Context, agentID string, in RegisterInput) (User, error) {
	in.Role = RoleUser
	in.AgentID = agentID
	return s.Register(ctx, in)
}

// Deactivate disables an account and freezes its wallet.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	return s.ledger.SetFrozen(ctx, id, true)
}

// Reactivate re-enables an account and thaws its wallet.
func (s *Service) Reactivate(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	return s.ledger.SetFrozen(ctx, id, false)
}

// RevokeTokens bumps the user's token version so outstanding refresh tokens
// stop working.
func (s *Service) RevokeTokens(ctx context.Context, id string) (int, error) {
	return s.repo.BumpTokenVersion(ctx, id)
}
