package auth

import (
	"context"
	"errors"
	"time"

	"github.com/nexusplay/nexusplay/internal/config"
	"github.com/nexusplay/nexusplay/internal/identity"
)

// Service issues and verifies token pairs. The access token carries the role
// claim used for authorization; the refresh token carries the user's token
// version so logout can invalidate it.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService builds an auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair is the login response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues a token pair for an already-authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	now := time.Now()
	access, err := s.sign(user, s.cfg.JWTSecret, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, s.cfg.RefreshSecret, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := map[string]any{
		"sub":  user.ID,
		"role": user.Role,
		"ver":  user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return SignHS256(claims, []byte(secret))
}

// Refresh verifies the refresh token against the stored token version and
// issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseAndVerifyHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	sub, _ := claims["sub"].(string)
	verFloat, _ := claims["ver"].(float64)

	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	if user.TokenVersion != int(verFloat) {
		return "", 0, errors.New("token revoked")
	}
	if !user.Active {
		return "", 0, errors.New("account disabled")
	}

	access, err := s.sign(user, s.cfg.JWTSecret, time.Now(), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout bumps the user's token version so outstanding refresh tokens stop
// verifying.
func (s *Service) Logout(ctx context.Context, userID string) error {
	_, err := s.idRepo.BumpTokenVersion(ctx, userID)
	return err
}
