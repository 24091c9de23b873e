package auth

import (
	"context"
	"testing"
	"time"

	"github.com/nexusplay/nexusplay/internal/config"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/ledger"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func registerUser(t *testing.T, ids *identity.Service, role string) identity.User {
	t.Helper()
	user, err := ids.Register(context.Background(), identity.RegisterInput{
		Email:    role + "@example.com",
		Password: "s3cret-pass",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, ledger.NewInMemory())
	svc := NewService(cfg, repo)

	user := registerUser(t, ids, identity.RoleAgent)
	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := ParseAndVerifyHS256(pair.AccessToken, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims["sub"] != user.ID {
		t.Fatalf("wrong subject: %v", claims["sub"])
	}
	if claims["role"] != identity.RoleAgent {
		t.Fatalf("role claim missing: %v", claims["role"])
	}

	// The refresh token must not verify under the access secret.
	if _, err := ParseAndVerifyHS256(pair.RefreshToken, []byte(cfg.JWTSecret)); err == nil {
		t.Fatalf("refresh token verified with access secret")
	}
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, ledger.NewInMemory())
	svc := NewService(cfg, repo)
	ctx := context.Background()

	user := registerUser(t, ids, identity.RoleUser)
	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if exp != int64(cfg.AccessTokenTTL.Seconds()) {
		t.Fatalf("unexpected expiry %d", exp)
	}
	if _, err := ParseAndVerifyHS256(access, []byte(cfg.JWTSecret)); err != nil {
		t.Fatalf("verify rotated access: %v", err)
	}
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, ledger.NewInMemory())
	svc := NewService(cfg, repo)
	ctx := context.Background()

	user := registerUser(t, ids, identity.RoleUser)
	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expected revoked refresh token to fail")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := map[string]any{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	token, err := SignHS256(claims, []byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("secret")); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "user-1"}, []byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("other-secret")); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}
