package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/nexusplay/nexusplay/internal/ledger"
)

func newService() (*Service, ledger.Ledger) {
	l := ledger.NewInMemory()
	return NewService(NewMemoryRepository(), l), l
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, l := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "Player@Example.com", Password: "s3cret-pass", FullName: "Test Player"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected default USER role, got %s", user.Role)
	}
	if user.Email != "player@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}

	// Registration provisions the wallet.
	if _, err := l.WalletByParty(ctx, user.ID); err != nil {
		t.Fatalf("wallet missing after registration: %v", err)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "player@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("wrong user returned")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "a@b.c", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@b.c", Password: "s3cret-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.c", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "A@B.C", Password: "s3cret-pass"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestDeactivateFreezesWallet(t *testing.T) {
	svc, l := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "a@b.c", Password: "s3cret-pass"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	w, _ := l.WalletByParty(ctx, user.ID)
	if !w.Frozen {
		t.Fatalf("deactivation must freeze the wallet")
	}

	if err := svc.Reactivate(ctx, user.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	w, _ = l.WalletByParty(ctx, user.ID)
	if w.Frozen {
		t.Fatalf("reactivation must thaw the wallet")
	}
}

func TestCreatePlayerUnderAgent(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	agent, err := svc.Register(ctx, RegisterInput{Email: "agent@b.c", Password: "s3cret-pass", Role: RoleAgent})
	if err != nil {
		t.Fatalf("register agent: %v", err)
	}
	player, err := svc.CreatePlayer(ctx, agent.ID, RegisterInput{Email: "p1@b.c", Password: "s3cret-pass", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	if player.Role != RoleUser {
		t.Fatalf("agent-created accounts must be players, got %s", player.Role)
	}
	if player.AgentID != agent.ID {
		t.Fatalf("player not linked to agent")
	}

	players, err := svc.Players(ctx, agent.ID, "", 0, 0)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 1 || players[0].ID != player.ID {
		t.Fatalf("expected the one player, got %d", len(players))
	}
}

func TestPlayersSearchByEmailAndName(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	agent, err := svc.Register(ctx, RegisterInput{Email: "agent@b.c", Password: "s3cret-pass", Role: RoleAgent})
	if err != nil {
		t.Fatalf("register agent: %v", err)
	}
	for _, in := range []RegisterInput{
		{Email: "alice@b.c", Password: "s3cret-pass", FullName: "Alice Moreau"},
		{Email: "bob@b.c", Password: "s3cret-pass", FullName: "Bob Kazadi"},
	} {
		if _, err := svc.CreatePlayer(ctx, agent.ID, in); err != nil {
			t.Fatalf("create player: %v", err)
		}
	}

	byEmail, err := svc.Players(ctx, agent.ID, "alice", 0, 0)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].Email != "alice@b.c" {
		t.Fatalf("email search broken: %+v", byEmail)
	}

	// Case-insensitive match on the full name.
	byName, err := svc.Players(ctx, agent.ID, "kazadi", 0, 0)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(byName) != 1 || byName[0].Email != "bob@b.c" {
		t.Fatalf("name search broken: %+v", byName)
	}

	none, err := svc.Players(ctx, agent.ID, "charlie", 0, 0)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestRevokeTokens(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	v1, err := svc.RevokeTokens(ctx, user.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	v2, err := svc.RevokeTokens(ctx, user.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if v2 != v1+1 {
		t.Fatalf("expected monotonically increasing versions, got %d then %d", v1, v2)
	}
}
