package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	return NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatal("expected login to fail with wrong password")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatal("expected login to fail for unknown user")
	}
}

func TestParseTokenRejectsTamperedToken(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "cashier123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	tampered := resp.Token[:len(resp.Token)-4] + "XXXX"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	other := NewAuthManager("a-different-secret", time.Hour, nil)
	if _, err := other.ParseToken(resp.Token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []struct {
		name string
		req  domain.CreateCashierRequest
	}{
		{"short username", domain.CreateCashierRequest{Username: "ab", Password: "secret99"}},
		{"username with space", domain.CreateCashierRequest{Username: "bad name", Password: "secret99"}},
		{"short password", domain.CreateCashierRequest{Username: "newcashier", Password: "123"}},
		{"duplicate username", domain.CreateCashierRequest{Username: "cashier", Password: "secret99"}},
	}
	for _, tc := range cases {
		if _, err := auth.CreateCashier(tc.req); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestCreateCashierPersistsAndLists(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	created, err := auth.CreateCashier(domain.CreateCashierRequest{
		Username: "budi",
		Password: "rahasia1",
		FullName: "Budi Santoso",
	})
	if err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	if created.Role != domain.RoleCashier || !created.Active {
		t.Fatalf("unexpected cashier: %+v", created)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "budi", Password: "rahasia1"}); err != nil {
		t.Fatalf("new cashier login: %v", err)
	}

	var found bool
	for _, cashier := range auth.ListCashiers() {
		if cashier.Username == "budi" {
			found = true
			if cashier.FullName != "Budi Santoso" {
				t.Fatalf("full name not kept: %+v", cashier)
			}
		}
	}
	if !found {
		t.Fatal("created cashier missing from listing")
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	var stored bool
	for _, user := range users {
		if user.Username == "budi" {
			stored = true
			if !strings.HasPrefix(user.Password, "$2") {
				t.Fatalf("stored password not bcrypt hashed: %q", user.Password)
			}
		}
	}
	if !stored {
		t.Fatal("created cashier not persisted to user store")
	}
}
