package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", 30*time.Minute)
	token, jti, err := issuer.Issue("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if jti == "" {
		t.Fatal("token ID must be set")
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify fresh token: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "alice@x.com" || claims.Role != "user" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.TokenID != jti {
		t.Fatalf("jti mismatch: %q vs %q", claims.TokenID, jti)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)
	token, _, err := issuer.Issue("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := NewIssuer("secret-a", time.Minute).Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewIssuer("secret-b", time.Minute).Verify(token); err == nil {
		t.Fatal("token signed with a different secret must not verify")
	}
}

func TestVerifyGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := issuer.Verify(tok); err == nil {
			t.Fatalf("garbage %q must not verify", tok)
		}
	}
}

func TestTokenIDEntropy(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		_, jti, err := issuer.Issue("user-1", "a@x.com", "user")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if seen[jti] {
			t.Fatal("duplicate token ID")
		}
		seen[jti] = true
	}
}
