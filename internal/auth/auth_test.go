package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Issue(Identity{UserID: "u1", Name: "Lan"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "u1" || id.Name != "Lan" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, _ := NewIssuer("one", time.Hour).Issue(Identity{UserID: "u1"})
	if _, err := NewIssuer("two", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _ := issuer.Issue(Identity{UserID: "u1"})

	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestContextIdentity(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatalf("expected no identity on bare context")
	}
	ctx := WithUser(context.Background(), Identity{UserID: "u1"})
	id, ok := UserFromContext(ctx)
	if !ok || id.UserID != "u1" {
		t.Fatalf("expected u1, got %+v", id)
	}
}
