package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz-battle-service/internal/auth"
)

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--user", "u42", "--name", "Lan"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	id, err := auth.NewIssuer("cli-secret", time.Hour).Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "u42" || id.Name != "Lan" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--user", "u42"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}
