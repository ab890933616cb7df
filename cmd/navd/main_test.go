package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/navcache/auth"
	"github.com/jonwraymond/navcache/health"
	"github.com/jonwraymond/navcache/resilience"
)

const testConfig = `
menus:
  path: menus.yaml
auth:
  signing_key: secretref:file:jwt.key
  rbac:
    roles:
      viewer:
        permissions: ["dashboard:view"]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt.key"), []byte("test-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "navd.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("run() error = %v, want unknown command", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := writeConfig(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"token", "-config", path, "-sub", "alice", "-tenant", "acme", "-roles", "viewer, "}, &out)
	if err != nil {
		t.Fatalf("token error = %v", err)
	}

	authn := auth.NewJWTAuthenticator(auth.JWTConfig{}, auth.NewStaticKeyProvider([]byte("test-key")))
	h := http.Header{}
	h.Set("Authorization", "Bearer "+strings.TrimSpace(out.String()))
	id, err := authn.Authenticate(context.Background(), &auth.AuthRequest{Headers: h})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Subject != "alice" || id.TenantID != "acme" {
		t.Errorf("identity = %+v", id)
	}
	if len(id.Roles) != 1 || id.Roles[0] != "viewer" {
		t.Errorf("Roles = %v, want [viewer]", id.Roles)
	}
}

func TestTokenRequiresSubject(t *testing.T) {
	path := writeConfig(t)
	if err := run(context.Background(), []string{"token", "-config", path}, &bytes.Buffer{}); err == nil {
		t.Fatal("token without -sub succeeded")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitList() = %v", got)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestBreakerChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	checker := breakerChecker(cb)

	if got := checker.Check(context.Background()).Status; got != health.StatusHealthy {
		t.Fatalf("closed circuit status = %v, want healthy", got)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("down") })

	if got := checker.Check(context.Background()).Status; got != health.StatusDegraded {
		t.Fatalf("open circuit status = %v, want degraded", got)
	}
}
