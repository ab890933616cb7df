package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("NAVCACHE_TEST_HOST", "example.org")

	tests := []struct {
		in, want string
		err      bool
	}{
		{"plain", "plain", false},
		{"${NAVCACHE_TEST_HOST}:443", "example.org:443", false},
		{"$NAVCACHE_TEST_HOST", "example.org", false},
		{"cost $$5", "cost $5", false},
		{"${NAVCACHE_TEST_MISSING_B} ${NAVCACHE_TEST_MISSING_A}", "", true},
		{"$NAVCACHE_TEST_UNBRACED_MISSING", "", false},
	}
	for _, tt := range tests {
		got, err := ExpandEnvStrict(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ExpandEnvStrict(%q) err = %v", tt.in, err)
			continue
		}
		if tt.err {
			if !errors.Is(err, ErrMissingEnv) {
				t.Errorf("err = %v, want ErrMissingEnv", err)
			}
			if err.Error() != "secret: missing environment variables: NAVCACHE_TEST_MISSING_A, NAVCACHE_TEST_MISSING_B" {
				t.Errorf("message = %q", err.Error())
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in            string
		provider, ref string
		ok            bool
	}{
		{"secretref:env:JWT_KEY", "env", "JWT_KEY", true},
		{"secretref:file:/run/secrets/key", "file", "/run/secrets/key", true},
		{"secretref:vault:kv/a:b", "vault", "kv/a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"env:JWT_KEY", "", "", false},
	}
	for _, tt := range tests {
		p, ref, ok := ParseSecretRef(tt.in)
		if p != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, p, ref, ok)
		}
	}
}

func TestResolver(t *testing.T) {
	t.Setenv("NAVCACHE_TEST_KEY", "s3cr3t")
	t.Setenv("NAVCACHE_TEST_EMPTY", "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "key"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(true, EnvProvider{}, FileProvider{Dir: dir})
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
		err  error
	}{
		{"secretref:env:NAVCACHE_TEST_KEY", "s3cr3t", nil},
		{"secretref:file:key", "from-file", nil},
		{"key=secretref:env:NAVCACHE_TEST_KEY;", "key=s3cr3t;", nil},
		{"a secretref:env:NAVCACHE_TEST_KEY b secretref:file:key", "a s3cr3t b from-file", nil},
		{"secretref:vault:x", "", ErrProviderNotRegistered},
		{"secretref:env:NAVCACHE_TEST_EMPTY", "", ErrEmptySecret},
		{"secretref:env:NAVCACHE_TEST_NOPE", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		got, err := r.ResolveValue(ctx, tt.in)
		if !errors.Is(err, tt.err) {
			t.Errorf("ResolveValue(%q) err = %v, want %v", tt.in, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := r.ResolveValue(ctx, "secretref:file:absent"); err == nil {
		t.Error("missing file resolved")
	}
}

func TestResolver_NilAndResolveAll(t *testing.T) {
	t.Setenv("NAVCACHE_TEST_KEY", "v")
	var nilResolver *Resolver
	if got, err := nilResolver.ResolveValue(context.Background(), "${NAVCACHE_TEST_KEY}"); err != nil || got != "v" {
		t.Errorf("nil resolver = %q, %v", got, err)
	}

	r := NewResolver(false, EnvProvider{})
	a, b, empty := "secretref:env:NAVCACHE_TEST_KEY", "${NAVCACHE_TEST_KEY}-x", ""
	if err := r.ResolveAll(context.Background(), &a, &b, &empty, nil); err != nil {
		t.Fatal(err)
	}
	if a != "v" || b != "v-x" || empty != "" {
		t.Errorf("ResolveAll = %q %q %q", a, b, empty)
	}
}
