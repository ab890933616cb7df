package auth

import (
	"context"
	"net/http"
)

// Authenticator validates request credentials.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate wraps ErrMissingCredentials, ErrInvalidCredentials,
// ErrTokenExpired, or ErrTokenMalformed for rejected credentials.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error)
}

// AuthRequest carries the credentials of one request.
type AuthRequest struct {
	Headers http.Header
}

// RequestFromHTTP builds an AuthRequest from r.
func RequestFromHTTP(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header}
}

// Header returns the first value of key.
func (r *AuthRequest) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc struct {
	name string
	fn   func(ctx context.Context, req *AuthRequest) (*Identity, error)
}

// NewAuthenticatorFunc creates a named Authenticator from fn.
func NewAuthenticatorFunc(name string, fn func(ctx context.Context, req *AuthRequest) (*Identity, error)) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, fn: fn}
}

func (f *AuthenticatorFunc) Name() string { return f.name }

func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error) {
	return f.fn(ctx, req)
}

var _ Authenticator = (*AuthenticatorFunc)(nil)
