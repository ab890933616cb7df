package auth

import (
	"net/http"
	"time"

	"github.com/jonwraymond/navcache/nav"
)

// PrincipalFunc authenticates r and maps the identity through roles. It
// matches the shape navigation handlers expect.
func PrincipalFunc(authn Authenticator, roles *RoleResolver) func(*http.Request) (nav.Principal, error) {
	return func(r *http.Request) (nav.Principal, error) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			var err error
			id, err = authn.Authenticate(r.Context(), RequestFromHTTP(r))
			if err != nil {
				return nav.Principal{}, err
			}
		}
		if id.Expired(time.Now()) {
			return nav.Principal{}, ErrTokenExpired
		}
		return roles.Principal(id), nil
	}
}

// Middleware authenticates every request and stores the identity in its
// context. Requests whose credentials are rejected get 401.
func Middleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r.Context(), RequestFromHTTP(r))
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
