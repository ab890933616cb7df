package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures JWTAuthenticator. Zero fields take defaults.
type JWTConfig struct {
	// Issuer, when set, must equal the iss claim.
	Issuer string `yaml:"issuer"`

	// Audience, when set, must appear in the aud claim.
	Audience string `yaml:"audience"`

	// HeaderName carries the token. Default: "Authorization".
	HeaderName string `yaml:"header_name"`

	// TokenPrefix precedes the token in the header. Default: "Bearer ".
	TokenPrefix string `yaml:"token_prefix"`

	// SubjectClaim names the user id claim. Default: "sub".
	SubjectClaim string `yaml:"subject_claim"`

	// TenantClaim names the tenant claim. Default: "tenant_id".
	TenantClaim string `yaml:"tenant_claim"`

	// RolesClaim names the roles claim, a list or a space-separated
	// string. Default: "roles".
	RolesClaim string `yaml:"roles_claim"`

	// PermissionsClaim names the direct permissions claim. Default:
	// "permissions".
	PermissionsClaim string `yaml:"permissions_claim"`

	// AdminClaim names the boolean system administrator claim. Default:
	// "admin".
	AdminClaim string `yaml:"admin_claim"`

	// Algorithms lists the accepted signing methods. Default: HS256.
	Algorithms []string `yaml:"algorithms"`

	// Leeway tolerates clock skew on time-based claims.
	Leeway time.Duration `yaml:"leeway"`
}

func (c JWTConfig) withDefaults() JWTConfig {
	if c.HeaderName == "" {
		c.HeaderName = "Authorization"
	}
	if c.TokenPrefix == "" {
		c.TokenPrefix = "Bearer "
	}
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if c.PermissionsClaim == "" {
		c.PermissionsClaim = "permissions"
	}
	if c.AdminClaim == "" {
		c.AdminClaim = "admin"
	}
	if len(c.Algorithms) == 0 {
		c.Algorithms = []string{jwt.SigningMethodHS256.Alg()}
	}
	return c
}

// KeyProvider returns the verification key for a key id.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves one symmetric key for every key id.
type StaticKeyProvider struct {
	key []byte
}

func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator validates bearer JWTs.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewJWTAuthenticator creates an authenticator verifying tokens with keys.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	config = config.withDefaults()
	opts := []jwt.ParserOption{jwt.WithValidMethods(config.Algorithms)}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}
	return &JWTAuthenticator{config: config, keys: keys, parser: jwt.NewParser(opts...)}
}

func (a *JWTAuthenticator) Name() string { return "jwt" }

// Authenticate validates the bearer token of req.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error) {
	header := req.Header(a.config.HeaderName)
	raw, ok := strings.CutPrefix(header, a.config.TokenPrefix)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case !token.Valid:
		return nil, ErrInvalidCredentials
	}

	id := a.identity(claims)
	if id.Subject == "" {
		return nil, fmt.Errorf("%w: missing %s claim", ErrInvalidCredentials, a.config.SubjectClaim)
	}
	return id, nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method:      AuthMethodJWT,
		Claims:      make(map[string]any, len(claims)),
		Roles:       stringsClaim(claims[a.config.RolesClaim]),
		Permissions: stringsClaim(claims[a.config.PermissionsClaim]),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Subject, _ = claims[a.config.SubjectClaim].(string)
	id.TenantID, _ = claims[a.config.TenantClaim].(string)
	id.SystemAdmin, _ = claims[a.config.AdminClaim].(bool)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

// stringsClaim accepts a JSON list of strings or a space-separated string.
func stringsClaim(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SignHS256 issues an HS256 token for id under config's claim names,
// valid for ttl. It is meant for tests and local tooling.
func SignHS256(config JWTConfig, key []byte, id *Identity, ttl time.Duration) (string, error) {
	config = config.withDefaults()
	now := time.Now()
	claims := jwt.MapClaims{
		config.SubjectClaim: id.Subject,
		"iat":               now.Unix(),
		"exp":               now.Add(ttl).Unix(),
	}
	if id.TenantID != "" {
		claims[config.TenantClaim] = id.TenantID
	}
	if len(id.Roles) > 0 {
		claims[config.RolesClaim] = id.Roles
	}
	if len(id.Permissions) > 0 {
		claims[config.PermissionsClaim] = id.Permissions
	}
	if id.SystemAdmin {
		claims[config.AdminClaim] = true
	}
	if config.Issuer != "" {
		claims["iss"] = config.Issuer
	}
	if config.Audience != "" {
		claims["aud"] = config.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
