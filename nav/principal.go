package nav

import "strings"

// Wildcard is the permission token that satisfies every requirement.
const Wildcard = "*"

// Principal carries the identity and authorization facts for one request.
// It is constructed per request and never persisted.
type Principal struct {
	UserID      string
	TenantID    string
	Permissions []string
	Role        string
	SystemAdmin bool
}

// Has reports whether the principal holds token. The wildcard "*" matches any
// token, and a token ending in ":*" matches every token sharing its prefix.
func (p Principal) Has(token string) bool {
	for _, held := range p.Permissions {
		if matchToken(held, token) {
			return true
		}
	}
	return false
}

func matchToken(held, required string) bool {
	if held == Wildcard || held == required {
		return true
	}
	if strings.HasSuffix(held, ":*") {
		return strings.HasPrefix(required, strings.TrimSuffix(held, "*"))
	}
	return false
}
