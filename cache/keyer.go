package cache

import "strings"

const keySep = ":"

var (
	segmentEscaper   = strings.NewReplacer("%", "%25", ":", "%3A", "*", "%2A")
	segmentUnescaper = strings.NewReplacer("%25", "%", "%3A", ":", "%2A", "*")
)

// escapeSegment makes a key segment free of separators and glob characters.
func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

// Fingerprint identifies one cache slot: a menu rendered for one user in
// one tenant under one role.
type Fingerprint struct {
	MenuID   string
	UserID   string
	TenantID string
	Role     string
}

// Key returns the cache key <menuId>:<userId>:<tenantId>:<role>.
// Segments are escaped so they never contain ':' or '*'.
func (f Fingerprint) Key() string {
	return strings.Join([]string{
		escapeSegment(f.MenuID),
		escapeSegment(f.UserID),
		escapeSegment(f.TenantID),
		escapeSegment(f.Role),
	}, keySep)
}

// ParseKey reverses Fingerprint.Key. It reports false for keys that do not
// have exactly four segments.
func ParseKey(key string) (Fingerprint, bool) {
	parts := strings.Split(key, keySep)
	if len(parts) != 4 {
		return Fingerprint{}, false
	}
	return Fingerprint{
		MenuID:   segmentUnescaper.Replace(parts[0]),
		UserID:   segmentUnescaper.Replace(parts[1]),
		TenantID: segmentUnescaper.Replace(parts[2]),
		Role:     segmentUnescaper.Replace(parts[3]),
	}, true
}

// Tags returns the bulk-invalidation tags for the fingerprint.
func (f Fingerprint) Tags() []string {
	tags := []string{MenuTag(f.MenuID), UserTag(f.UserID)}
	if f.TenantID != "" {
		tags = append(tags, TenantTag(f.TenantID))
	}
	if f.Role != "" {
		tags = append(tags, RoleTag(f.Role))
	}
	return tags
}

// Tag constructors.
func UserTag(id string) string   { return "user:" + id }
func TenantTag(id string) string { return "tenant:" + id }
func RoleTag(r string) string    { return "role:" + r }
func MenuTag(id string) string   { return "menu:" + id }

// UserPattern matches every key for userID. An empty tenantID matches all
// tenants.
func UserPattern(userID, tenantID string) string {
	if tenantID == "" {
		return "*:" + escapeSegment(userID) + ":*:*"
	}
	return "*:" + escapeSegment(userID) + ":" + escapeSegment(tenantID) + ":*"
}

// TenantPattern matches every key computed in tenantID.
func TenantPattern(tenantID string) string {
	return "*:*:" + escapeSegment(tenantID) + ":*"
}

// RolePattern matches every key computed for role.
func RolePattern(role string) string {
	return "*:*:*:" + escapeSegment(role)
}

// MenuPattern matches every key for menuID.
func MenuPattern(menuID string) string {
	return escapeSegment(menuID) + ":*"
}
