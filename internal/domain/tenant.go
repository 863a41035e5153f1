package domain

import "strings"

// SuperTenantDomain is the root namespace; its data lives outside any /t/<domain> context.
const SuperTenantDomain = "carbon.super"

// TenantContext identifies the tenant a query must be scoped to.
type TenantContext struct {
	Domain string
	ID     string
}

// IsSuperTenant reports whether the context is the super tenant.
func (t TenantContext) IsSuperTenant() bool {
	return strings.EqualFold(t.Domain, SuperTenantDomain)
}

// TenantDomain returns the text after the last '@' of a username, so "admin@acme.com"
// yields "acme.com" and "admin" yields "admin". Trailing empty segments are ignored:
// "admin@" yields "admin". A username made only of '@' yields "".
func TenantDomain(username string) string {
	trimmed := strings.TrimRight(username, "@")
	if trimmed == "" {
		return ""
	}
	return trimmed[strings.LastIndex(trimmed, "@")+1:]
}
