package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// LDAP filters mirroring the directory schema for users, computers, OUs and
// domain controllers (userAccountControl bit 8192 = SERVER_TRUST_ACCOUNT).
const (
	userFilter               = "(&(objectClass=user)(objectCategory=person))"
	computerFilter           = "(objectClass=computer)"
	organizationalUnitFilter = "(objectClass=organizationalUnit)"
	domainControllerFilter   = "(&(objectClass=computer)(userAccountControl:1.2.840.113556.1.4.803:=8192))"
)

// ComputerNameFilter builds a filter matching a computer by name or
// sAMAccountName. The expression may contain '*' wildcards; every literal
// segment is escaped so operator input cannot alter the filter structure.
func ComputerNameFilter(expr string) string {
	escaped := EscapeKeepWildcards(expr)
	return fmt.Sprintf("(&(objectClass=computer)(|(name=%s)(sAMAccountName=%s)))", escaped, escaped)
}

// EscapeKeepWildcards escapes LDAP filter metacharacters in expr while
// preserving '*' wildcards.
func EscapeKeepWildcards(expr string) string {
	parts := strings.Split(expr, "*")
	for i, p := range parts {
		parts[i] = ldap.EscapeFilter(p)
	}
	return strings.Join(parts, "*")
}
