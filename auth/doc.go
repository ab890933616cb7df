// Package auth turns request credentials into the principal a navigation
// lookup is evaluated for.
//
// A JWTAuthenticator validates bearer tokens and yields an Identity. A
// RoleResolver expands the identity's roles, following inheritance, into
// permission tokens and maps the result to a nav.Principal. The package
// never decides visibility itself; that is left to the nav evaluator.
package auth
