// Package secret resolves configuration values that reference the
// environment or external secret stores.
//
// ${NAME} expands an environment variable and fails when it is unset; $$
// yields a literal dollar. A value of the form secretref:<provider>:<ref>,
// alone or embedded in a longer string, is replaced by what the named
// provider returns. Providers never log the values they return.
package secret
