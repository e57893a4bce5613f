package registry

import (
	"fmt"
	"regexp"
)

// identityComponentPattern matches a single scope or name component: it must
// start and end with an alphanumeric character, with up to 38 alphanumeric,
// underscore, or hyphen characters in between.
var identityComponentPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]{0,38}[A-Za-z0-9])?$`)

// Identity is an opaque package identity as returned by lookupIdentities.
// It carries no structure the core can interpret.
type Identity string

// RegistryIdentity is a (scope, name) package identity. Only registry
// identities can be used with registry operations.
type RegistryIdentity struct {
	Scope string
	Name  string
}

// String renders the identity as "scope/name".
func (id RegistryIdentity) String() string {
	return id.Scope + "/" + id.Name
}

// ParseRegistryIdentity validates scope and name against the shared identity
// component pattern and returns a RegistryIdentity. It performs no network
// I/O and never consults any registry configuration.
func ParseRegistryIdentity(scope, name string) (RegistryIdentity, error) {
	if !identityComponentPattern.MatchString(scope) {
		return RegistryIdentity{}, &InvalidPackageIdentityError{Scope: scope, Name: name, Reason: fmt.Sprintf("invalid scope %q", scope)}
	}
	if !identityComponentPattern.MatchString(name) {
		return RegistryIdentity{}, &InvalidPackageIdentityError{Scope: scope, Name: name, Reason: fmt.Sprintf("invalid name %q", name)}
	}
	return RegistryIdentity{Scope: scope, Name: name}, nil
}
