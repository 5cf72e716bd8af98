// Package provider encapsulates per-service credential shape rules behind a
// uniform contract so the store never special-cases a provider by name.
// Validation is structural only (prefix, length, character class); no
// provider performs a live network call to verify a secret.
package provider

import (
	"fmt"

	"github.com/stephnangue/credvault/scope"
)

// Provider describes the capability set a supported external service
// exposes to the vault: format validation, storage-key composition,
// non-secret metadata enrichment, and outbound auth-header construction.
type Provider interface {
	// Name returns the canonical provider identifier (e.g. "github").
	Name() string

	// Validate performs structural checks on the credential. It returns a
	// *ValidationError describing the violated rule, never the credential
	// value itself.
	Validate(credential string) error

	// StorageKey composes the deterministic durable key for a credential.
	// The composition is injective over (tenantID, scope) pairs and never
	// embeds secret material.
	StorageKey(tenantID string, sc scope.Scope) string

	// Metadata derives provider-specific non-secret attributes from the
	// credential (e.g. detected token class). Derivation failure is soft:
	// implementations return an empty map rather than an error, since
	// metadata loss is never fatal to a store operation.
	Metadata(credential string) map[string]string

	// AuthHeaders constructs the authorization header shape consumers use
	// to call the provider's API. The vault itself never sends them.
	AuthHeaders(credential string) map[string]string
}

// ValidationError reports a structural credential format violation. It is
// recoverable by the caller (fix the input) and is never retried.
type ValidationError struct {
	Provider string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s credential: %s", e.Provider, e.Reason)
}

func invalid(provider, reason string) *ValidationError {
	return &ValidationError{Provider: provider, Reason: reason}
}

// base carries the provider name and the shared storage-key composition.
// Provider implementations embed it the way credential types embed a base
// type, keeping key layout identical across services.
type base struct {
	name string
}

func (b base) Name() string {
	return b.name
}

// StorageKey composes "tenant:provider[:scope]". Tenant IDs are sanitized
// to a colon-free character class before reaching this point, so the
// composition cannot collide across distinct (tenantID, scope) pairs.
func (b base) StorageKey(tenantID string, sc scope.Scope) string {
	key := tenantID + ":" + b.name
	if s := sc.String(); s != "" {
		key += ":" + s
	}
	return key
}
