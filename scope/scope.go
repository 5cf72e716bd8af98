// Package scope models the optional namespace qualifier that distinguishes
// multiple credentials stored for the same provider and tenant. A scope is
// either absent, a free-form name, or a project/environment pair. The flat
// string form is what gets embedded in storage keys, so both directions of
// the conversion live here and nowhere else.
package scope

import (
	"fmt"
	"strings"
)

// DefaultEnvironment is the environment segment omitted from serialized
// project scopes.
const DefaultEnvironment = "default"

const projectPrefix = "project:"

// Kind discriminates the scope variants.
type Kind int

const (
	KindNone Kind = iota
	KindNamed
	KindProject
)

// Scope is a tagged union: None, Named(name), or Project{name, environment}.
// The zero value is the absent scope.
type Scope struct {
	kind        Kind
	name        string
	environment string
}

// None returns the absent scope.
func None() Scope {
	return Scope{}
}

// Named returns a free-form named scope.
func Named(name string) Scope {
	if name == "" {
		return Scope{}
	}
	return Scope{kind: KindNamed, name: name}
}

// Project returns a project/environment scope. An empty environment is
// normalized to DefaultEnvironment.
func Project(name, environment string) Scope {
	if environment == "" {
		environment = DefaultEnvironment
	}
	return Scope{kind: KindProject, name: name, environment: environment}
}

// Kind returns the scope variant.
func (s Scope) Kind() Kind {
	return s.kind
}

// IsZero reports whether the scope is absent.
func (s Scope) IsZero() bool {
	return s.kind == KindNone
}

// Name returns the scope name (project name for project scopes).
func (s Scope) Name() string {
	return s.name
}

// Environment returns the environment for project scopes, "" otherwise.
func (s Scope) Environment() string {
	if s.kind != KindProject {
		return ""
	}
	return s.environment
}

// String serializes the scope to its flat storage form:
//
//	None                     -> ""
//	Named("ci")              -> "ci"
//	Project{"api", default}  -> "project:api"
//	Project{"api", staging}  -> "project:api:staging"
//
// The environment segment is omitted when it is the default, so keys
// written before environments existed keep parsing unchanged.
func (s Scope) String() string {
	switch s.kind {
	case KindProject:
		if s.environment == DefaultEnvironment {
			return projectPrefix + s.name
		}
		return fmt.Sprintf("%s%s:%s", projectPrefix, s.name, s.environment)
	case KindNamed:
		return s.name
	default:
		return ""
	}
}

// Parse converts a flat scope string back into its structured form. This is
// the single parse-back point for the project naming convention; any change
// to the serialized format is a coordinated migration over stored keys.
func Parse(raw string) Scope {
	if raw == "" {
		return Scope{}
	}
	if rest, ok := strings.CutPrefix(raw, projectPrefix); ok && rest != "" {
		name, env, found := strings.Cut(rest, ":")
		if !found || env == "" {
			return Project(name, DefaultEnvironment)
		}
		return Project(name, env)
	}
	return Named(raw)
}
