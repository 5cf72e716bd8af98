package provider

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProvider is returned when a provider id is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry is a process-wide, read-only lookup table of providers, built
// once at startup from the closed set of known services. There is no
// runtime registration; adding a provider means adding an implementation
// and rebuilding.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers. Duplicate names
// are a programming error and panic at startup rather than surfacing later.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if _, exists := m[p.Name()]; exists {
			panic(fmt.Sprintf("provider %q registered twice", p.Name()))
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Builtin returns the registry of all supported providers.
func Builtin() *Registry {
	return NewRegistry(
		NewGitHub(),
		NewGitLab(),
		NewOpenAI(),
		NewAnthropic(),
		NewMistral(),
		NewAWS(),
	)
}

// Get retrieves a provider by id.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

// Has checks whether a provider id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// Names returns all registered provider ids, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
