package provider

import "regexp"

var mistralKeyRe = regexp.MustCompile(`^[A-Za-z0-9]{32}$`)

// Mistral validates Mistral API keys (32-character alphanumeric).
type Mistral struct {
	base
}

// NewMistral creates the Mistral provider.
func NewMistral() *Mistral {
	return &Mistral{base{name: "mistral"}}
}

func (p *Mistral) Validate(credential string) error {
	if len(credential) != 32 {
		return invalid(p.name, "key must be exactly 32 characters")
	}
	if !mistralKeyRe.MatchString(credential) {
		return invalid(p.name, "key contains invalid characters")
	}
	return nil
}

func (p *Mistral) Metadata(credential string) map[string]string {
	return map[string]string{"key_class": "api-key"}
}

func (p *Mistral) AuthHeaders(credential string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + credential}
}
