package provider

import (
	"regexp"
	"strings"
)

const anthropicPrefix = "sk-ant-"

var anthropicKeyRe = regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{17,}$`)

// Anthropic validates Anthropic API keys.
type Anthropic struct {
	base
}

// NewAnthropic creates the Anthropic provider.
func NewAnthropic() *Anthropic {
	return &Anthropic{base{name: "anthropic"}}
}

func (p *Anthropic) Validate(credential string) error {
	if !strings.HasPrefix(credential, anthropicPrefix) {
		return invalid(p.name, "missing sk-ant- prefix")
	}
	if len(credential) < 24 {
		return invalid(p.name, "key too short")
	}
	if !anthropicKeyRe.MatchString(credential) {
		return invalid(p.name, "key contains invalid characters")
	}
	return nil
}

func (p *Anthropic) Metadata(credential string) map[string]string {
	return map[string]string{"key_class": "api-key"}
}

// AuthHeaders returns the x-api-key header shape the Anthropic API expects.
func (p *Anthropic) AuthHeaders(credential string) map[string]string {
	return map[string]string{
		"x-api-key":         credential,
		"anthropic-version": "2023-06-01",
	}
}
