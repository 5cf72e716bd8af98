package provider

import (
	"regexp"
	"strings"
)

var openaiKeyRe = regexp.MustCompile(`^sk-[A-Za-z0-9_-]{17,}$`)

// OpenAI validates OpenAI API keys.
type OpenAI struct {
	base
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI() *OpenAI {
	return &OpenAI{base{name: "openai"}}
}

func (p *OpenAI) Validate(credential string) error {
	if !strings.HasPrefix(credential, "sk-") {
		return invalid(p.name, "missing sk- prefix")
	}
	if len(credential) < 20 {
		return invalid(p.name, "key too short")
	}
	if !openaiKeyRe.MatchString(credential) {
		return invalid(p.name, "key contains invalid characters")
	}
	return nil
}

func (p *OpenAI) Metadata(credential string) map[string]string {
	class := "api-key"
	if strings.HasPrefix(credential, "sk-proj-") {
		class = "project-api-key"
	}
	return map[string]string{"key_class": class}
}

func (p *OpenAI) AuthHeaders(credential string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + credential}
}
