package provider

import (
	"regexp"
	"strings"
)

// GitHub token prefixes and their token classes. Classic tokens are 40
// characters total; fine-grained PATs are 93+.
var githubTokenClasses = map[string]string{
	"ghp_":        "personal-access-token",
	"gho_":        "oauth-access-token",
	"ghu_":        "user-to-server-token",
	"ghs_":        "server-to-server-token",
	"ghr_":        "refresh-token",
	"github_pat_": "fine-grained-pat",
}

var githubBodyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const (
	githubMinLength = 40
	githubMaxLength = 255
)

// GitHub validates GitHub tokens: classic PATs, OAuth and App tokens, and
// fine-grained PATs.
type GitHub struct {
	base
}

// NewGitHub creates the GitHub provider.
func NewGitHub() *GitHub {
	return &GitHub{base{name: "github"}}
}

func githubPrefix(credential string) string {
	// github_pat_ must be checked before the 4-char prefixes; none of the
	// short prefixes is a prefix of it, but the longest match is the
	// meaningful class.
	for prefix := range githubTokenClasses {
		if strings.HasPrefix(credential, prefix) {
			return prefix
		}
	}
	return ""
}

// Validate checks prefix, length bounds, and character class.
func (p *GitHub) Validate(credential string) error {
	prefix := githubPrefix(credential)
	if prefix == "" {
		return invalid(p.name, "unrecognized token prefix (expected ghp_, gho_, ghu_, ghs_, ghr_, or github_pat_)")
	}
	if len(credential) < githubMinLength {
		return invalid(p.name, "token too short")
	}
	if len(credential) > githubMaxLength {
		return invalid(p.name, "token too long")
	}
	if !githubBodyRe.MatchString(credential[len(prefix):]) {
		return invalid(p.name, "token body contains invalid characters")
	}
	return nil
}

// Metadata reports the detected token class.
func (p *GitHub) Metadata(credential string) map[string]string {
	prefix := githubPrefix(credential)
	if prefix == "" {
		return map[string]string{}
	}
	return map[string]string{"token_class": githubTokenClasses[prefix]}
}

// AuthHeaders returns the header shape for the GitHub REST API.
func (p *GitHub) AuthHeaders(credential string) map[string]string {
	return map[string]string{
		"Authorization":        "Bearer " + credential,
		"X-GitHub-Api-Version": "2022-11-28",
	}
}
