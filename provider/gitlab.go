package provider

import (
	"regexp"
	"strings"
)

const gitlabPrefix = "glpat-"

var gitlabBodyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)

// GitLab validates GitLab personal access tokens.
type GitLab struct {
	base
}

// NewGitLab creates the GitLab provider.
func NewGitLab() *GitLab {
	return &GitLab{base{name: "gitlab"}}
}

func (p *GitLab) Validate(credential string) error {
	if !strings.HasPrefix(credential, gitlabPrefix) {
		return invalid(p.name, "missing glpat- prefix")
	}
	body := credential[len(gitlabPrefix):]
	if len(body) < 20 {
		return invalid(p.name, "token too short")
	}
	if !gitlabBodyRe.MatchString(body) {
		return invalid(p.name, "token body contains invalid characters")
	}
	return nil
}

func (p *GitLab) Metadata(credential string) map[string]string {
	return map[string]string{"token_class": "personal-access-token"}
}

// AuthHeaders returns the PRIVATE-TOKEN header GitLab expects.
func (p *GitLab) AuthHeaders(credential string) map[string]string {
	return map[string]string{"PRIVATE-TOKEN": credential}
}
