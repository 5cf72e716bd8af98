package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSerialization(t *testing.T) {
	tests := []struct {
		name     string
		scope    Scope
		expected string
	}{
		{"none", None(), ""},
		{"named", Named("ci"), "ci"},
		{"named empty collapses to none", Named(""), ""},
		{"project default env omitted", Project("api", "default"), "project:api"},
		{"project empty env normalized", Project("api", ""), "project:api"},
		{"project with env", Project("api", "staging"), "project:api:staging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.scope.String())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Scope
	}{
		{"empty", "", None()},
		{"named", "ci", Named("ci")},
		{"project default", "project:api", Project("api", "default")},
		{"project with env", "project:api:staging", Project("api", "staging")},
		{"project trailing colon", "project:api:", Project("api", "default")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.raw))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	scopes := []Scope{
		None(),
		Named("repo-42"),
		Project("prod", "default"),
		Project("prod", "eu-west"),
	}
	for _, s := range scopes {
		assert.Equal(t, s, Parse(s.String()), "scope %q must survive serialization", s.String())
	}
}

func TestAccessors(t *testing.T) {
	p := Project("api", "staging")
	assert.Equal(t, KindProject, p.Kind())
	assert.Equal(t, "api", p.Name())
	assert.Equal(t, "staging", p.Environment())
	assert.False(t, p.IsZero())

	n := Named("ci")
	assert.Equal(t, "", n.Environment())

	assert.True(t, None().IsZero())
}
