package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/credvault/logger"
)

func TestSanitizeTenantID(t *testing.T) {
	log := logger.NewZerologLogger(logger.DefaultConfig())

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "clean id unchanged", input: "alice", want: "alice"},
		{name: "allowed punctuation kept", input: "team.alpha_v2-prod", want: "team.alpha_v2-prod"},
		{name: "disallowed characters stripped", input: "al ice!@#", want: "alice"},
		{name: "colons stripped to protect key layout", input: "alice:github", want: "alicegithub"},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "only disallowed characters rejected", input: "!!!///", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeTenantID(tt.input, log)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTenant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("overlong id truncated", func(t *testing.T) {
		got, err := SanitizeTenantID(strings.Repeat("a", 200), log)
		require.NoError(t, err)
		assert.Len(t, got, MaxTenantIDLength)
	})
}
