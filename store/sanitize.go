package store

import (
	"fmt"
	"regexp"

	"github.com/stephnangue/credvault/logger"
)

const (
	// DefaultTenant is the tenant used when a caller supplies none.
	DefaultTenant = "default"

	// MaxTenantIDLength bounds sanitized tenant ids.
	MaxTenantIDLength = 64
)

var tenantDisallowedRe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeTenantID reduces a tenant id to the allow-listed character class
// [A-Za-z0-9_.-] and bounds its length. Mutation is logged, not rejected;
// only an id that is empty before or after sanitization is an error. The
// result is used purely as a namespace component and never interpreted.
func SanitizeTenantID(tenantID string, log logger.Logger) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTenant)
	}

	cleaned := tenantDisallowedRe.ReplaceAllString(tenantID, "")
	if cleaned != tenantID {
		log.Warn("tenant id contained disallowed characters",
			logger.String("tenant_id", cleaned),
			logger.Int("removed", len(tenantID)-len(cleaned)))
	}
	if cleaned == "" {
		return "", fmt.Errorf("%w: no allowed characters", ErrInvalidTenant)
	}
	if len(cleaned) > MaxTenantIDLength {
		cleaned = cleaned[:MaxTenantIDLength]
		log.Warn("tenant id truncated",
			logger.String("tenant_id", cleaned),
			logger.Int("max_length", MaxTenantIDLength))
	}
	return cleaned, nil
}
