// Package store orchestrates the credential lifecycle: provider-specific
// validation, encryption, durable persistence, a bounded plaintext cache,
// and audit emission. It is the only layer that ever holds both a provider
// identity and a decrypted credential at the same time.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	metrics "github.com/hashicorp/go-metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/stephnangue/credvault/audit"
	"github.com/stephnangue/credvault/crypto"
	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
	"github.com/stephnangue/credvault/provider"
	"github.com/stephnangue/credvault/scope"
)

const (
	// DefaultCacheTTL is how long a decrypted credential stays cached.
	// Expiry is absolute from insertion; reads do not extend it, so a
	// rotated credential is re-read from storage within one TTL at worst.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheSize bounds the number of cached plaintext entries.
	// The oldest entry is evicted when the bound is reached.
	DefaultCacheSize = 1000

	// metadata bookkeeping keys written on every store
	metaSource        = "source"
	metaSchemaVersion = "schema_version"
	metaMaskedValue   = "masked_value"

	schemaVersion = "1"
	defaultSource = "api"
)

// errNotFound is internal to the get path; absence is surfaced to callers
// as (found == false), never as an error.
var errNotFound = errors.New("credential not found")

// Config tunes the store's cache behavior.
type Config struct {
	CacheTTL  time.Duration
	CacheSize int
}

// Store is the credential orchestration layer. All methods are safe for
// concurrent use.
type Store struct {
	registry *provider.Registry
	engine   *crypto.Engine
	backend  physical.Backend
	auditor  *audit.Broadcaster
	log      logger.Logger

	// cache maps storage key to decrypted credential. Keys already embed
	// the tenant, so a single cache serves all tenants without bleed.
	cache *expirable.LRU[string, string]

	// group collapses concurrent cache misses for the same key into a
	// single backend read and decryption.
	group singleflight.Group
}

// Summary describes a stored credential without its secret value. The
// masked form comes from metadata recorded at store time, so producing a
// summary never requires decryption.
type Summary struct {
	Provider   string            `json:"provider"`
	Scope      string            `json:"scope,omitempty"`
	StorageKey string            `json:"storage_key"`
	Masked     string            `json:"masked"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// New creates a store over the given registry, engine, and backend. A nil
// auditor disables audit emission (used by tests that assert elsewhere).
func New(registry *provider.Registry, engine *crypto.Engine, backend physical.Backend, auditor *audit.Broadcaster, log logger.Logger, config Config) *Store {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if auditor == nil {
		auditor = audit.NewBroadcaster(log)
	}
	return &Store{
		registry: registry,
		engine:   engine,
		backend:  backend,
		auditor:  auditor,
		log:      log.WithSubsystem("store"),
		cache:    expirable.NewLRU[string, string](config.CacheSize, nil, config.CacheTTL),
	}
}

// StoreCredential validates, encrypts, and persists a credential, replacing
// any existing record under the same (tenant, provider, scope). The cache
// is updated before returning so a subsequent read observes the new value.
func (s *Store) StoreCredential(ctx context.Context, providerID, credential, tenantID string, sc scope.Scope, extra map[string]string) (*Summary, error) {
	tenant, err := SanitizeTenantID(tenantID, s.log)
	if err != nil {
		return nil, err
	}
	p, err := s.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	if err := p.Validate(credential); err != nil {
		s.log.Warn("credential rejected",
			logger.String("provider", p.Name()),
			logger.String("tenant_id", tenant),
			logger.String("credential", provider.Mask(credential, provider.DefaultVisibleChars)),
			logger.Err(err))
		s.emit(ctx, audit.ActionStore, tenant, p.Name(), sc, false, err)
		return nil, err
	}

	metadata := p.Metadata(credential)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if metadata[metaSource] == "" {
		metadata[metaSource] = defaultSource
	}
	metadata[metaSchemaVersion] = schemaVersion
	metadata[metaMaskedValue] = provider.Mask(credential, provider.DefaultVisibleChars)

	ciphertext, nonce, tag, err := s.engine.Encrypt([]byte(credential))
	if err != nil {
		s.log.Error("encryption failed",
			logger.String("provider", p.Name()),
			logger.String("tenant_id", tenant),
			logger.Err(err))
		s.emit(ctx, audit.ActionStore, tenant, p.Name(), sc, false, err)
		return nil, err
	}

	key := p.StorageKey(tenant, sc)
	now := time.Now().UTC()
	entry := &physical.Entry{
		TenantID:   tenant,
		StorageKey: key,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AuthTag:    tag,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.backend.Put(ctx, entry); err != nil {
		s.emit(ctx, audit.ActionStore, tenant, p.Name(), sc, false, err)
		return nil, err
	}

	s.cache.Add(key, credential)
	metrics.IncrCounter([]string{"credvault", "store", "put"}, 1)
	s.emit(ctx, audit.ActionStore, tenant, p.Name(), sc, true, nil)
	s.log.Info("credential stored",
		logger.String("provider", p.Name()),
		logger.String("tenant_id", tenant),
		logger.String("scope", sc.String()))

	return s.summarize(tenant, entry), nil
}

// GetCredential returns the decrypted credential for (tenant, provider,
// scope). Absence is reported as found == false with a nil error; a failed
// authentication check on stored ciphertext is an error, since it means the
// record was tampered with or the vault key changed.
func (s *Store) GetCredential(ctx context.Context, providerID, tenantID string, sc scope.Scope) (string, bool, error) {
	tenant, err := SanitizeTenantID(tenantID, s.log)
	if err != nil {
		return "", false, err
	}
	p, err := s.registry.Get(providerID)
	if err != nil {
		return "", false, err
	}
	key := p.StorageKey(tenant, sc)

	if value, ok := s.cache.Get(key); ok {
		metrics.IncrCounter([]string{"credvault", "store", "cache_hit"}, 1)
		s.emit(ctx, audit.ActionRead, tenant, p.Name(), sc, true, nil)
		return value, true, nil
	}
	metrics.IncrCounter([]string{"credvault", "store", "cache_miss"}, 1)

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Another waiter may have populated the cache while this call
		// was queued.
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		entry, err := s.backend.Get(ctx, tenant, key)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, errNotFound
		}
		plaintext, err := s.engine.Decrypt(entry.Ciphertext, entry.Nonce, entry.AuthTag)
		if err != nil {
			return nil, err
		}
		v := string(plaintext)
		s.cache.Add(key, v)
		return v, nil
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", false, nil
		}
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			s.log.Error("stored credential failed authentication",
				logger.String("provider", p.Name()),
				logger.String("tenant_id", tenant),
				logger.String("scope", sc.String()))
		}
		s.emit(ctx, audit.ActionRead, tenant, p.Name(), sc, false, err)
		return "", false, err
	}

	s.emit(ctx, audit.ActionRead, tenant, p.Name(), sc, true, nil)
	return value.(string), true, nil
}

// DeleteCredential removes the record for (tenant, provider, scope) and
// reports whether one existed. The cache entry is dropped before the
// backend delete so no reader can observe a deleted value.
func (s *Store) DeleteCredential(ctx context.Context, providerID, tenantID string, sc scope.Scope) (bool, error) {
	tenant, err := SanitizeTenantID(tenantID, s.log)
	if err != nil {
		return false, err
	}
	p, err := s.registry.Get(providerID)
	if err != nil {
		return false, err
	}
	key := p.StorageKey(tenant, sc)

	s.cache.Remove(key)
	removed, err := s.backend.Delete(ctx, tenant, key)
	if err != nil {
		s.emit(ctx, audit.ActionDelete, tenant, p.Name(), sc, false, err)
		return false, err
	}

	metrics.IncrCounter([]string{"credvault", "store", "delete"}, 1)
	s.emit(ctx, audit.ActionDelete, tenant, p.Name(), sc, true, nil)
	s.log.Info("credential deleted",
		logger.String("provider", p.Name()),
		logger.String("tenant_id", tenant),
		logger.String("scope", sc.String()),
		logger.Bool("removed", removed))
	return removed, nil
}

// ListCredentials returns summaries of every credential the tenant has
// stored. Secret material is never read, decrypted, or returned.
func (s *Store) ListCredentials(ctx context.Context, tenantID string) ([]*Summary, error) {
	tenant, err := SanitizeTenantID(tenantID, s.log)
	if err != nil {
		return nil, err
	}
	entries, err := s.backend.List(ctx, tenant)
	if err != nil {
		return nil, err
	}
	summaries := make([]*Summary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, s.summarize(tenant, entry))
	}
	return summaries, nil
}

// ProviderStatus aggregates a tenant's credentials for one provider.
type ProviderStatus struct {
	Count  int      `json:"count"`
	Scopes []string `json:"scopes,omitempty"`
}

// StatusReport is the per-tenant vault overview.
type StatusReport struct {
	TenantID  string                     `json:"tenant_id"`
	Total     int                        `json:"total"`
	Providers map[string]*ProviderStatus `json:"providers"`
}

// Status aggregates ListCredentials into per-provider counts and scopes.
func (s *Store) Status(ctx context.Context, tenantID string) (*StatusReport, error) {
	summaries, err := s.ListCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenant, _ := SanitizeTenantID(tenantID, s.log)

	report := &StatusReport{
		TenantID:  tenant,
		Total:     len(summaries),
		Providers: make(map[string]*ProviderStatus),
	}
	for _, summary := range summaries {
		ps := report.Providers[summary.Provider]
		if ps == nil {
			ps = &ProviderStatus{}
			report.Providers[summary.Provider] = ps
		}
		ps.Count++
		if summary.Scope != "" {
			ps.Scopes = append(ps.Scopes, summary.Scope)
		}
	}
	for _, ps := range report.Providers {
		sort.Strings(ps.Scopes)
	}
	return report, nil
}

// ValidateCredential runs the provider's structural checks without storing
// anything. A nil return means the credential is well-formed.
func (s *Store) ValidateCredential(providerID, credential string) error {
	p, err := s.registry.Get(providerID)
	if err != nil {
		return err
	}
	return p.Validate(credential)
}

// Providers returns the ids of all supported providers, sorted.
func (s *Store) Providers() []string {
	return s.registry.Names()
}

// Registry exposes the provider registry for callers that need header or
// metadata construction alongside a retrieved credential.
func (s *Store) Registry() *provider.Registry {
	return s.registry
}

// summarize converts a backend entry into its non-secret summary. The
// provider and scope are recovered from the storage key, which is always
// "tenant:provider[:scope]".
func (s *Store) summarize(tenant string, entry *physical.Entry) *Summary {
	rest := strings.TrimPrefix(entry.StorageKey, tenant+":")
	providerID, scopeStr, _ := strings.Cut(rest, ":")

	summary := &Summary{
		Provider:   providerID,
		Scope:      scopeStr,
		StorageKey: entry.StorageKey,
		Masked:     entry.Metadata[metaMaskedValue],
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.UpdatedAt,
	}
	if len(entry.Metadata) > 0 {
		summary.Metadata = make(map[string]string, len(entry.Metadata))
		for k, v := range entry.Metadata {
			summary.Metadata[k] = v
		}
	}
	return summary
}

func (s *Store) emit(ctx context.Context, action, tenant, providerName string, sc scope.Scope, success bool, opErr error) {
	event := &audit.Event{
		Action:   action,
		TenantID: tenant,
		Provider: providerName,
		Scope:    sc.String(),
		Success:  success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	// Broadcaster logs sink failures; they never fail the operation.
	_ = s.auditor.Log(ctx, event)
}

// CacheLen reports the number of live cache entries, for status surfaces.
func (s *Store) CacheLen() int {
	return s.cache.Len()
}

// PurgeCache drops all cached plaintext. Used on reconfiguration and by
// operators after a suspected compromise.
func (s *Store) PurgeCache() {
	s.cache.Purge()
}
