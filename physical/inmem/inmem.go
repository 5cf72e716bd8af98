// Package inmem provides the in-memory storage backend used by tests and
// dev mode. Data does not survive the process.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
)

// InmemBackend stores entries in a mutex-guarded map.
type InmemBackend struct {
	mu      sync.RWMutex
	entries map[string]*physical.Entry
	log     logger.Logger
}

// NewInmemBackend creates an empty in-memory backend.
func NewInmemBackend(_ map[string]string, log logger.Logger) (physical.Backend, error) {
	return &InmemBackend{
		entries: make(map[string]*physical.Entry),
		log:     log,
	}, nil
}

// Tenant IDs are sanitized to a NUL-free character class, so this separator
// cannot collide with key material.
func recordKey(tenantID, storageKey string) string {
	return tenantID + "\x00" + storageKey
}

func (b *InmemBackend) Put(_ context.Context, entry *physical.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := entry.Clone()
	now := time.Now().UTC()
	if existing, ok := b.entries[recordKey(entry.TenantID, entry.StorageKey)]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	b.entries[recordKey(entry.TenantID, entry.StorageKey)] = stored
	return nil
}

func (b *InmemBackend) Get(_ context.Context, tenantID, storageKey string) (*physical.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[recordKey(tenantID, storageKey)]
	if !ok {
		return nil, nil
	}
	return entry.Clone(), nil
}

func (b *InmemBackend) Delete(_ context.Context, tenantID, storageKey string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := recordKey(tenantID, storageKey)
	_, existed := b.entries[key]
	delete(b.entries, key)
	return existed, nil
}

func (b *InmemBackend) List(_ context.Context, tenantID string) ([]*physical.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*physical.Entry
	for _, entry := range b.entries {
		if entry.TenantID != tenantID {
			continue
		}
		listed := entry.Clone()
		listed.Ciphertext = nil
		listed.Nonce = nil
		listed.AuthTag = nil
		out = append(out, listed)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StorageKey < out[j].StorageKey
	})
	return out, nil
}

func (b *InmemBackend) Init(context.Context) error {
	return nil
}

func (b *InmemBackend) Stop() error {
	return nil
}
