// Package physical defines the durable storage contract for encrypted
// credential records. Backends store ciphertext and its authenticated-
// encryption artifacts; plaintext never reaches this layer.
package physical

import (
	"context"
	"errors"
	"time"

	"github.com/stephnangue/credvault/logger"
)

// ErrStorageUnavailable is returned when the backend is unreachable or a
// call timed out. All writes are idempotent upserts, so callers may retry
// with backoff.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Entry is the durable unit: one live row per (tenant, storage key).
type Entry struct {
	TenantID   string
	StorageKey string

	// Ciphertext, Nonce, and AuthTag are the AES-GCM artifacts. They are
	// omitted from List results and never logged.
	Ciphertext []byte
	Nonce      []byte
	AuthTag    []byte

	// Metadata holds provider-specific non-secret attributes plus the
	// source and schema_version bookkeeping keys.
	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so cached or listed entries cannot alias the
// backend's internal state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := &Entry{
		TenantID:   e.TenantID,
		StorageKey: e.StorageKey,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
	clone.Ciphertext = append([]byte(nil), e.Ciphertext...)
	clone.Nonce = append([]byte(nil), e.Nonce...)
	clone.AuthTag = append([]byte(nil), e.AuthTag...)
	if e.Metadata != nil {
		clone.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// Backend is the durable storage interface.
//
// Put is an upsert: insert-or-replace on (tenant, storage key), last write
// wins, no history retained. Get returns (nil, nil) when no record exists;
// absence is a normal state, not an error. Delete reports whether a row was
// actually removed and is idempotent. List returns the tenant's records
// with ciphertext artifacts stripped, for status and audit display only.
type Backend interface {
	Put(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, tenantID, storageKey string) (*Entry, error)
	Delete(ctx context.Context, tenantID, storageKey string) (bool, error)
	List(ctx context.Context, tenantID string) ([]*Entry, error)

	// Init prepares the backend (schema creation, connectivity check).
	Init(ctx context.Context) error

	// Stop releases backend resources.
	Stop() error
}

// Factory is the constructor signature storage backends register under a
// type name ("inmem", "postgres").
type Factory func(config map[string]string, log logger.Logger) (Backend, error)
