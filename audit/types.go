// Package audit records security-relevant vault operations. Events carry
// identifiers and outcomes only; credential material never enters an audit
// record in any form.
package audit

import (
	"context"
	"time"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	TenantID  string    `json:"tenant_id"`
	Provider  string    `json:"provider,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Actions emitted by the store and the project manager.
const (
	ActionStore         = "credential.store"
	ActionRead          = "credential.read"
	ActionDelete        = "credential.delete"
	ActionProjectClone  = "project.clone"
	ActionProjectDelete = "project.delete"
)

// Format serializes events for a sink.
type Format interface {
	Format(entry *Event) ([]byte, error)
	Name() string
}

// Sink is a destination for formatted audit entries.
type Sink interface {
	Write(ctx context.Context, entry []byte) error
	Close() error
	Name() string
}
