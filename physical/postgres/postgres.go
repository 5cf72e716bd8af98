// Package postgres implements the durable credential backend on
// PostgreSQL. A single credentials table keyed by (tenant_id, storage_key)
// enforces the one-live-record invariant; writes are upserts, so retrying
// a timed-out operation is always safe.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
)

const (
	// DefaultTable is the table name when none is configured.
	DefaultTable = "credentials"

	// DefaultMaxOpenConnections bounds the shared connection pool.
	DefaultMaxOpenConnections = 20

	// DefaultQueryTimeout bounds every individual backend call.
	DefaultQueryTimeout = 5 * time.Second
)

// PostgresBackend is the PostgreSQL storage backend.
type PostgresBackend struct {
	client       *sql.DB
	table        string
	queryTimeout time.Duration
	log          logger.Logger

	putQuery    string
	getQuery    string
	deleteQuery string
	listQuery   string

	skipCreateTable bool
}

// quoteIdentifier defends the configurable table name against injection
// into the statement templates.
func quoteIdentifier(name string) string {
	out := make([]rune, 0, len(name)+2)
	out = append(out, '"')
	for _, r := range name {
		if r == 0 {
			break
		}
		if r == '"' {
			out = append(out, '"')
		}
		out = append(out, r)
	}
	return string(append(out, '"'))
}

// NewPostgresBackend builds the backend from its string config map.
// Recognized keys: connection_url (required), table, max_open_connections,
// max_idle_connections, query_timeout, skip_create_table.
func NewPostgresBackend(config map[string]string, log logger.Logger) (physical.Backend, error) {
	connURL := config["connection_url"]
	if connURL == "" {
		return nil, fmt.Errorf("missing connection_url in postgres storage config")
	}

	table := config["table"]
	if table == "" {
		table = DefaultTable
	}
	quoted := quoteIdentifier(table)

	maxOpen := DefaultMaxOpenConnections
	if raw := config["max_open_connections"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid max_open_connections %q", raw)
		}
		maxOpen = parsed
	}

	maxIdle := maxOpen
	if raw := config["max_idle_connections"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid max_idle_connections %q", raw)
		}
		maxIdle = parsed
	}

	queryTimeout := DefaultQueryTimeout
	if raw := config["query_timeout"]; raw != "" {
		parsed, err := parseutil.ParseDurationSecond(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid query_timeout %q: %w", raw, err)
		}
		queryTimeout = parsed
	}

	skipCreate := false
	if raw := config["skip_create_table"]; raw != "" {
		parsed, err := parseutil.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid skip_create_table %q: %w", raw, err)
		}
		skipCreate = parsed
	}

	db, err := sql.Open("pgx", connURL)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", physical.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	b := &PostgresBackend{
		client:          db,
		table:           quoted,
		queryTimeout:    queryTimeout,
		log:             log,
		skipCreateTable: skipCreate,
	}
	b.buildQueries()
	return b, nil
}

func (b *PostgresBackend) buildQueries() {
	b.putQuery = `INSERT INTO ` + b.table +
		` (tenant_id, storage_key, ciphertext, nonce, auth_tag, metadata, created_at, updated_at)` +
		` VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())` +
		` ON CONFLICT (tenant_id, storage_key) DO UPDATE SET` +
		` (ciphertext, nonce, auth_tag, metadata, updated_at) = ($3, $4, $5, $6, NOW())`
	b.getQuery = `SELECT ciphertext, nonce, auth_tag, metadata, created_at, updated_at FROM ` +
		b.table + ` WHERE tenant_id = $1 AND storage_key = $2`
	b.deleteQuery = `DELETE FROM ` + b.table + ` WHERE tenant_id = $1 AND storage_key = $2`
	b.listQuery = `SELECT storage_key, metadata, created_at, updated_at FROM ` +
		b.table + ` WHERE tenant_id = $1 ORDER BY storage_key`
}

// Init creates the credentials table unless skip_create_table is set.
func (b *PostgresBackend) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	if err := b.client.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", physical.ErrStorageUnavailable, err)
	}
	if b.skipCreateTable {
		return nil
	}

	schema := `CREATE TABLE IF NOT EXISTS ` + b.table + ` (
		tenant_id   TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		ciphertext  BYTEA NOT NULL,
		nonce       BYTEA NOT NULL,
		auth_tag    BYTEA NOT NULL,
		metadata    JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, storage_key)
	)`
	if _, err := b.client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: create table: %v", physical.ErrStorageUnavailable, err)
	}
	return nil
}

func (b *PostgresBackend) Put(ctx context.Context, entry *physical.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = b.client.ExecContext(ctx, b.putQuery,
		entry.TenantID, entry.StorageKey,
		entry.Ciphertext, entry.Nonce, entry.AuthTag, metadata)
	if err != nil {
		return fmt.Errorf("%w: put: %v", physical.ErrStorageUnavailable, err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, tenantID, storageKey string) (*physical.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	entry := &physical.Entry{
		TenantID:   tenantID,
		StorageKey: storageKey,
	}
	var metadata []byte
	err := b.client.QueryRowContext(ctx, b.getQuery, tenantID, storageKey).Scan(
		&entry.Ciphertext, &entry.Nonce, &entry.AuthTag,
		&metadata, &entry.CreatedAt, &entry.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: get: %v", physical.ErrStorageUnavailable, err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return entry, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, tenantID, storageKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	result, err := b.client.ExecContext(ctx, b.deleteQuery, tenantID, storageKey)
	if err != nil {
		return false, fmt.Errorf("%w: delete: %v", physical.ErrStorageUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete: %v", physical.ErrStorageUnavailable, err)
	}
	return affected > 0, nil
}

func (b *PostgresBackend) List(ctx context.Context, tenantID string) ([]*physical.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	rows, err := b.client.QueryContext(ctx, b.listQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", physical.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*physical.Entry
	for rows.Next() {
		entry := &physical.Entry{TenantID: tenantID}
		var metadata []byte
		if err := rows.Scan(&entry.StorageKey, &metadata, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: list scan: %v", physical.ErrStorageUnavailable, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", physical.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (b *PostgresBackend) Stop() error {
	return b.client.Close()
}
