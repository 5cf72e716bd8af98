package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
)

// createMockBackend creates a PostgresBackend with a mocked database
// connection.
func createMockBackend(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)

	b := &PostgresBackend{
		client:       db,
		table:        `"credentials"`,
		queryTimeout: DefaultQueryTimeout,
		log:          logger.NewZerologLogger(logger.DefaultConfig()),
	}
	b.buildQueries()

	return b, mock, func() { db.Close() }
}

func TestNewPostgresBackendConfig(t *testing.T) {
	log := logger.NewZerologLogger(logger.DefaultConfig())

	t.Run("missing connection_url", func(t *testing.T) {
		_, err := NewPostgresBackend(map[string]string{}, log)
		assert.ErrorContains(t, err, "connection_url")
	})

	t.Run("invalid pool size", func(t *testing.T) {
		_, err := NewPostgresBackend(map[string]string{
			"connection_url":       "postgres://localhost/credvault",
			"max_open_connections": "zero",
		}, log)
		assert.ErrorContains(t, err, "max_open_connections")
	})

	t.Run("invalid query timeout", func(t *testing.T) {
		_, err := NewPostgresBackend(map[string]string{
			"connection_url": "postgres://localhost/credvault",
			"query_timeout":  "soon",
		}, log)
		assert.ErrorContains(t, err, "query_timeout")
	})

	t.Run("defaults applied", func(t *testing.T) {
		backend, err := NewPostgresBackend(map[string]string{
			"connection_url": "postgres://localhost/credvault",
		}, log)
		require.NoError(t, err)
		pg := backend.(*PostgresBackend)
		assert.Equal(t, `"credentials"`, pg.table)
		assert.Equal(t, DefaultQueryTimeout, pg.queryTimeout)
		assert.NoError(t, pg.Stop())
	})
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"credentials"`, quoteIdentifier("credentials"))
	assert.Equal(t, `"cred""entials"`, quoteIdentifier(`cred"entials`))
	assert.Equal(t, `"cred"`, quoteIdentifier("cred\x00entials"))
}

func TestPut(t *testing.T) {
	b, mock, cleanup := createMockBackend(t)
	defer cleanup()

	entry := &physical.Entry{
		TenantID:   "alice",
		StorageKey: "alice:github",
		Ciphertext: []byte("ct"),
		Nonce:      []byte("012345678901"),
		AuthTag:    []byte("0123456789012345"),
		Metadata:   map[string]string{"token_class": "personal-access-token"},
	}

	t.Run("upsert succeeds", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO "credentials"`).
			WithArgs("alice", "alice:github", entry.Ciphertext, entry.Nonce, entry.AuthTag,
				[]byte(`{"token_class":"personal-access-token"}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, b.Put(context.Background(), entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("backend failure wraps ErrStorageUnavailable", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO "credentials"`).
			WillReturnError(errors.New("connection refused"))

		err := b.Put(context.Background(), entry)
		assert.ErrorIs(t, err, physical.ErrStorageUnavailable)
	})
}

func TestGet(t *testing.T) {
	b, mock, cleanup := createMockBackend(t)
	defer cleanup()

	now := time.Now().UTC()

	t.Run("row found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"ciphertext", "nonce", "auth_tag", "metadata", "created_at", "updated_at"}).
			AddRow([]byte("ct"), []byte("012345678901"), []byte("0123456789012345"),
				[]byte(`{"token_class":"personal-access-token"}`), now, now)
		mock.ExpectQuery(`SELECT ciphertext, nonce, auth_tag, metadata, created_at, updated_at FROM "credentials"`).
			WithArgs("alice", "alice:github").
			WillReturnRows(rows)

		entry, err := b.Get(context.Background(), "alice", "alice:github")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, []byte("ct"), entry.Ciphertext)
		assert.Equal(t, "personal-access-token", entry.Metadata["token_class"])
	})

	t.Run("absent returns nil, nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT ciphertext, nonce, auth_tag, metadata, created_at, updated_at FROM "credentials"`).
			WithArgs("alice", "alice:missing").
			WillReturnError(sql.ErrNoRows)

		entry, err := b.Get(context.Background(), "alice", "alice:missing")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("backend failure wraps ErrStorageUnavailable", func(t *testing.T) {
		mock.ExpectQuery(`SELECT ciphertext, nonce, auth_tag, metadata, created_at, updated_at FROM "credentials"`).
			WillReturnError(errors.New("connection reset"))

		_, err := b.Get(context.Background(), "alice", "alice:github")
		assert.ErrorIs(t, err, physical.ErrStorageUnavailable)
	})
}

func TestDelete(t *testing.T) {
	b, mock, cleanup := createMockBackend(t)
	defer cleanup()

	t.Run("row removed", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM "credentials"`).
			WithArgs("alice", "alice:github").
			WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := b.Delete(context.Background(), "alice", "alice:github")
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("no row removed", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM "credentials"`).
			WithArgs("alice", "alice:github").
			WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := b.Delete(context.Background(), "alice", "alice:github")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestList(t *testing.T) {
	b, mock, cleanup := createMockBackend(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"storage_key", "metadata", "created_at", "updated_at"}).
		AddRow("alice:github", []byte(`{"token_class":"personal-access-token"}`), now, now).
		AddRow("alice:gitlab", []byte(`{}`), now, now)
	mock.ExpectQuery(`SELECT storage_key, metadata, created_at, updated_at FROM "credentials"`).
		WithArgs("alice").
		WillReturnRows(rows)

	entries, err := b.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice:github", entries[0].StorageKey)
	assert.Nil(t, entries[0].Ciphertext, "list never exposes ciphertext")
}

func TestInit(t *testing.T) {
	b, mock, cleanup := createMockBackend(t)
	defer cleanup()

	t.Run("creates table", func(t *testing.T) {
		mock.ExpectPing()
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "credentials"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, b.Init(context.Background()))
	})

	t.Run("skip_create_table honored", func(t *testing.T) {
		b.skipCreateTable = true
		mock.ExpectPing()

		assert.NoError(t, b.Init(context.Background()))
	})
}
