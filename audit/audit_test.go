package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/credvault/logger"
)

type failingSink struct{}

func (failingSink) Write(context.Context, []byte) error { return errors.New("disk full") }
func (failingSink) Close() error                        { return nil }
func (failingSink) Name() string                        { return "failing" }

func TestBroadcasterLog(t *testing.T) {
	log := logger.NewZerologLogger(logger.DefaultConfig())

	t.Run("stamps id and timestamp, writes json line", func(t *testing.T) {
		var buf bytes.Buffer
		b := NewBroadcaster(log, NewWriterSink("test", &buf))

		err := b.Log(context.Background(), &Event{
			Action:   ActionStore,
			TenantID: "alice",
			Provider: "github",
			Success:  true,
		})
		require.NoError(t, err)

		line := buf.String()
		assert.True(t, strings.HasSuffix(line, "\n"))

		var decoded Event
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
		assert.NotEmpty(t, decoded.ID)
		assert.False(t, decoded.Timestamp.IsZero())
		assert.Equal(t, ActionStore, decoded.Action)
		assert.Equal(t, "alice", decoded.TenantID)
	})

	t.Run("sink failure does not stop other sinks", func(t *testing.T) {
		var buf bytes.Buffer
		b := NewBroadcaster(log, failingSink{}, NewWriterSink("test", &buf))

		err := b.Log(context.Background(), &Event{Action: ActionRead, TenantID: "alice"})
		assert.Error(t, err)
		assert.NotEmpty(t, buf.String(), "healthy sink still receives the event")
	})

	t.Run("unique event ids", func(t *testing.T) {
		var buf bytes.Buffer
		b := NewBroadcaster(log, NewWriterSink("test", &buf))

		e1 := &Event{Action: ActionDelete, TenantID: "alice"}
		e2 := &Event{Action: ActionDelete, TenantID: "alice"}
		require.NoError(t, b.Log(context.Background(), e1))
		require.NoError(t, b.Log(context.Background(), e2))
		assert.NotEqual(t, e1.ID, e2.ID)
	})
}
