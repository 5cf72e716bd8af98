package audit

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid"

	"github.com/stephnangue/credvault/logger"
)

// Broadcaster fans audit events out to every configured sink. Emission is
// fire-and-forget from the caller's perspective: sink failures are logged
// and returned for observability but must never fail the operation that
// produced the event.
type Broadcaster struct {
	format Format
	sinks  []Sink
	log    logger.Logger
}

// NewBroadcaster creates a broadcaster over the given sinks.
func NewBroadcaster(log logger.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		format: JSONFormat{},
		sinks:  sinks,
		log:    log.WithSubsystem("audit"),
	}
}

// Log stamps the event with an ID and timestamp when missing and writes it
// to all sinks.
func (b *Broadcaster) Log(ctx context.Context, entry *Event) error {
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	formatted, err := b.format.Format(entry)
	if err != nil {
		b.log.Error("failed to format audit event",
			logger.String("action", entry.Action),
			logger.Err(err))
		return err
	}

	var errs *multierror.Error
	for _, sink := range b.sinks {
		if err := sink.Write(ctx, formatted); err != nil {
			b.log.Error("audit sink write failed",
				logger.String("sink", sink.Name()),
				logger.String("action", entry.Action),
				logger.Err(err))
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Close closes all sinks.
func (b *Broadcaster) Close() error {
	var errs *multierror.Error
	for _, sink := range b.sinks {
		if err := sink.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
