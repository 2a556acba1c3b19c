package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

// Feed is a single change-feed connection. Fetch blocks until an event
// arrives or the connection breaks.
type Feed interface {
	Fetch(ctx context.Context) (*entity.ChangeEvent, error)
	Close() error
}

// ConnectFunc opens a fresh feed connection.
type ConnectFunc func(ctx context.Context) (Feed, error)

// Subscriber keeps a local view consistent over an at-least-once change
// feed. Duplicates are dropped by commit timestamp, and every reconnect
// triggers a full re-fetch because the transport fills no gaps.
type Subscriber struct {
	connect ConnectFunc
	table   string
	onEvent func(*entity.ChangeEvent)
	refetch func(ctx context.Context) error

	minBackoff time.Duration
	maxBackoff time.Duration

	mu         sync.Mutex
	connected  bool
	lastCommit time.Time
}

// NewSubscriber creates a new instance of Subscriber scoped to one table.
// refetch must reload the full current state for that scope.
func NewSubscriber(connect ConnectFunc, table string, onEvent func(*entity.ChangeEvent), refetch func(ctx context.Context) error) *Subscriber {
	return &Subscriber{
		connect:    connect,
		table:      table,
		onEvent:    onEvent,
		refetch:    refetch,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Connected reports current connectivity so callers can surface staleness.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// Run drives the subscription until ctx is cancelled. Reconnection uses
// doubling backoff capped at maxBackoff.
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.minBackoff

	for {
		feed, err := s.connect(ctx)
		if err != nil {
			log.Error().Err(err).Msgf("Error connecting change feed for table %s", s.table)
			if err := s.sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = s.nextBackoff(backoff)
			continue
		}

		// Events may have been missed while disconnected. Re-fetch the
		// full scope once per reconnect; waiting for new events is not
		// enough. A failed re-fetch means the view is still stale, so
		// the attempt counts as a failed connect and backs off.
		if err := s.refetch(ctx); err != nil {
			log.Error().Err(err).Msgf("Error re-fetching state for table %s", s.table)
			feed.Close()
			if err := s.sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = s.nextBackoff(backoff)
			continue
		}
		s.setConnected(true)
		backoff = s.minBackoff

		err = s.consume(ctx, feed)
		s.setConnected(false)
		feed.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msgf("Change feed for table %s disconnected", s.table)

		if err := s.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = s.nextBackoff(backoff)
	}
}

func (s *Subscriber) consume(ctx context.Context, feed Feed) error {
	for {
		ev, err := feed.Fetch(ctx)
		if err != nil {
			// Malformed payloads are skipped, not treated as a
			// disconnect.
			if errors.Is(err, apperr.ErrValidation) {
				log.Warn().Err(err).Msg("Dropping malformed change event")
				continue
			}
			return err
		}

		if s.table != "" && ev.Table != s.table {
			continue
		}

		s.mu.Lock()
		stale := !ev.CommitTimestamp.After(s.lastCommit)
		if !stale {
			s.lastCommit = ev.CommitTimestamp
		}
		s.mu.Unlock()
		if stale {
			continue
		}

		s.onEvent(ev)
	}
}

func (s *Subscriber) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > s.maxBackoff {
		next = s.maxBackoff
	}
	return next
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
