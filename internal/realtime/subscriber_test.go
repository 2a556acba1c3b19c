package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

var errBrokenPipe = errors.New("broken pipe")

// scriptedFeed replays a fixed event sequence, then fails with err, or
// blocks until the context is cancelled when err is nil.
type scriptedFeed struct {
	events []*entity.ChangeEvent
	errs   []error
	idx    int
	err    error
	closed bool
}

func (f *scriptedFeed) Fetch(ctx context.Context) (*entity.ChangeEvent, error) {
	if f.idx < len(f.events) {
		ev := f.events[f.idx]
		var stepErr error
		if f.idx < len(f.errs) {
			stepErr = f.errs[f.idx]
		}
		f.idx++
		if stepErr != nil {
			return nil, stepErr
		}
		return ev, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *scriptedFeed) Close() error {
	f.closed = true
	return nil
}

func event(table string, ts time.Time) *entity.ChangeEvent {
	row, _ := json.Marshal(map[string]string{"id": "o1"})
	return &entity.ChangeEvent{
		Type:            entity.EventUpdate,
		Table:           table,
		Row:             row,
		CommitTimestamp: ts,
	}
}

type harness struct {
	sub       *Subscriber
	received  []*entity.ChangeEvent
	refetches int
	connects  int
}

func newHarness(feeds []*scriptedFeed, table string) *harness {
	h := &harness{}
	connect := func(ctx context.Context) (Feed, error) {
		if h.connects >= len(feeds) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		feed := feeds[h.connects]
		h.connects++
		return feed, nil
	}
	h.sub = NewSubscriber(connect, table,
		func(ev *entity.ChangeEvent) { h.received = append(h.received, ev) },
		func(ctx context.Context) error { h.refetches++; return nil })
	h.sub.minBackoff = time.Millisecond
	h.sub.maxBackoff = 4 * time.Millisecond
	return h
}

func runUntilDone(t *testing.T, h *harness, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := h.sub.Run(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func TestRefetchOncePerReconnect(t *testing.T) {
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{events: []*entity.ChangeEvent{event("orders", t0.Add(1 * time.Second))}, err: errBrokenPipe},
		{events: []*entity.ChangeEvent{event("orders", t0.Add(2 * time.Second))}, err: errBrokenPipe},
		{events: []*entity.ChangeEvent{event("orders", t0.Add(3 * time.Second))}},
	}
	h := newHarness(feeds, "orders")

	runUntilDone(t, h, 300*time.Millisecond)

	assert.Equal(t, 3, h.connects)
	assert.Equal(t, 3, h.refetches, "exactly one re-fetch per (re)connect")
	assert.Len(t, h.received, 3)
	assert.True(t, feeds[0].closed)
	assert.True(t, feeds[1].closed)
}

func TestRefetchFailureTriggersReconnect(t *testing.T) {
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{events: []*entity.ChangeEvent{event("orders", t0.Add(1 * time.Second))}},
		{events: []*entity.ChangeEvent{event("orders", t0.Add(2 * time.Second))}},
	}
	connects := 0
	connect := func(ctx context.Context) (Feed, error) {
		if connects >= len(feeds) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		feed := feeds[connects]
		connects++
		return feed, nil
	}

	var sub *Subscriber
	var received []*entity.ChangeEvent
	var connectedDuringFailure bool
	refetches := 0
	refetch := func(ctx context.Context) error {
		refetches++
		if refetches == 1 {
			connectedDuringFailure = sub.Connected()
			return errors.New("state reload failed")
		}
		return nil
	}

	sub = NewSubscriber(connect, "orders",
		func(ev *entity.ChangeEvent) { received = append(received, ev) }, refetch)
	sub.minBackoff = time.Millisecond
	sub.maxBackoff = 4 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = sub.Run(ctx)

	// The first connect never produced a usable view, so the subscriber
	// must drop the feed and try again.
	assert.Equal(t, 2, connects)
	assert.Equal(t, 2, refetches)
	assert.True(t, feeds[0].closed)
	assert.False(t, connectedDuringFailure, "must not report connected while the view is stale")

	require.Len(t, received, 1)
	assert.Equal(t, t0.Add(2*time.Second), received[0].CommitTimestamp)
}

func TestDeduplicationByCommitTimestamp(t *testing.T) {
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{events: []*entity.ChangeEvent{
			event("orders", t0.Add(1*time.Second)),
			event("orders", t0.Add(1*time.Second)), // duplicate delivery
			event("orders", t0),                    // stale
			event("orders", t0.Add(2*time.Second)),
		}},
	}
	h := newHarness(feeds, "orders")

	runUntilDone(t, h, 300*time.Millisecond)

	require.Len(t, h.received, 2)
	assert.Equal(t, t0.Add(1*time.Second), h.received[0].CommitTimestamp)
	assert.Equal(t, t0.Add(2*time.Second), h.received[1].CommitTimestamp)
}

func TestStaleEventsAcrossReconnect(t *testing.T) {
	// The at-least-once transport may redeliver old events after a
	// reconnect; they must still be dropped.
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{events: []*entity.ChangeEvent{event("orders", t0.Add(5 * time.Second))}, err: errBrokenPipe},
		{events: []*entity.ChangeEvent{
			event("orders", t0.Add(5*time.Second)), // redelivered
			event("orders", t0.Add(6*time.Second)),
		}},
	}
	h := newHarness(feeds, "orders")

	runUntilDone(t, h, 300*time.Millisecond)

	require.Len(t, h.received, 2)
	assert.Equal(t, t0.Add(6*time.Second), h.received[1].CommitTimestamp)
}

func TestTableFilter(t *testing.T) {
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{events: []*entity.ChangeEvent{
			event("subscriptions", t0.Add(1*time.Second)),
			event("orders", t0.Add(2*time.Second)),
		}},
	}
	h := newHarness(feeds, "orders")

	runUntilDone(t, h, 300*time.Millisecond)

	require.Len(t, h.received, 1)
	assert.Equal(t, "orders", h.received[0].Table)
}

func TestMalformedEventsAreSkippedNotFatal(t *testing.T) {
	t0 := time.Now()
	feeds := []*scriptedFeed{
		{
			events: []*entity.ChangeEvent{
				nil,
				event("orders", t0.Add(1 * time.Second)),
			},
			errs: []error{apperr.Validationf("malformed change event"), nil},
		},
	}
	h := newHarness(feeds, "orders")

	runUntilDone(t, h, 300*time.Millisecond)

	assert.Equal(t, 1, h.connects, "a parse failure is not a disconnect")
	require.Len(t, h.received, 1)
}

func TestConnectedStateSurfaced(t *testing.T) {
	t0 := time.Now()
	var duringEvent bool

	feed := &scriptedFeed{events: []*entity.ChangeEvent{event("orders", t0.Add(1 * time.Second))}}
	connect := func(ctx context.Context) (Feed, error) { return feed, nil }

	var sub *Subscriber
	sub = NewSubscriber(connect, "orders",
		func(ev *entity.ChangeEvent) { duringEvent = sub.Connected() },
		func(ctx context.Context) error { return nil })
	sub.minBackoff = time.Millisecond

	assert.False(t, sub.Connected())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = sub.Run(ctx)

	assert.True(t, duringEvent, "subscriber must report connected while delivering")
	assert.False(t, sub.Connected(), "subscriber must report disconnected after shutdown")
}
