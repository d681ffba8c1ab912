// Package buffer implements the age-bounded retention buffer that backs a
// recording.
//
// Events are appended in arrival order and pruned against a sliding window
// after every Add. Pruning never leaves the buffer in a state where replay
// cannot start from index 0: the head is always either the first event ever
// added or a full snapshot. To keep that guarantee the buffer may hold events
// older than the window, back to the nearest preceding snapshot.
//
//	b := buffer.New(30 * time.Second)
//	res := b.Add(e)
//	events := b.All()
//
// A Buffer is not safe for concurrent use. It is owned by a single engine
// goroutine that serializes all access.
package buffer

import (
	"time"

	"github.com/tailored-agentic-units/rewind/event"
)

// Option configures a Buffer.
type Option func(*Buffer)

// WithClock overrides the wall clock used to compute the prune cutoff.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}

// Buffer holds the retained events of one recording in chronological order.
type Buffer struct {
	maxAge time.Duration
	now    func() time.Time
	events []event.Event
}

// New creates an empty Buffer retaining roughly maxAge of history.
func New(maxAge time.Duration, opts ...Option) *Buffer {
	b := &Buffer{
		maxAge: maxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromConfig creates a Buffer from configuration.
func FromConfig(cfg *Config, opts ...Option) *Buffer {
	return New(cfg.MaxAge(), opts...)
}

// MaxAge returns the nominal retention window.
func (b *Buffer) MaxAge() time.Duration {
	return b.maxAge
}

// Len returns the number of retained events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Add appends e and prunes the buffer. Events are stored as given; a
// malformed timestamp only affects how accurately the window is applied.
func (b *Buffer) Add(e event.Event) PruneResult {
	b.events = append(b.events, e)
	return b.prune()
}

// All returns a copy of the retained events, oldest first. The copy does not
// share payload bytes with the buffer.
func (b *Buffer) All() []event.Event {
	return event.CloneAll(b.events)
}

// Span returns the timestamps of the oldest and newest retained events.
// ok is false when the buffer is empty.
func (b *Buffer) Span() (oldest, newest int64, ok bool) {
	if len(b.events) == 0 {
		return 0, 0, false
	}
	return b.events[0].Timestamp, b.events[len(b.events)-1].Timestamp, true
}

// Clear drops every event.
func (b *Buffer) Clear() {
	clear(b.events)
	b.events = nil
}

func (b *Buffer) prune() PruneResult {
	if len(b.events) == 0 {
		return PruneResult{}
	}

	cutoff := b.now().Add(-b.maxAge).UnixMilli()
	firstValid := b.firstValidIndex(cutoff)

	switch {
	case firstValid == 0:
		return PruneResult{}

	case firstValid < 0:
		if s := lastAnchor(b.events, len(b.events)-1); s >= 0 {
			dropped := len(b.events) - 1
			anchor := b.events[s]
			b.Clear()
			b.events = []event.Event{anchor}
			return PruneResult{Outcome: OutcomeCollapsed, Dropped: dropped}
		}
		dropped := len(b.events)
		b.Clear()
		return PruneResult{Outcome: OutcomeCleared, Dropped: dropped}
	}

	if s := lastAnchor(b.events, firstValid-1); s >= 0 {
		b.dropFront(s)
		return PruneResult{Outcome: OutcomeAnchored, Dropped: s}
	}

	b.dropFront(firstValid)
	if b.events[0].IsAnchor() {
		return PruneResult{Outcome: OutcomeTrimmed, Dropped: firstValid}
	}

	// Nothing before the window can anchor it, so the in-window prefix up to
	// the first snapshot cannot be replayed.
	if s := firstAnchor(b.events); s >= 0 {
		b.dropFront(s)
		return PruneResult{Outcome: OutcomeUnanchored, Dropped: firstValid + s}
	}
	dropped := firstValid + len(b.events)
	b.Clear()
	return PruneResult{Outcome: OutcomeUnanchored, Dropped: dropped}
}

// firstValidIndex returns the index of the first event at or after cutoff,
// or -1 when every event is older.
func (b *Buffer) firstValidIndex(cutoff int64) int {
	for i, e := range b.events {
		if e.Timestamp >= cutoff {
			return i
		}
	}
	return -1
}

// dropFront discards events[0:n]. The dropped slots are zeroed so their
// payloads can be collected before the backing array is reallocated.
func (b *Buffer) dropFront(n int) {
	if n <= 0 {
		return
	}
	clear(b.events[:n])
	b.events = b.events[n:]
}

func lastAnchor(events []event.Event, from int) int {
	for i := from; i >= 0; i-- {
		if events[i].IsAnchor() {
			return i
		}
	}
	return -1
}

func firstAnchor(events []event.Event) int {
	for i, e := range events {
		if e.IsAnchor() {
			return i
		}
	}
	return -1
}
