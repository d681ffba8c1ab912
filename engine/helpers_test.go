package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/event"
	"github.com/tailored-agentic-units/rewind/observability"
)

// manualClock is a wall clock in epoch milliseconds shared by the test and
// the engine goroutine.
type manualClock struct {
	ms atomic.Int64
}

func (c *manualClock) set(ms int64) { c.ms.Store(ms) }

func (c *manualClock) now() time.Time { return time.UnixMilli(c.ms.Load()) }

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, e observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureObserver) ofType(typ observability.EventType) []observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []observability.Event
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func snap(ts int64) event.Event {
	return event.Event{Timestamp: ts, Kind: event.KindFullSnapshot, Payload: json.RawMessage(fmt.Sprintf(`{"at":%d}`, ts))}
}

func incr(ts int64) event.Event {
	return event.Event{Timestamp: ts, Kind: event.KindIncrementalSnapshot, Payload: json.RawMessage(fmt.Sprintf(`{"at":%d}`, ts))}
}

func timestamps(events []event.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.Timestamp
	}
	return out
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// newTestEngine starts an engine with a one second window, a manual clock and
// a capturing observer. It is shut down when the test ends.
func newTestEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *manualClock, *captureObserver) {
	t.Helper()

	clock := &manualClock{}
	obs := &captureObserver{}

	cfg := engine.DefaultConfig()
	cfg.Buffer.MaxAgeMs = 1000
	cfg.Export.UserAgent = "test-agent"
	cfg.Export.URL = "https://example.test/"

	all := append([]engine.Option{engine.WithClock(clock.now), engine.WithObserver(obs)}, opts...)
	e, err := engine.New(context.Background(), &cfg, all...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown(time.Second) })

	return e, clock, obs
}

// addAt sets the clock to the event's timestamp and queues it.
func addAt(t *testing.T, e *engine.Engine, clock *manualClock, ev event.Event) {
	t.Helper()
	clock.set(ev.Timestamp)
	if err := e.AddEvent(context.Background(), ev); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	// The clock is read when the command is applied, so wait for it.
	if _, err := e.Events(context.Background()); err != nil {
		t.Fatalf("Events failed: %v", err)
	}
}
