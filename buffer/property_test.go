package buffer_test

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tailored-agentic-units/rewind/buffer"
	"github.com/tailored-agentic-units/rewind/event"
)

// step advances the clock by gap milliseconds and adds one event of kind at
// the new time.
type step struct {
	kind event.Kind
	gap  int64
}

func genSteps() gopter.Gen {
	stepGen := gopter.CombineGens(
		gen.IntRange(int(event.KindDOMContentLoaded), int(event.KindPlugin)),
		gen.Int64Range(0, 700),
	).Map(func(vals []interface{}) step {
		return step{kind: event.Kind(vals[0].(int)), gap: vals[1].(int64)}
	})
	return gen.SliceOf(stepGen)
}

// replay feeds steps into a fresh buffer and calls check after each Add with
// the events that were present just before pruning. first is the event that
// started the current recording: the first one added while the buffer was
// empty.
func replay(steps []step, check func(before []event.Event, first event.Event, b *buffer.Buffer) bool) bool {
	clock := &manualClock{}
	b := buffer.New(time.Second, buffer.WithClock(clock.now))

	var first event.Event
	for i, s := range steps {
		clock.ms += s.gap
		e := event.Event{
			Timestamp: clock.ms,
			Kind:      s.kind,
			Payload:   json.RawMessage(strconv.Itoa(i)),
		}
		before := append(b.All(), e)
		if len(before) == 1 {
			first = e
		}

		b.Add(e)

		if !check(before, first, b) {
			return false
		}
	}
	return true
}

func TestProperty_HeadIsFirstEventOrSnapshot(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("buffer head is the first event of the recording or a full snapshot", prop.ForAll(
		func(steps []step) bool {
			return replay(steps, func(_ []event.Event, first event.Event, b *buffer.Buffer) bool {
				all := b.All()
				if len(all) == 0 {
					return true
				}
				head := all[0]
				return head.IsAnchor() || string(head.Payload) == string(first.Payload)
			})
		},
		genSteps(),
	))

	properties.TestingRun(t)
}

func TestProperty_NoInvalidCollapse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("a buffer holding a snapshot never prunes to empty", prop.ForAll(
		func(steps []step) bool {
			return replay(steps, func(before []event.Event, _ event.Event, b *buffer.Buffer) bool {
				for _, e := range before {
					if e.IsAnchor() {
						return b.Len() > 0
					}
				}
				return true
			})
		},
		genSteps(),
	))

	properties.TestingRun(t)
}

func TestProperty_ChronologicalOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("retained events stay in insertion order", prop.ForAll(
		func(steps []step) bool {
			return replay(steps, func(_ []event.Event, _ event.Event, b *buffer.Buffer) bool {
				all := b.All()
				for i := 1; i < len(all); i++ {
					prev, _ := strconv.Atoi(string(all[i-1].Payload))
					cur, _ := strconv.Atoi(string(all[i].Payload))
					if cur <= prev {
						return false
					}
				}
				return true
			})
		},
		genSteps(),
	))

	properties.TestingRun(t)
}

func TestProperty_ReadIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("two reads without an Add are identical", prop.ForAll(
		func(steps []step) bool {
			return replay(steps, func(_ []event.Event, _ event.Event, b *buffer.Buffer) bool {
				a, c := b.All(), b.All()
				if len(a) != len(c) {
					return false
				}
				for i := range a {
					if a[i].Timestamp != c[i].Timestamp || a[i].Kind != c[i].Kind || string(a[i].Payload) != string(c[i].Payload) {
						return false
					}
				}
				return true
			})
		},
		genSteps(),
	))

	properties.TestingRun(t)
}

func TestProperty_WindowRetainedWhenAnchored(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("in-window events survive when the head is a snapshot preceding them", prop.ForAll(
		func(steps []step) bool {
			return replay(steps, func(before []event.Event, _ event.Event, b *buffer.Buffer) bool {
				all := b.All()
				if len(all) == 0 || !all[0].IsAnchor() {
					return true
				}
				// Events inserted no earlier than the head that were present
				// before the prune must all still be present.
				kept := make(map[string]bool, len(all))
				for _, e := range all {
					kept[string(e.Payload)] = true
				}
				headIdx, _ := strconv.Atoi(string(all[0].Payload))
				for _, e := range before {
					idx, _ := strconv.Atoi(string(e.Payload))
					if idx >= headIdx && !kept[string(e.Payload)] {
						// Only a collapse may drop events after the head.
						return len(all) == 1
					}
				}
				return true
			})
		},
		genSteps(),
	))

	properties.TestingRun(t)
}
