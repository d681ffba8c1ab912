// Package event defines the recorded interaction event shared by the
// retention buffer, the engine, and the export pipeline.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind classifies an event. Values follow the session-replay wire numbering
// so recordings stay readable by existing viewers.
type Kind int

const (
	KindDOMContentLoaded Kind = iota
	KindLoad
	KindFullSnapshot
	KindIncrementalSnapshot
	KindMeta
	KindCustom
	KindPlugin
)

var kindNames = map[Kind]string{
	KindDOMContentLoaded:    "dom_content_loaded",
	KindLoad:                "load",
	KindFullSnapshot:        "full_snapshot",
	KindIncrementalSnapshot: "incremental_snapshot",
	KindMeta:                "meta",
	KindCustom:              "custom",
	KindPlugin:              "plugin",
}

// String returns the snake_case name of the kind, or "kind(N)" for values
// outside the known set.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsAnchor reports whether replay can start from an event of this kind.
func (k Kind) IsAnchor() bool {
	return k == KindFullSnapshot
}

// ParseKind resolves a kind from its name as returned by String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind: %s", name)
}

// Event is a single timestamped capture record. Payload is opaque to the
// retention engine and is carried through to the recording byte for byte.
// A nil Payload means "no payload" and is recorded as JSON null.
//
// Field order is part of the recording format: timestamp, kind, payload.
type Event struct {
	Timestamp int64           `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// New creates an Event by marshaling v as its payload.
//
// Example:
//
//	e, err := event.New(event.KindFullSnapshot, time.Now().UnixMilli(), node)
func New(kind Kind, timestamp int64, v any) (Event, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Event{Timestamp: timestamp, Kind: kind, Payload: payload}, nil
}

// IsAnchor reports whether e is a full snapshot.
func (e Event) IsAnchor() bool {
	return e.Kind.IsAnchor()
}

// Clone returns a copy of e that does not share payload bytes.
func (e Event) Clone() Event {
	if e.Payload != nil {
		e.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return e
}

// CloneAll copies a slice of events, payloads included. A nil input yields
// an empty, non-nil slice so the result always serializes as an array.
func CloneAll(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

// Normalize returns a copy of e with its payload normalized by
// NormalizePayload.
func (e Event) Normalize() Event {
	e.Payload = NormalizePayload(e.Payload)
	return e
}

// NormalizePayload returns a copy of p without surrounding JSON whitespace.
// An empty payload or a bare null becomes nil. Everything between the first
// and last significant byte is kept as is, so a recording carries exactly the
// bytes the capture layer produced.
func NormalizePayload(p json.RawMessage) json.RawMessage {
	p = bytes.Trim(p, " \t\r\n")
	if len(p) == 0 || string(p) == "null" {
		return nil
	}
	return append(json.RawMessage(nil), p...)
}
