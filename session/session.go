// Package session holds the auxiliary state attached to the current
// recording: who is being recorded, free-form tags, and a capped log of
// breadcrumbs describing ambient activity.
package session

import "maps"

// Level is the severity of a breadcrumb.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// UserInfo identifies the recorded user. Context carries arbitrary
// caller-defined attributes and is not validated.
type UserInfo struct {
	ID      string         `json:"id"`
	Context map[string]any `json:"context,omitempty"`
}

// Clone copies u and its context map. Context values are shared. A nil u
// yields nil.
func (u *UserInfo) Clone() *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{ID: u.ID, Context: maps.Clone(u.Context)}
}

// Breadcrumb is an auxiliary log entry. It is exported with the recording
// metadata, never with the replay payload.
type Breadcrumb struct {
	Timestamp int64          `json:"timestamp"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Level     Level          `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Clone returns a copy of b that does not share its data map.
func (b Breadcrumb) Clone() Breadcrumb {
	b.Data = maps.Clone(b.Data)
	return b
}

// State is a point-in-time copy of a Session.
type State struct {
	RecordingID string
	User        *UserInfo
	Tags        map[string]string
	Breadcrumbs []Breadcrumb
}

// Session holds identity, tags, and breadcrumbs for one recording.
// Implementations are not required to be safe for concurrent use; a session
// is owned by a single engine.
type Session interface {
	// ID returns the recording identifier. It changes on Clear.
	ID() string
	// SetUser replaces the current identity. A nil info removes it.
	SetUser(info *UserInfo)
	// User returns a copy of the current identity, or nil.
	User() *UserInfo
	// SetTag inserts or overwrites a tag.
	SetTag(key, value string)
	// Tags returns a copy of the tag mapping.
	Tags() map[string]string
	// AddBreadcrumb appends a breadcrumb, evicting the oldest once the
	// configured cap is exceeded.
	AddBreadcrumb(b Breadcrumb)
	// Breadcrumbs returns a copy of the breadcrumb log, oldest first.
	Breadcrumbs() []Breadcrumb
	// Snapshot returns a copy of the whole state.
	Snapshot() State
	// Clear resets identity, tags, and breadcrumbs and starts a new recording id.
	Clear()
}
