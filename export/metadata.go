package export

import (
	"time"

	"github.com/tailored-agentic-units/rewind/session"
)

// Environment describes where the recording was captured.
type Environment struct {
	UserAgent string
	URL       string
}

// Metadata is the content of meta.json.
type Metadata struct {
	Timestamp   int64                `json:"timestamp"`
	Reason      string               `json:"reason"`
	UserInfo    *session.UserInfo    `json:"userInfo"`
	Tags        map[string]string    `json:"tags"`
	Breadcrumbs []session.Breadcrumb `json:"breadcrumbs"`
	UserAgent   string               `json:"userAgent"`
	URL         string               `json:"url"`
	RecordingID string               `json:"recordingId,omitempty"`
}

// NewMetadata assembles bundle metadata from a session snapshot. An empty
// reason is recorded as DefaultReason.
func NewMetadata(state session.State, reason string, env Environment, at time.Time) Metadata {
	if reason == "" {
		reason = DefaultReason
	}
	tags := state.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	breadcrumbs := state.Breadcrumbs
	if breadcrumbs == nil {
		breadcrumbs = []session.Breadcrumb{}
	}
	return Metadata{
		Timestamp:   at.UnixMilli(),
		Reason:      reason,
		UserInfo:    state.User,
		Tags:        tags,
		Breadcrumbs: breadcrumbs,
		UserAgent:   env.UserAgent,
		URL:         env.URL,
		RecordingID: state.RecordingID,
	}
}
