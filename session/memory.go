package session

import (
	"maps"

	"github.com/google/uuid"
)

type memorySession struct {
	id             string
	maxBreadcrumbs int
	user           *UserInfo
	tags           map[string]string
	breadcrumbs    []Breadcrumb
}

// NewMemorySession creates a Session held entirely in memory that keeps at
// most maxBreadcrumbs breadcrumbs. A non-positive cap uses the default.
// The session is assigned a unique UUIDv7 identifier.
func NewMemorySession(maxBreadcrumbs int) Session {
	if maxBreadcrumbs <= 0 {
		maxBreadcrumbs = DefaultMaxBreadcrumbs
	}
	return &memorySession{
		id:             newID(),
		maxBreadcrumbs: maxBreadcrumbs,
		tags:           make(map[string]string),
	}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) SetUser(info *UserInfo) {
	s.user = info.Clone()
}

func (s *memorySession) User() *UserInfo {
	return s.user.Clone()
}

func (s *memorySession) SetTag(key, value string) {
	s.tags[key] = value
}

func (s *memorySession) Tags() map[string]string {
	return maps.Clone(s.tags)
}

func (s *memorySession) AddBreadcrumb(b Breadcrumb) {
	s.breadcrumbs = append(s.breadcrumbs, b.Clone())
	if over := len(s.breadcrumbs) - s.maxBreadcrumbs; over > 0 {
		clear(s.breadcrumbs[:over])
		s.breadcrumbs = s.breadcrumbs[over:]
	}
}

func (s *memorySession) Breadcrumbs() []Breadcrumb {
	copied := make([]Breadcrumb, len(s.breadcrumbs))
	for i, b := range s.breadcrumbs {
		copied[i] = b.Clone()
	}
	return copied
}

func (s *memorySession) Snapshot() State {
	return State{
		RecordingID: s.id,
		User:        s.User(),
		Tags:        s.Tags(),
		Breadcrumbs: s.Breadcrumbs(),
	}
}

func (s *memorySession) Clear() {
	s.id = newID()
	s.user = nil
	s.tags = make(map[string]string)
	s.breadcrumbs = nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
