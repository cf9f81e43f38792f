package contacts

import (
	"sync"
	"time"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/resolution"
)

// sessions parks workflows that wait for a caller's decision. An expired
// session is dropped without touching the store.
type sessions struct {
	mu      sync.Mutex
	entries map[string]*session
	ttl     time.Duration
	now     func() time.Time
}

type session struct {
	workflow  *resolution.Workflow
	expiresAt time.Time
}

func newSessions(ttl time.Duration, now func() time.Time) *sessions {
	return &sessions{
		entries: make(map[string]*session),
		ttl:     ttl,
		now:     now,
	}
}

func (s *sessions) put(id string, workflow *resolution.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.entries[id] = &session{workflow: workflow, expiresAt: s.now().Add(s.ttl)}
	metrics.ActiveSessions.Set(float64(len(s.entries)))
}

// get returns a live session and extends its expiry
func (s *sessions) get(id string) (*resolution.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	entry.expiresAt = s.now().Add(s.ttl)
	return entry.workflow, true
}

func (s *sessions) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	metrics.ActiveSessions.Set(float64(len(s.entries)))
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries)
}

// sweep drops expired sessions. Callers hold mu.
func (s *sessions) sweep() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.entries)))
}
