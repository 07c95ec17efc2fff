package pdfview

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultIdleTTL is how long an untouched session keeps its document.
	DefaultIdleTTL = 30 * time.Minute

	// DefaultMaxSessions bounds the number of live sessions.
	DefaultMaxSessions = 64
)

type session struct {
	viewer   *Viewer
	lastUsed time.Time
}

// Manager keeps viewers addressable by session id.
type Manager struct {
	loader      Loader
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closed   bool
	stopped  chan struct{}
}

// NewManager returns a manager whose viewers load through loader.
func NewManager(loader Loader, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		loader:      loader,
		idleTTL:     idleTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[uuid.UUID]*session),
	}
}

// SetMaxSessions changes the session limit. Values below 1 restore the default.
func (m *Manager) SetMaxSessions(n int) {
	if n < 1 {
		n = DefaultMaxSessions
	}
	m.mu.Lock()
	m.maxSessions = n
	m.mu.Unlock()
}

// Context bounds document loads of all sessions; it ends on Close.
func (m *Manager) Context() context.Context { return m.ctx }

// Create starts a new idle session. When the limit is reached, sessions
// past their idle TTL are swept first; if none were, ErrTooManySessions is
// returned.
func (m *Manager) Create() (uuid.UUID, *Viewer, error) {
	if m.Len() >= m.limit() {
		m.Sweep()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return uuid.Nil, nil, ErrManagerClosed
	}
	if len(m.sessions) >= m.maxSessions {
		return uuid.Nil, nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.maxSessions)
	}
	id := uuid.New()
	v := NewViewer(m.loader)
	m.sessions[id] = &session{viewer: v, lastUsed: m.now()}
	return id, v, nil
}

func (m *Manager) limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSessions
}

// Get returns the viewer of a session and marks it used.
func (m *Manager) Get(id string) (*Viewer, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.lastUsed = m.now()
	return s.viewer, nil
}

// Remove closes a session and releases its document.
func (m *Manager) Remove(id string) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.viewer.Close()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Viewer
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, s.viewer)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, v := range idle {
		v.Close()
	}
	return len(idle)
}

// StartJanitor sweeps idle sessions every interval until Close.
func (m *Manager) StartJanitor(interval time.Duration) {
	m.mu.Lock()
	if m.stopped != nil || m.closed {
		m.mu.Unlock()
		return
	}
	m.stopped = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					log.Printf("pdfview: closed %d idle viewer sessions", n)
				}
			}
		}
	}()
}

// Close stops the janitor and closes every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*session)
	stopped := m.stopped
	m.mu.Unlock()

	m.cancel()
	if stopped != nil {
		<-stopped
	}
	for _, s := range sessions {
		s.viewer.Close()
	}
	return nil
}
