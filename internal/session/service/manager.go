package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/pipeline"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned while another session is still running: the
	// document accepts one mezzanine command at a time.
	ErrBusy = errors.New("another session is in progress")
)

// ============================================================
// Session Manager
// ============================================================

type Manager struct {
	doc  host.Document
	cfg  pipeline.Config
	idle time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	active   *Session
}

func NewManager(doc host.Document, cfg pipeline.Config, idle time.Duration) *Manager {
	return &Manager{
		doc:      doc,
		cfg:      cfg,
		idle:     idle,
		sessions: make(map[string]*Session),
	}
}

// Start opens a session and launches its command. An empty viewLevelID
// stands for a view without a level.
func (m *Manager) Start(ctx context.Context, viewLevelID string) (*Session, error) {
	if viewLevelID != "" {
		if _, err := findLevel(ctx, m.doc, viewLevelID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && !m.active.finished() {
		return nil, ErrBusy
	}

	s := newSession(uuid.NewString(), viewLevelID, m.doc)
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	m.sessions[s.ID] = s
	m.active = s
	log.Printf("[SESSION] %s started (view level %q)", s.ID, viewLevelID)

	go func() {
		defer cancel()
		s.run(runCtx, pipeline.New(m.doc, s, m.cfg))
	}()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Cancel aborts the session's command. Cleanup still runs; Done is closed
// once it has.
func (m *Manager) Cancel(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.cancel()
	return s, nil
}

// Sweep cancels sessions idle for longer than the idle timeout and forgets
// finished ones past it.
func (m *Manager) Sweep(now time.Time) {
	if m.idle <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if s.idleSince(now) <= m.idle {
			continue
		}
		if s.finished() {
			delete(m.sessions, id)
			continue
		}
		log.Printf("[SESSION] %s idle, cancelling", id)
		s.cancel()
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Shutdown cancels every running session and waits for their cleanup.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	var running []*Session
	for _, s := range m.sessions {
		s.cancel()
		running = append(running, s)
	}
	m.mu.Unlock()

	for _, s := range running {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
