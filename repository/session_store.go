package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"policydesk-backend/models"
)

var (
	// ErrEmptySessionID is returned when a session operation receives no id
	ErrEmptySessionID = errors.New("session id is required")
)

// SessionStore keeps chat sessions. Appends to the same session are
// serialized; different sessions never block each other.
type SessionStore interface {
	// GetOrCreate returns the session, creating it on first reference.
	GetOrCreate(ctx context.Context, id string) (*models.ChatSession, error)
	// AppendTurn appends one turn, creating the session if needed.
	AppendTurn(ctx context.Context, id string, turn models.Turn) error
	// History returns a copy of the session's turns in order.
	History(ctx context.Context, id string) ([]models.Turn, error)
}

type sessionEntry struct {
	mu        sync.Mutex
	turns     []models.Turn
	createdAt time.Time
}

// MemorySessionStore is a process-local SessionStore
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) entry(id string) *sessionEntry {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		return e
	}
	e = &sessionEntry{createdAt: s.now()}
	s.sessions[id] = e
	return e
}

// GetOrCreate returns a snapshot of the session.
func (s *MemorySessionStore) GetOrCreate(_ context.Context, id string) (*models.ChatSession, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return &models.ChatSession{
		ID:        id,
		Turns:     append([]models.Turn(nil), e.turns...),
		CreatedAt: e.createdAt,
	}, nil
}

// AppendTurn appends under the session's own lock.
func (s *MemorySessionStore) AppendTurn(_ context.Context, id string, turn models.Turn) error {
	if id == "" {
		return ErrEmptySessionID
	}
	e := s.entry(id)
	e.mu.Lock()
	e.turns = append(e.turns, turn)
	e.mu.Unlock()
	return nil
}

// History returns a copy of the turns.
func (s *MemorySessionStore) History(_ context.Context, id string) ([]models.Turn, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Turn(nil), e.turns...), nil
}

// Len returns the number of known sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
