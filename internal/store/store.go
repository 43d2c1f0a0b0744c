// internal/store/store.go

// Package store defines where match state lives between commands and who may
// drive a match. Implementations live in the cache (Redis) and database
// (Postgres) packages; this package carries the in-memory ones.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
)

var (
	ErrNotFound      = errors.New("match not found")
	ErrAlreadyExists = errors.New("match already exists")
	// ErrStaleState is returned by a conditional write when the stored version
	// no longer matches the one the caller read.
	ErrStaleState = errors.New("match state changed since it was read")
)

// Store persists the authoritative state of each match.
type Store interface {
	// Create stores the initial state of a new match.
	Create(ctx context.Context, matchID uuid.UUID, s engine.GameState) error
	// Read returns the current state.
	Read(ctx context.Context, matchID uuid.UUID) (engine.GameState, error)
	// Write replaces the state only if the stored version still equals
	// expected, and returns ErrStaleState otherwise.
	Write(ctx context.Context, matchID uuid.UUID, expected uint64, s engine.GameState) error
}

// Lease grants one holder at a time the right to drive a match.
type Lease interface {
	// Acquire takes the lease, or reports false if another holder has it.
	// Acquiring a lease already held by holder refreshes it.
	Acquire(ctx context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error)
	// Renew extends the lease, or reports false if holder lost it.
	Renew(ctx context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, matchID uuid.UUID, holder string) error
}

// Clock is the time source for turn stamps and the stall guard.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MemoryStore keeps match state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]engine.GameState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[uuid.UUID]engine.GameState)}
}

func (m *MemoryStore) Create(_ context.Context, matchID uuid.UUID, s engine.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[matchID]; ok {
		return ErrAlreadyExists
	}
	m.states[matchID] = s
	return nil
}

func (m *MemoryStore) Read(_ context.Context, matchID uuid.UUID) (engine.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[matchID]
	if !ok {
		return engine.GameState{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Write(_ context.Context, matchID uuid.UUID, expected uint64, s engine.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[matchID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expected {
		return ErrStaleState
	}
	m.states[matchID] = s
	return nil
}

type leaseEntry struct {
	holder  string
	expires time.Time
}

// MemoryLease is a Lease for a single process.
type MemoryLease struct {
	mu     sync.Mutex
	clock  Clock
	leases map[uuid.UUID]leaseEntry
}

// NewMemoryLease returns a lease table timed by clock, or the wall clock when
// clock is nil.
func NewMemoryLease(clock Clock) *MemoryLease {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryLease{clock: clock, leases: make(map[uuid.UUID]leaseEntry)}
}

func (l *MemoryLease) Acquire(_ context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if cur, ok := l.leases[matchID]; ok && cur.holder != holder && now.Before(cur.expires) {
		return false, nil
	}
	l.leases[matchID] = leaseEntry{holder: holder, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLease) Renew(_ context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	cur, ok := l.leases[matchID]
	if !ok || cur.holder != holder || !now.Before(cur.expires) {
		return false, nil
	}
	l.leases[matchID] = leaseEntry{holder: holder, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLease) Release(_ context.Context, matchID uuid.UUID, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.leases[matchID]; ok && cur.holder == holder {
		delete(l.leases, matchID)
	}
	return nil
}
