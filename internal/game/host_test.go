// internal/game/host_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/engine/agent"
	"github.com/jason-s-yu/twentynine/internal/models"
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHostConfig() HostConfig {
	return HostConfig{
		LeaseTTL:      time.Second,
		StallInterval: 10 * time.Millisecond,
		BotDelayMin:   0,
		BotDelayMax:   time.Millisecond,
	}
}

func TestHostPlaysBotMatchToEnd(t *testing.T) {
	m, err := NewMatch(uuid.New(), newPlayers(models.SeatAutonomous), store.NewMemoryStore())
	require.NoError(t, err)
	m.Log = testLogger()
	m.Seed = 11
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn

	var (
		endMu      sync.Mutex
		endCalls   int
		endWinners []uuid.UUID
	)
	m.OnGameEnd = func(id uuid.UUID, winners []uuid.UUID, _ [engine.NumTeams]int) {
		endMu.Lock()
		defer endMu.Unlock()
		assert.Equal(t, m.ID, id)
		endCalls++
		endWinners = winners
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, m.Start(ctx))

	h := NewHost(m, store.NewMemoryLease(nil), agent.Heuristic{}, fastHostConfig())
	require.NoError(t, h.Run(ctx))

	s, err := m.State(ctx)
	require.NoError(t, err)
	require.True(t, s.IsTerminal())
	require.NoError(t, s.CheckConservation())

	endMu.Lock()
	defer endMu.Unlock()
	assert.Equal(t, 1, endCalls)
	require.Len(t, endWinners, 2)
	for _, id := range endWinners {
		p := m.getPlayerByID(id)
		require.NotNil(t, p)
		assert.Equal(t, s.Winner, engine.Team(p.Seat))
	}
	assert.NotNil(t, mb.findEventByType(EventGameEnd))
	assert.Positive(t, mb.countByType(EventRoundScored))
	assert.Zero(t, mb.countByType(EventPlayerTimeout), "bots never run out of time")
}

func TestHostStallGuardActsForIdleHuman(t *testing.T) {
	m, mb, clock := setupTestMatch(t)
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	h := NewHost(m, store.NewMemoryLease(nil), agent.Heuristic{}, fastHostConfig())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mb.countByType(EventPlayerTimeout) > 0
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	s, err := m.State(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Passed[3])
}

func TestHostRespectsLease(t *testing.T) {
	m, _, _ := setupTestMatch(t)
	lease := store.NewMemoryLease(nil)
	ok, err := lease.Acquire(context.Background(), m.ID, "elsewhere", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	h := NewHost(m, lease, agent.Heuristic{}, fastHostConfig())
	assert.ErrorIs(t, h.Run(context.Background()), ErrLeaseHeld)
}

func TestHostStopsWhenLeaseLost(t *testing.T) {
	m, _, _ := setupTestMatch(t)
	lease := store.NewMemoryLease(nil)
	cfg := fastHostConfig()
	cfg.HolderID = "me"
	h := NewHost(m, lease, agent.Heuristic{}, cfg)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		ok, _ := lease.Renew(context.Background(), m.ID, "me", time.Second)
		return ok
	}, time.Second, time.Millisecond)
	require.NoError(t, lease.Release(context.Background(), m.ID, "me"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrLeaseLost)
	case <-time.After(5 * time.Second):
		t.Fatal("host kept running without its lease")
	}
}

// stubPolicy always offers the same command.
type stubPolicy struct{ cmd engine.Command }

func (p stubPolicy) Decide(engine.GameState, int) (engine.Command, bool) { return p.cmd, true }

// TestBotMoveDroppedWhenStateMovesOn: a human acting before the bot's delay
// elapses cancels the bot's move for the old version.
func TestBotMoveDroppedWhenStateMovesOn(t *testing.T) {
	players := newPlayers(models.SeatHuman)
	players[2].Kind = models.SeatAutonomous
	m, err := NewMatch(uuid.New(), players, store.NewMemoryStore())
	require.NoError(t, err)
	m.Log = testLogger()
	m.Seed = 7
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 16))

	s, err := m.State(ctx)
	require.NoError(t, err)
	cfg := fastHostConfig()
	cfg.BotDelayMin, cfg.BotDelayMax = time.Hour, time.Hour
	h := NewHost(m, store.NewMemoryLease(nil), stubPolicy{cmd: engine.BidCommand(2, 17)}, cfg)

	h.scheduleBot(ctx, s)
	h.mu.Lock()
	assert.True(t, h.botPending)
	h.mu.Unlock()

	// Seat 2 is autonomous but the state moves on (the stall guard, say).
	_, err = m.SubmitCommand(ctx, s.Version, engine.BidCommand(2, 0))
	require.NoError(t, err)

	h.fireBot(ctx, s.Version, engine.BidCommand(2, 17))
	after, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Version+1, after.Version, "stale bot move must not apply")
	assert.Equal(t, 16, after.HighestBid.Amount)
	h.cancelBot()
}

func TestBotDelayRange(t *testing.T) {
	h := &Host{cfg: HostConfig{BotDelayMin: 2500 * time.Millisecond, BotDelayMax: 3000 * time.Millisecond}}
	for i := 0; i < 200; i++ {
		d := h.botDelay()
		assert.GreaterOrEqual(t, d, 2500*time.Millisecond)
		assert.LessOrEqual(t, d, 3000*time.Millisecond)
	}
	h.cfg.BotDelayMax = h.cfg.BotDelayMin
	assert.Equal(t, 2500*time.Millisecond, h.botDelay())
}
