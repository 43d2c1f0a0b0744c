// internal/game/game_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/models"
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []GameEvent{}
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) getLastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

func (mb *mockBroadcaster) getLastPlayerEvent(playerID uuid.UUID) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events, ok := mb.playerEvents[playerID]
	if !ok || len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) countByType(eventType GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 2, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func newPlayers(kind models.SeatKind) [engine.NumSeats]*models.Player {
	var players [engine.NumSeats]*models.Player
	for i := range players {
		players[i] = &models.Player{
			ID:        uuid.New(),
			Seat:      i,
			Kind:      kind,
			Connected: true,
			User:      &models.User{ID: uuid.New(), Username: "Player" + string(rune('A'+i))},
		}
	}
	return players
}

// setupTestMatch starts a match of four human seats with a fixed deal and a
// fake clock. Events produced by Start are cleared.
func setupTestMatch(t *testing.T) (*Match, *mockBroadcaster, *fakeClock) {
	t.Helper()
	m, err := NewMatch(uuid.New(), newPlayers(models.SeatHuman), store.NewMemoryStore())
	require.NoError(t, err)
	mb := newMockBroadcaster()
	clock := newFakeClock()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Clock = clock
	m.Log = testLogger()
	m.Seed = 7

	require.NoError(t, m.Start(context.Background()))
	mb.clear()
	return m, mb, clock
}

func playerAt(m *Match, seat int) uuid.UUID {
	return m.Players[seat].ID
}

// finishBidding has seat 3 bid amount and everyone else pass.
func finishBidding(t *testing.T, m *Match, amount int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), amount))
	for _, seat := range []int{2, 1, 0} {
		require.NoError(t, m.SubmitBid(ctx, playerAt(m, seat), 0))
	}
	s, err := m.State(ctx)
	require.NoError(t, err)
	require.Equal(t, engine.PhasePlaying, s.Phase)
	require.Equal(t, 3, s.BidWinner)
}

func TestNewMatchValidatesRoster(t *testing.T) {
	players := newPlayers(models.SeatHuman)
	players[2] = nil
	_, err := NewMatch(uuid.New(), players, store.NewMemoryStore())
	assert.ErrorIs(t, err, ErrInvalidRoster)

	players = newPlayers(models.SeatHuman)
	players[1].Seat = 0
	_, err = NewMatch(uuid.New(), players, store.NewMemoryStore())
	assert.ErrorIs(t, err, ErrInvalidRoster)

	players = newPlayers(models.SeatHuman)
	players[3].ID = players[0].ID
	_, err = NewMatch(uuid.New(), players, store.NewMemoryStore())
	assert.ErrorIs(t, err, ErrInvalidRoster)
}

func TestStartAnnouncesFirstBidder(t *testing.T) {
	m, err := NewMatch(uuid.New(), newPlayers(models.SeatHuman), store.NewMemoryStore())
	require.NoError(t, err)
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Log = testLogger()
	require.NoError(t, m.Start(context.Background()))

	turn := mb.findEventByType(EventPlayerTurn)
	require.NotNil(t, turn)
	assert.Equal(t, 3, turn.User.Seat, "dealer 0's right-hand neighbour bids first")
	assert.Equal(t, playerAt(m, 3), turn.User.ID)

	for seat := 0; seat < engine.NumSeats; seat++ {
		ev := mb.getLastPlayerEvent(playerAt(m, seat))
		require.NotNil(t, ev)
		require.Equal(t, EventPrivateSyncState, ev.Type)
		assert.Len(t, ev.State.Players[seat].RevealedHand, engine.DealBatch)
	}

	assert.ErrorIs(t, m.Start(context.Background()), store.ErrAlreadyExists)
}

func TestBiddingEvents(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	ctx := context.Background()

	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 17))
	ev := mb.findEventByType(EventBidPlaced)
	require.NotNil(t, ev)
	assert.Equal(t, 3, ev.User.Seat)
	assert.Equal(t, 17, ev.Payload["amount"])
	assert.Equal(t, false, ev.Payload["matched"])

	turn := mb.getLastEvent()
	require.NotNil(t, turn)
	assert.Equal(t, EventPlayerTurn, turn.Type)
	assert.Equal(t, 2, turn.User.Seat)

	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 2), 17))
	ev = mb.findEventByType(EventBidPlaced)
	assert.Equal(t, true, ev.Payload["matched"])

	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 0))
	passed := mb.findEventByType(EventBidPassed)
	require.NotNil(t, passed)
	assert.Equal(t, 3, passed.User.Seat)

	s, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Bid{Seat: 2, Amount: 17}, s.HighestBid)
	assert.Equal(t, uint64(3), s.Version)
}

func TestRejectedCommandReportsPrivately(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	ctx := context.Background()
	before, err := m.State(ctx)
	require.NoError(t, err)

	err = m.SubmitBid(ctx, playerAt(m, 0), 16)
	assert.ErrorIs(t, err, engine.ErrOutOfTurn)

	ev := mb.getLastPlayerEvent(playerAt(m, 0))
	require.NotNil(t, ev)
	assert.Equal(t, EventPrivateActionFail, ev.Type)
	assert.Equal(t, "bid", ev.Payload["action"])
	assert.Nil(t, mb.getLastEvent(), "nothing public for a rejected command")

	after, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, m.SubmitBid(ctx, uuid.New(), 16), ErrUnknownPlayer)
	assert.ErrorIs(t, m.SubmitBid(ctx, playerAt(m, 3), 30), engine.ErrInvalidBid)
}

func TestTrumpHiddenUntilRevealed(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	ctx := context.Background()
	finishBidding(t, m, 16)

	require.NoError(t, m.SelectTrump(ctx, playerAt(m, 3), engine.SuitClubs))
	ev := mb.findEventByType(EventTrumpSelected)
	require.NotNil(t, ev)
	assert.Nil(t, ev.Payload, "public event must not carry the suit")

	winnerView, err := m.SyncState(ctx, playerAt(m, 3))
	require.NoError(t, err)
	assert.Equal(t, engine.SuitClubs, winnerView.TrumpSuit)
	assert.Len(t, winnerView.Players[3].RevealedHand, engine.HandSize)

	other, err := m.SyncState(ctx, playerAt(m, 0))
	require.NoError(t, err)
	assert.Equal(t, engine.NoSuit, other.TrumpSuit)
	assert.True(t, other.TrumpSelected)
	assert.Empty(t, other.Players[3].RevealedHand)
	assert.Equal(t, engine.HandSize, other.Players[3].HandSize)

	// The bid winner is not eligible to double.
	assert.ErrorIs(t, m.ResolveBain(ctx, playerAt(m, 3), true), engine.ErrNotEligible)
	require.NoError(t, m.ResolveBain(ctx, playerAt(m, 2), true))
	bain := mb.findEventByType(EventBainResolved)
	require.NotNil(t, bain)
	assert.Equal(t, true, bain.Payload["doubled"])
	require.NoError(t, m.ResolveBain(ctx, playerAt(m, 3), false))

	s, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Multiplier())
	assert.Equal(t, engine.BainNone, s.BainPhase)
}

func TestSyncStateUnknownPlayer(t *testing.T) {
	m, _, _ := setupTestMatch(t)
	_, err := m.SyncState(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

// racingStore lets another writer in between a read and the following write.
type racingStore struct {
	*store.MemoryStore
	once sync.Once
}

func (r *racingStore) Write(ctx context.Context, id uuid.UUID, expected uint64, s engine.GameState) error {
	r.once.Do(func() {
		cur, _ := r.MemoryStore.Read(ctx, id)
		cur.Version++
		_ = r.MemoryStore.Write(ctx, id, cur.Version-1, cur)
	})
	return r.MemoryStore.Write(ctx, id, expected, s)
}

func TestConcurrentWriteLoses(t *testing.T) {
	st := &racingStore{MemoryStore: store.NewMemoryStore()}
	m, err := NewMatch(uuid.New(), newPlayers(models.SeatHuman), st)
	require.NoError(t, err)
	m.Log = testLogger()
	m.Seed = 7
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	mb.clear()

	err = m.SubmitBid(ctx, playerAt(m, 3), 16)
	assert.ErrorIs(t, err, store.ErrStaleState)
	assert.Nil(t, mb.findEventByType(EventBidPlaced), "a lost write publishes nothing")

	// The retry against the fresh state goes through.
	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 16))
}

func TestSubmitCommandDropsStaleVersion(t *testing.T) {
	m, _, _ := setupTestMatch(t)
	ctx := context.Background()
	s, err := m.State(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 16))
	_, err = m.SubmitCommand(ctx, s.Version, engine.BidCommand(2, 0))
	assert.ErrorIs(t, err, store.ErrStaleState)

	next, err := m.SubmitCommand(ctx, s.Version+1, engine.BidCommand(2, 0))
	require.NoError(t, err)
	assert.True(t, next.Passed[2])
}

func TestEnforceTurnTimer(t *testing.T) {
	m, mb, clock := setupTestMatch(t)
	ctx := context.Background()

	acted, err := m.EnforceTurnTimer(ctx)
	require.NoError(t, err)
	assert.False(t, acted)

	clock.Advance(31 * time.Second)
	acted, err = m.EnforceTurnTimer(ctx)
	require.NoError(t, err)
	assert.True(t, acted)

	ev := mb.findEventByType(EventPlayerTimeout)
	require.NotNil(t, ev)
	assert.Equal(t, 3, ev.User.Seat)
	assert.Equal(t, "bid", ev.Payload["action"])

	s, err := m.State(ctx)
	require.NoError(t, err)
	assert.True(t, s.Passed[3])
	assert.Equal(t, 2, s.CurrentBidder)
	assert.True(t, s.TurnStartedAt.Equal(clock.Now()), "the next seat gets a fresh budget")
}

func TestEnforceTurnTimerStaleWriteIsSilent(t *testing.T) {
	st := &racingStore{MemoryStore: store.NewMemoryStore()}
	m, err := NewMatch(uuid.New(), newPlayers(models.SeatHuman), st)
	require.NoError(t, err)
	mb := newMockBroadcaster()
	clock := newFakeClock()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Clock = clock
	m.Log = testLogger()
	m.Seed = 7
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	mb.clear()

	clock.Advance(31 * time.Second)
	acted, err := m.EnforceTurnTimer(ctx)
	assert.ErrorIs(t, err, store.ErrStaleState)
	assert.False(t, acted)
	assert.Nil(t, mb.findEventByType(EventPlayerTimeout), "no timeout is announced for a lost write")

	s, err := m.State(ctx)
	require.NoError(t, err)
	assert.False(t, s.Passed[3])
}

func TestEnforceTurnTimerAtBudgetWaits(t *testing.T) {
	m, mb, clock := setupTestMatch(t)
	ctx := context.Background()

	clock.Advance(30 * time.Second)
	acted, err := m.EnforceTurnTimer(ctx)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Nil(t, mb.findEventByType(EventPlayerTimeout))

	clock.Advance(time.Millisecond)
	acted, err = m.EnforceTurnTimer(ctx)
	require.NoError(t, err)
	assert.True(t, acted)
}

// withRoundPopup stores a copy of the current state with the round popup up.
func withRoundPopup(t *testing.T, m *Match) engine.GameState {
	t.Helper()
	ctx := context.Background()
	s, err := m.State(ctx)
	require.NoError(t, err)
	next := s
	next.RoundPopup = engine.RoundResult{Active: true, Round: s.Round}
	next.Version++
	require.NoError(t, m.Store.Write(ctx, m.ID, s.Version, next))
	return next
}

func TestSubmitCommandRejectsOutOfRangeSeat(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	ctx := context.Background()
	s := withRoundPopup(t, m)

	for _, seat := range []int{-1, engine.NumSeats} {
		require.NotPanics(t, func() {
			_, err := m.SubmitCommand(ctx, s.Version, engine.Command{Kind: engine.CmdDismissRound, Seat: seat})
			assert.ErrorIs(t, err, engine.ErrInvalidSeat)
		})
	}

	after, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Version, after.Version)
	assert.True(t, after.RoundPopup.Active)
	assert.Empty(t, mb.allEvents)
}

func TestTransitionWithoutSeatedActor(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	prev := withRoundPopup(t, m)
	next := prev
	next.RoundPopup = engine.RoundResult{}
	next.Version++

	m.Mu.Lock()
	defer m.Mu.Unlock()
	require.NotPanics(t, func() {
		m.onTransition(prev, next, engine.Command{Kind: engine.CmdDismissRound, Seat: engine.NoSeat})
	})
	assert.NotNil(t, mb.findEventByType(EventPlayerTurn))
}

func TestResultContextHasDeadline(t *testing.T) {
	ctx, cancel := resultContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok, "background result writes must be bounded")
	assert.WithinDuration(t, time.Now().Add(resultWriteTimeout), deadline, time.Second)
}

func TestDisconnectSkipsPrivateEvents(t *testing.T) {
	m, mb, _ := setupTestMatch(t)
	ctx := context.Background()
	id := playerAt(m, 0)

	m.HandleDisconnect(id)
	require.NoError(t, m.SubmitBid(ctx, playerAt(m, 3), 16))
	assert.Nil(t, mb.getLastPlayerEvent(id))
	assert.NotNil(t, mb.getLastPlayerEvent(playerAt(m, 1)))

	require.NoError(t, m.HandleReconnect(ctx, id))
	ev := mb.getLastPlayerEvent(id)
	require.NotNil(t, ev)
	assert.Equal(t, EventPrivateSyncState, ev.Type)
	assert.Equal(t, uint64(1), ev.State.Version)
}

// TestPlayFullRoundByHand drives one round through the public operations
// using the stall guard's choice of card, and checks the trick and round
// events.
func TestPlayFullRoundByHand(t *testing.T) {
	m, mb, clock := setupTestMatch(t)
	ctx := context.Background()
	finishBidding(t, m, 16)
	require.NoError(t, m.SelectTrump(ctx, playerAt(m, 3), engine.SuitHearts))
	require.NoError(t, m.ResolveBain(ctx, playerAt(m, 2), false))

	for i := 0; i < engine.TricksPerRound*engine.NumSeats+8; i++ {
		s, err := m.State(ctx)
		require.NoError(t, err)
		if s.Round != 1 {
			break
		}
		cmd, ok := engine.DefaultCommand(s, clock.Now())
		require.True(t, ok)
		if cmd.Kind != engine.CmdPlayCard {
			continue
		}
		seat, _ := s.ActingSeat()
		if s.CanRequestReveal(seat) {
			require.NoError(t, m.RequestTrumpReveal(ctx, playerAt(m, seat)))
			continue
		}
		require.NoError(t, m.SubmitPlay(ctx, playerAt(m, seat), cmd.Card))
	}

	assert.Equal(t, engine.TricksPerRound, mb.countByType(EventTrickWon))
	scored := mb.findEventByType(EventRoundScored)
	require.NotNil(t, scored)
	res, ok := scored.Payload["result"].(engine.RoundResult)
	require.True(t, ok)
	assert.Equal(t, 1, res.Round)
	assert.Equal(t, 28, res.TeamPoints[0]+res.TeamPoints[1])

	s, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Round)
	assert.True(t, s.RoundPopup.Active)
	require.NoError(t, m.DismissRoundPopup(ctx, playerAt(m, 1)))
	assert.ErrorIs(t, m.DismissRoundPopup(ctx, playerAt(m, 1)), engine.ErrNoPopup)
}
