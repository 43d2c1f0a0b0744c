// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/internal/cache"
	"github.com/jason-s-yu/twentynine/internal/models"
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownPlayer = errors.New("player is not seated in this match")
	ErrInvalidRoster = errors.New("invalid roster")
)

// Match is one table of four. It owns the roster and the event callbacks;
// the game state itself lives in Store and every change goes through
// engine.Apply followed by a conditional write.
type Match struct {
	ID        uuid.UUID // Unique identifier for this match.
	CreatorID uuid.UUID // User who opened the table.

	Players [engine.NumSeats]*models.Player // Indexed by seat.
	Rules   engine.Rules                    // Rules for new deals; read by Start.
	Seed    uint64                          // Deal seed; zero picks one at Start.

	Store store.Store
	Clock store.Clock
	Log   logrus.FieldLogger

	actionIndex int             // Sequential index for the action log.
	watchers    []chan struct{} // Signalled after each accepted command.
	Mu          sync.Mutex      // Serializes commands for this match within the process.

	// Communication Callbacks
	BroadcastFn         func(ev GameEvent)                     // Sends an event to every seat.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent) // Sends an event to one seat.
	OnGameEnd           OnGameEndFunc                          // Called once when the match completes.
}

// NewMatch seats players, which must be indexed by their Seat and carry
// distinct IDs. The match uses default rules, the wall clock and the standard
// logrus logger until the caller replaces them.
func NewMatch(creatorID uuid.UUID, players [engine.NumSeats]*models.Player, st store.Store) (*Match, error) {
	seen := make(map[uuid.UUID]bool, engine.NumSeats)
	for i, p := range players {
		if p == nil {
			return nil, fmt.Errorf("%w: seat %d is empty", ErrInvalidRoster, i)
		}
		if p.Seat != i {
			return nil, fmt.Errorf("%w: player %s claims seat %d at index %d", ErrInvalidRoster, p.ID, p.Seat, i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: player %s seated twice", ErrInvalidRoster, p.ID)
		}
		seen[p.ID] = true
	}
	if st == nil {
		return nil, errors.New("nil store")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return &Match{
		ID:        id,
		CreatorID: creatorID,
		Players:   players,
		Rules:     engine.DefaultRules(),
		Store:     st,
		Clock:     store.SystemClock{},
		Log:       logrus.StandardLogger(),
	}, nil
}

func (m *Match) logger() *logrus.Entry {
	return m.Log.WithField("match", m.ID)
}

// Start deals the first round and stores the new match. The first bidder's
// turn clock starts now.
func (m *Match) Start(ctx context.Context) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	seed := m.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := engine.NewGame(seed, m.Rules)
	s.TurnStartedAt = m.Clock.Now()
	s.TurnDuration = m.Rules.TurnDuration

	if err := m.Store.Create(ctx, m.ID, s); err != nil {
		return fmt.Errorf("create match %s: %w", m.ID, err)
	}
	m.logger().WithFields(logrus.Fields{"seed": seed, "dealer": s.DealerIndex}).Info("match started")
	m.logAction(m.CreatorID, "match_start", map[string]interface{}{
		"seed":   seed,
		"dealer": s.DealerIndex,
		"rules":  s.Rules,
	})

	m.broadcastSyncStateToAll(s)
	m.broadcastPlayerTurn(s)
	m.notify()
	return nil
}

// State returns the stored state.
func (m *Match) State(ctx context.Context) (engine.GameState, error) {
	s, err := m.Store.Read(ctx, m.ID)
	if err != nil {
		return engine.GameState{}, fmt.Errorf("read match %s: %w", m.ID, err)
	}
	return s, nil
}

// SyncState returns the match as playerID may see it.
func (m *Match) SyncState(ctx context.Context, playerID uuid.UUID) (ObfGameState, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.getPlayerByID(playerID) == nil {
		return ObfGameState{}, ErrUnknownPlayer
	}
	s, err := m.State(ctx)
	if err != nil {
		return ObfGameState{}, err
	}
	return m.GetCurrentObfuscatedGameState(s, playerID), nil
}

// SubmitBid places a bid of amount for playerID; zero passes.
func (m *Match) SubmitBid(ctx context.Context, playerID uuid.UUID, amount int) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdBid, Amount: amount})
}

// SubmitPlay plays card from playerID's hand into the current trick.
func (m *Match) SubmitPlay(ctx context.Context, playerID uuid.UUID, card engine.Card) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdPlayCard, Card: card})
}

// SelectTrump records the bid winner's hidden trump choice.
func (m *Match) SelectTrump(ctx context.Context, playerID uuid.UUID, suit engine.Suit) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdSelectTrump, Suit: suit})
}

// RequestTrumpReveal asks for trump to be shown; the caller must be unable
// to follow the led suit.
func (m *Match) RequestTrumpReveal(ctx context.Context, playerID uuid.UUID) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdRevealTrump})
}

// DeclarePair declares the King and Queen of trump held by playerID.
func (m *Match) DeclarePair(ctx context.Context, playerID uuid.UUID) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdDeclarePair})
}

// ResolveBain doubles (or redoubles) when escalate is set and skips otherwise.
func (m *Match) ResolveBain(ctx context.Context, playerID uuid.UUID, escalate bool) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdBain, Escalate: escalate})
}

func (m *Match) DismissRoundPopup(ctx context.Context, playerID uuid.UUID) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdDismissRound})
}

func (m *Match) DismissSetPopup(ctx context.Context, playerID uuid.UUID) error {
	return m.submit(ctx, playerID, engine.Command{Kind: engine.CmdDismissSet})
}

// SubmitCommand applies cmd for cmd.Seat only while the stored state is still
// at version, and returns store.ErrStaleState otherwise. Bots and other
// deferred actors use it so a move computed for an older state is dropped.
func (m *Match) SubmitCommand(ctx context.Context, version uint64, cmd engine.Command) (engine.GameState, error) {
	if !engine.ValidSeat(cmd.Seat) {
		return engine.GameState{}, fmt.Errorf("%w: %d", engine.ErrInvalidSeat, cmd.Seat)
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	prev, err := m.State(ctx)
	if err != nil {
		return engine.GameState{}, err
	}
	if prev.Version != version {
		return prev, store.ErrStaleState
	}
	return m.applyLocked(ctx, prev, cmd)
}

// EnforceTurnTimer applies the default action for the seat whose turn budget
// has run out. It reports whether an action was taken.
func (m *Match) EnforceTurnTimer(ctx context.Context) (bool, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	s, err := m.State(ctx)
	if err != nil {
		return false, err
	}
	now := m.Clock.Now()
	if !engine.TimedOut(s, now) {
		return false, nil
	}
	cmd, ok := engine.DefaultCommand(s, now)
	if !ok {
		return false, nil
	}

	if _, err := m.applyLocked(ctx, s, cmd); err != nil {
		return false, err
	}
	m.logger().WithFields(logrus.Fields{"seat": cmd.Seat, "action": cmd.Kind.String(), "version": s.Version}).
		Info("turn timed out, default action applied")
	p := m.playerAt(cmd.Seat)
	m.fireEvent(GameEvent{
		Type:    EventPlayerTimeout,
		User:    &EventUser{ID: p.ID, Seat: cmd.Seat},
		Payload: map[string]interface{}{"action": cmd.Kind.String(), "elapsed": s.Elapsed(now).Milliseconds()},
	})
	return true, nil
}

// submit resolves playerID to a seat and applies cmd for it.
func (m *Match) submit(ctx context.Context, playerID uuid.UUID, cmd engine.Command) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p := m.getPlayerByID(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	cmd.Seat = p.Seat
	prev, err := m.State(ctx)
	if err != nil {
		return err
	}
	_, err = m.applyLocked(ctx, prev, cmd)
	return err
}

// applyLocked runs cmd against prev and writes the result on condition that
// the stored version is still prev.Version. Engine rejections are reported
// privately to the acting player and returned unwrapped.
// Assumes lock is held by caller.
func (m *Match) applyLocked(ctx context.Context, prev engine.GameState, cmd engine.Command) (engine.GameState, error) {
	cmd.At = m.Clock.Now()
	entry := m.logger().WithFields(logrus.Fields{"seat": cmd.Seat, "action": cmd.Kind.String(), "version": prev.Version})

	next, err := engine.Apply(prev, cmd)
	if err != nil {
		entry.WithError(err).Debug("command rejected")
		if p := m.playerAt(cmd.Seat); p != nil {
			m.fireEventToPlayer(p.ID, GameEvent{
				Type:    EventPrivateActionFail,
				Payload: map[string]interface{}{"action": cmd.Kind.String(), "reason": err.Error()},
			})
		}
		return prev, err
	}

	if err := m.Store.Write(ctx, m.ID, prev.Version, next); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			entry.Debug("state moved on before write")
			return prev, err
		}
		return prev, fmt.Errorf("write match %s: %w", m.ID, err)
	}
	entry.Debug("command applied")

	m.onTransition(prev, next, cmd)
	m.notify()
	return next, nil
}

// Subscribe returns a channel signalled after every accepted command.
// Signals coalesce; a reader sees at least one after the latest change.
func (m *Match) Subscribe() <-chan struct{} {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	ch := make(chan struct{}, 1)
	m.watchers = append(m.watchers, ch)
	return ch
}

func (m *Match) Unsubscribe(ch <-chan struct{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
			return
		}
	}
}

// Assumes lock is held by caller.
func (m *Match) notify() {
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// HandleDisconnect marks playerID as away. Its seat keeps its turn clock and
// the stall guard acts for it when the budget runs out.
func (m *Match) HandleDisconnect(playerID uuid.UUID) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if p := m.getPlayerByID(playerID); p != nil {
		p.Connected = false
		m.logger().WithField("seat", p.Seat).Info("player disconnected")
	}
}

// HandleReconnect marks playerID as present again and sends it a fresh sync.
func (m *Match) HandleReconnect(ctx context.Context, playerID uuid.UUID) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p := m.getPlayerByID(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.Connected = true
	s, err := m.State(ctx)
	if err != nil {
		return err
	}
	m.sendSyncState(s, playerID)
	return nil
}

// fireEvent broadcasts an event to every seat via BroadcastFn.
// Assumes lock is held by caller.
func (m *Match) fireEvent(ev GameEvent) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
		return
	}
	m.logger().WithField("event", ev.Type).Trace("no BroadcastFn, dropping event")
}

// fireEventToPlayer sends an event to one connected player.
// Assumes lock is held by caller.
func (m *Match) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if m.BroadcastToPlayerFn == nil {
		m.logger().WithField("event", ev.Type).Trace("no BroadcastToPlayerFn, dropping event")
		return
	}
	if p := m.getPlayerByID(playerID); p != nil && p.Connected {
		m.BroadcastToPlayerFn(playerID, ev)
	}
}

func (m *Match) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range m.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (m *Match) playerAt(seat int) *models.Player {
	if !engine.ValidSeat(seat) {
		return nil
	}
	return m.Players[seat]
}

// logAction sends an action record to the Redis action log.
// Assumes lock is held by caller.
func (m *Match) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	m.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        m.ID,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     m.Clock.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}

	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			m.logger().WithError(err).WithField("action", rec.ActionType).Error("publish action")
		}
	}(record)
}
