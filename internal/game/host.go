// internal/game/host.go
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
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrLeaseHeld = errors.New("match is hosted by another process")
	ErrLeaseLost = errors.New("host lease lost")
)

// Policy chooses the next command for an autonomous seat.
type Policy interface {
	Decide(s engine.GameState, seat int) (engine.Command, bool)
}

// HostConfig tunes a Host.
type HostConfig struct {
	HolderID      string        // Lease holder identity; a random one when empty.
	LeaseTTL      time.Duration // How long the lease survives without renewal.
	StallInterval time.Duration // How often turn budgets are checked and the lease renewed.
	BotDelayMin   time.Duration
	BotDelayMax   time.Duration
}

// DefaultHostConfig returns the production timings.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		LeaseTTL:      15 * time.Second,
		StallInterval: 5 * time.Second,
		BotDelayMin:   2500 * time.Millisecond,
		BotDelayMax:   3000 * time.Millisecond,
	}
}

// Host drives a match while it holds the match lease: it schedules moves for
// autonomous seats and applies default actions for seats that run out of
// time. Human commands reach the Match directly and need no host.
type Host struct {
	match  *Match
	lease  store.Lease
	policy Policy
	cfg    HostConfig
	log    logrus.FieldLogger

	mu         sync.Mutex
	botTimer   *time.Timer
	botVersion uint64 // State version the pending bot move was computed for.
	botPending bool
}

func NewHost(m *Match, lease store.Lease, policy Policy, cfg HostConfig) *Host {
	if cfg.HolderID == "" {
		cfg.HolderID = uuid.NewString()
	}
	return &Host{
		match:  m,
		lease:  lease,
		policy: policy,
		cfg:    cfg,
		log:    m.logger().WithField("holder", cfg.HolderID),
	}
}

// Run holds the lease and drives the match until it completes, ctx ends or
// the lease is lost. It returns nil once the match is over.
func (h *Host) Run(ctx context.Context) error {
	id := h.match.ID
	ok, err := h.lease.Acquire(ctx, id, h.cfg.HolderID, h.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease for %s: %w", id, err)
	}
	if !ok {
		return ErrLeaseHeld
	}
	h.log.Info("host lease acquired")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.lease.Release(ctx, id, h.cfg.HolderID); err != nil {
			h.log.WithError(err).Warn("release lease")
		}
	}()
	defer h.cancelBot()

	changes := h.match.Subscribe()
	defer h.match.Unsubscribe(changes)
	ticker := time.NewTicker(h.cfg.StallInterval)
	defer ticker.Stop()

	for {
		s, err := h.match.State(ctx)
		if err != nil {
			return err
		}
		if s.IsTerminal() {
			h.log.Info("match complete, host stopping")
			return nil
		}
		h.scheduleBot(ctx, s)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		case <-ticker.C:
			ok, err := h.lease.Renew(ctx, id, h.cfg.HolderID, h.cfg.LeaseTTL)
			if err != nil {
				return fmt.Errorf("renew lease for %s: %w", id, err)
			}
			if !ok {
				return ErrLeaseLost
			}
			if _, err := h.match.EnforceTurnTimer(ctx); err != nil && !errors.Is(err, store.ErrStaleState) {
				h.log.WithError(err).Warn("stall guard")
			}
		}
	}
}

// scheduleBot arms a timer for the next autonomous move in s, unless one is
// already pending for this version. A pending move for an older version is
// cancelled.
func (h *Host) scheduleBot(ctx context.Context, s engine.GameState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.botPending && h.botVersion == s.Version {
		return
	}
	h.stopBotLocked()

	cmd, ok := h.nextBotCommand(s)
	if !ok {
		return
	}
	version := s.Version
	h.botPending, h.botVersion = true, version
	h.botTimer = time.AfterFunc(h.botDelay(), func() {
		h.fireBot(ctx, version, cmd)
	})
}

// nextBotCommand asks the policy for each autonomous seat, acting seat
// first, and returns the first move offered. Other seats may still have an
// out-of-turn pair declaration.
func (h *Host) nextBotCommand(s engine.GameState) (engine.Command, bool) {
	first, ok := s.ActingSeat()
	if !ok {
		return engine.Command{}, false
	}
	for i := 0; i < engine.NumSeats; i++ {
		seat := (first + i) % engine.NumSeats
		if !h.match.Players[seat].Autonomous() {
			continue
		}
		if cmd, ok := h.policy.Decide(s, seat); ok {
			return cmd, true
		}
	}
	return engine.Command{}, false
}

func (h *Host) fireBot(ctx context.Context, version uint64, cmd engine.Command) {
	h.mu.Lock()
	if !h.botPending || h.botVersion != version {
		h.mu.Unlock()
		return
	}
	h.botPending = false
	h.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	entry := h.log.WithFields(logrus.Fields{"seat": cmd.Seat, "action": cmd.Kind.String(), "version": version})
	_, err := h.match.SubmitCommand(ctx, version, cmd)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStaleState):
		entry.Debug("bot move superseded")
	case errors.Is(err, context.Canceled):
	default:
		entry.WithError(err).Warn("bot move failed")
	}
}

// botDelay returns a uniform delay in [BotDelayMin, BotDelayMax].
func (h *Host) botDelay() time.Duration {
	spread := h.cfg.BotDelayMax - h.cfg.BotDelayMin
	if spread <= 0 {
		return h.cfg.BotDelayMin
	}
	return h.cfg.BotDelayMin + rand.N(spread+1)
}

func (h *Host) cancelBot() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopBotLocked()
}

func (h *Host) stopBotLocked() {
	if h.botTimer != nil {
		h.botTimer.Stop()
		h.botTimer = nil
	}
	h.botPending = false
}
