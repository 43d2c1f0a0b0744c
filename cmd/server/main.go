// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/twentynine/engine"
	"github.com/jason-s-yu/twentynine/engine/agent"
	"github.com/jason-s-yu/twentynine/internal/cache"
	"github.com/jason-s-yu/twentynine/internal/config"
	"github.com/jason-s-yu/twentynine/internal/database"
	"github.com/jason-s-yu/twentynine/internal/game"
	"github.com/jason-s-yu/twentynine/internal/models"
	"github.com/jason-s-yu/twentynine/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// run wires the backing services named in cfg and hosts one match of four
// autonomous seats until it completes or ctx ends.
func run(ctx context.Context, cfg config.Config) error {
	var (
		st    store.Store = store.NewMemoryStore()
		lease store.Lease = store.NewMemoryLease(nil)
	)

	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer database.DB.Close()
		if err := database.Migrate(ctx, database.DB); err != nil {
			return err
		}
		st = database.NewPostgresStore(database.DB)
		logrus.Info("postgres connected, match state stored in match_states")
	}
	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
			return err
		}
		defer cache.Rdb.Close()
		st = cache.NewRedisStore(cache.Rdb)
		lease = cache.NewRedisLease(cache.Rdb)
		logrus.WithField("addr", cfg.RedisAddr).Info("redis connected, match state stored in redis")
	}

	var players [engine.NumSeats]*models.Player
	for seat := range players {
		players[seat] = &models.Player{ID: uuid.New(), Seat: seat, Kind: models.SeatAutonomous}
	}
	m, err := game.NewMatch(uuid.Nil, players, st)
	if err != nil {
		return err
	}
	m.Rules.TurnDuration = cfg.TurnDuration
	m.Seed = cfg.Seed
	m.Log = logrus.StandardLogger()
	m.BroadcastFn = func(ev game.GameEvent) {
		logrus.WithFields(logrus.Fields{"match": m.ID, "event": ev.Type}).Debug("event")
	}

	done := make(chan struct{})
	m.OnGameEnd = func(id uuid.UUID, winners []uuid.UUID, gamePoints [engine.NumTeams]int) {
		logrus.WithFields(logrus.Fields{"match": id, "winners": winners, "gamePoints": gamePoints}).Info("game over")
		close(done)
	}

	if err := m.Start(ctx); err != nil {
		return err
	}

	host := game.NewHost(m, lease, agent.Heuristic{}, game.HostConfig{
		LeaseTTL:      cfg.LeaseTTL,
		StallInterval: cfg.StallInterval,
		BotDelayMin:   cfg.BotDelayMin,
		BotDelayMax:   cfg.BotDelayMax,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return host.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-done:
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}
