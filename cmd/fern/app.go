package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/db"
	"github.com/Ramsey-B/fern/internal/repositories/contact"
	"github.com/Ramsey-B/fern/pkg/contacts"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/locking"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/startup"
)

// app owns the connections shared by every command
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	service  *contacts.Service
}

// newApp registers the dependencies a command needs. migrate applies the
// embedded migrations once the database is reachable.
func newApp(cfg *config.Config, logger ectologger.Logger, migrate bool) *app {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	a.startup.AddDependency(startup.Func{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			conn, err := database.Open(ctx, cfg.Database(), logger)
			if err != nil {
				return err
			}
			if migrate {
				if err := a.migrator().Migrate(conn.SQL(), conn.DriverName()); err != nil {
					_ = conn.Close()
					return err
				}
			}
			a.db = conn
			return nil
		},
		StopFunc: func(context.Context) error {
			return a.db.Close()
		},
	})

	after := []string{"database"}

	if cfg.LockBackend == locking.BackendRedis {
		after = append(after, "redis")
		a.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFunc: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, cfg.Redis(), logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFunc: func(context.Context) error {
				return a.redis.Close()
			},
		})
	}

	if cfg.EventsEnabled {
		after = append(after, "events")
		a.startup.AddDependency(startup.Func{
			Name: "events",
			StartFunc: func(context.Context) error {
				a.producer = kafka.NewProducer(cfg.Kafka(), logger)
				return nil
			},
			StopFunc: func(context.Context) error {
				return a.producer.Close()
			},
		})
	}

	a.startup.AddDependency(startup.Func{
		Name:      "service",
		After:     after,
		StartFunc: a.buildService,
	})

	return a
}

func (a *app) start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

func (a *app) stop(ctx context.Context) {
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Shutdown did not complete cleanly")
	}
}

func (a *app) migrator() *database.MigrationService {
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		Migrations:   db.Migrations,
		Version:      uint(max(a.cfg.DatabaseMigrationVersion, 0)),
		Force:        a.cfg.DatabaseMigrationForce,
		AutoRollback: a.cfg.DatabaseMigrationAutoRollback,
	})
}

func (a *app) buildService(context.Context) error {
	locker, err := a.newLocker()
	if err != nil {
		return err
	}

	var opts []contacts.Option
	if a.producer != nil {
		opts = append(opts, contacts.WithEmitter(events.NewEmitter(a.producer, a.logger)))
	}

	a.service = contacts.NewService(
		contact.NewRepository(a.db, a.logger),
		locker,
		contacts.Config{
			Matching:       a.cfg.Matching(),
			NotesSeparator: a.cfg.MergeNotesSeparator,
			SessionTTL:     a.cfg.ResolutionSessionTTL,
			LockBackend:    a.cfg.LockBackend,
		},
		a.logger,
		opts...,
	)
	return nil
}

func (a *app) newLocker() (locking.Locker, error) {
	switch a.cfg.LockBackend {
	case locking.BackendLocal:
		return locking.NewLocalLocker(a.cfg.LockTimeout), nil
	case locking.BackendFile:
		return locking.NewFileLocker(a.cfg.LockFilePath, a.cfg.LockTimeout)
	case locking.BackendRedis:
		return locking.NewRedisLocker(a.redis, a.cfg.LockTTL, a.cfg.LockTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", a.cfg.LockBackend)
	}
}
