package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/ledger/internal/command"
	"github.com/eaglebank/ledger/internal/config"
	"github.com/eaglebank/ledger/internal/query"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/internal/repository/memory"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/logger"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	redis    *sharedredis.Client
	reader   repository.LedgerReader
	commands *command.LedgerCommandService
	queries  *query.LedgerQueryService
}

// newApp loads configuration and connects the stores. logOutput overrides
// the configured log sink when set.
func newApp(ctx context.Context, configPath, logOutput string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logOutput == "" {
		logOutput = cfg.LogOutput
	}
	gin.SetMode(cfg.Mode)
	log, err := logger.New(cfg.Mode, logOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	var rdb *goredis.Client
	if a.cfg.RedisEnabled() {
		client, err := sharedredis.NewClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return err
		}
		a.redis = client
		rdb = client.Client
	}

	locking, err := command.ParseLockStrategy(a.cfg.Locking)
	if err != nil {
		return err
	}

	var writer repository.LedgerWriter
	switch a.cfg.Store {
	case "memory":
		store := memory.NewStore()
		writer, a.reader = store, store
		a.logger.Warn("using in-memory store; data is lost on exit")
	default:
		if a.cfg.AutoMigrate {
			if err := repository.RunMigrations(a.logger, a.cfg.DatabaseURL); err != nil {
				return err
			}
		}
		db, err := repository.OpenDB(ctx, repository.DBConfig{
			URL:          a.cfg.DatabaseURL,
			MaxOpenConns: a.cfg.DBMaxOpenConns,
			MaxIdleConns: a.cfg.DBMaxIdleConns,
		})
		if err != nil {
			return err
		}
		a.db = db
		writer = repository.NewLedgerWriteRepository(db)
		a.reader = repository.NewLedgerReadRepository(db, rdb, a.cfg.CacheTTL, a.logger)
	}

	var publisher command.EventPublisher
	if rdb != nil {
		publisher = events.NewPublisher(rdb)
	}
	a.commands = command.NewLedgerCommandService(writer, a.reader, publisher, a.logger, locking)
	a.queries = query.NewLedgerQueryService(a.reader)

	a.logger.Info("ledger ready",
		zap.String("store", a.cfg.Store),
		zap.String("locking", string(locking)),
		zap.Bool("redis", rdb != nil),
	)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
