package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/eaglebank/ledger/internal/handler"
	"github.com/eaglebank/ledger/internal/reconcile"
	"github.com/eaglebank/ledger/internal/router"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/google/subcommands"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	configPath *string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API" }
func (*serveCmd) Usage() string {
	return `serve

  Serves the ledger HTTP API on LEDGER_PORT until SIGINT or SIGTERM.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *c.configPath, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	var rdb *goredis.Client
	if a.redis != nil {
		rdb = a.redis.Client
	}

	if a.cfg.ReconcileOnEvents && rdb != nil {
		reconciler := reconcile.NewReconciler(a.reader, a.logger)
		hostname, _ := os.Hostname()
		subscriber := events.NewSubscriber(rdb, events.SubscriberConfig{
			Group:    "ledger-reconciler",
			Consumer: "reconciler-" + hostname,
			Stream:   events.AccountEventsStream,
			Handler:  reconciler.HandleEvent,
		}, a.logger)
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("subscriber stopped", zap.Error(err))
			}
		}()
	}

	h := handler.NewLedgerHandler(a.commands, a.queries, a.logger)
	engine := router.SetupRouter(h, router.Options{
		APIKey:     a.cfg.APIKey,
		APIKeyHash: a.cfg.APIKeyHash,
		Limiter:    middleware.NewLimiter(rdb, "ledger:ratelimit", a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, a.logger),
		Logger:     a.logger,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("ledger API starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("server failed", zap.Error(err))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
