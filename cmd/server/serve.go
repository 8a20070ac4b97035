package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"drawphone/internal/broadcast"
	"drawphone/internal/config"
	"drawphone/internal/db"
	"drawphone/internal/game"
	"drawphone/internal/housekeeping"
	"drawphone/internal/server"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(ctx context.Context, opts *options) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		logger.Warn("failed to load env file", zap.String("path", opts.envFile), zap.Error(err))
	}
	cfg := config.Load()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	hub := broadcast.NewHub(logger)
	gateway, presence, err := newGateway(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}

	svc := game.NewService(store, gateway, logger, game.Options{
		MaxPlayers:          cfg.MaxPlayers,
		DefaultRoundSeconds: cfg.DefaultRoundSeconds,
		MinRoundSeconds:     cfg.MinRoundSeconds,
		MaxRoundSeconds:     cfg.MaxRoundSeconds,
	})

	janitor, err := housekeeping.New(svc, cfg.SweepSchedule, game.SweepPolicy{
		IdleAfter:     cfg.IdleGameAfter(),
		PurgeArchived: cfg.ArchivedRetention(),
	}, logger)
	if err != nil {
		return err
	}
	janitor.Start()

	srv := &http.Server{
		Addr:              net.JoinHostPort(opts.bind, strconv.Itoa(opts.port)),
		Handler:           server.New(svc, hub, cfg, logger).WithPusher(presence).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("drawphone listening",
			zap.String("addr", srv.Addr),
			zap.String("broadcast", cfg.BroadcastDriver),
			zap.Bool("postgres", cfg.DatabaseURL != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	janitor.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg config.Config, logger *zap.Logger) (game.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, games are kept in memory")
		return game.NewMemoryStore(), nil
	}
	conn, err := db.Open(cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, logger); err != nil {
		return nil, err
	}
	return db.NewStore(conn), nil
}

// newGateway picks the broadcast driver. Websocket clients always read from
// the local hub; redis feeds it from every instance, pusher runs beside it and
// is also returned so the server can sign presence subscriptions.
func newGateway(ctx context.Context, cfg config.Config, hub *broadcast.Hub, logger *zap.Logger) (game.Gateway, *broadcast.PusherGateway, error) {
	switch cfg.BroadcastDriver {
	case config.DriverLocal:
		return hub, nil, nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		relay := broadcast.NewRedisRelay(client, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", zap.Error(err))
			}
		}()
		return broadcast.NewRedisGateway(client), nil, nil
	case config.DriverPusher:
		if cfg.PusherAppID == "" || cfg.PusherKey == "" || cfg.PusherSecret == "" {
			return nil, nil, errors.New("pusher driver needs PUSHER_APP_ID, PUSHER_KEY and PUSHER_SECRET")
		}
		presence := broadcast.NewPusherGateway(cfg.PusherAppID, cfg.PusherKey, cfg.PusherSecret, cfg.PusherCluster)
		return broadcast.Multi{hub, presence}, presence, nil
	default:
		return nil, nil, fmt.Errorf("unknown broadcast driver %q", cfg.BroadcastDriver)
	}
}
