package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dogeow-realtime/config"
	configRedis "dogeow-realtime/config/redis"
	"dogeow-realtime/internal/cache"
	"dogeow-realtime/internal/httpserver"
	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/realtime/connection"
	pusherDelivery "dogeow-realtime/internal/realtime/delivery/pusher"
	redisDelivery "dogeow-realtime/internal/realtime/delivery/redis"
	"dogeow-realtime/internal/realtime/lifecycle"
	"dogeow-realtime/internal/realtime/synchronizer"
	"dogeow-realtime/internal/session"
	"dogeow-realtime/internal/unread"
	"dogeow-realtime/pkg/log"
	pkgPusher "dogeow-realtime/pkg/pusher"
	pkgRedis "dogeow-realtime/pkg/redis"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// listenCmd follows the session file and keeps the user's channels subscribed
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Follow the session file and keep channels subscribed",
	Long: `Listen subscribes to the signed-in user's notification channel and the
knowledge-index channel, and refreshes the cached unread count on every
notification. Logging in, logging out or rotating the token in the
session file is picked up without a restart.`,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateListen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := session.AcquireLock(cfg.Session.Path)
	if errors.Is(err, session.ErrLocked) {
		return fmt.Errorf("another listener is running for %s", cfg.Session.Path)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf(ctx, "Failed to release session lock: %v", err)
		}
	}()

	// Session - read side of the auth store
	sessions := session.NewStore()
	source := session.NewFileSource(cfg.Session.Path, sessions, logger)
	if err := source.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	// Redis (optional)
	var redisClient pkgRedis.IRedis
	if cfg.Redis.Enabled() {
		redisClient, err = configRedis.Connect(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Infof(ctx, "Redis client initialized")
	}

	// Query cache
	queryCache := cache.New(cache.Config{TTL: cfg.Cache.TTL}, newCacheStore(cfg, redisClient), logger)
	unread.Register(queryCache, unread.New(unread.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, sessions.Token, logger))

	// Realtime
	syncer := synchronizer.New(logger, queryCache)
	dialer := newDialer(cfg, redisClient, queryCache, logger)
	manager := connection.New(dialer, logger)
	binder := lifecycle.New(logger, manager, lifecycle.DefaultBindings(syncer))

	updates, cancelWatch := sessions.Watch()
	defer cancelWatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return source.Run(gctx) })
	g.Go(func() error { return binder.Run(gctx, updates) })

	if cfg.HTTPServer.Port > 0 {
		srv, err := httpserver.New(logger, httpserver.Config{
			Port:         cfg.HTTPServer.Port,
			Environment:  cfg.Environment.Name,
			Binder:       binder,
			Manager:      manager,
			Synchronizer: syncer,
			Cache:        queryCache,
			Redis:        redisClient,
		})
		if err != nil {
			return fmt.Errorf("create http server: %w", err)
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	logger.Infof(ctx, "Listening for %s broadcasts", cfg.Broadcast.Transport)
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down connection: %v", err)
	}
	logger.Info(ctx, "Listener stopped")

	return runErr
}

func newCacheStore(cfg *config.Config, redisClient pkgRedis.IRedis) cache.Store {
	if cfg.Cache.Store == config.CacheStoreRedis {
		return cache.NewRedisStore(redisClient, cfg.Cache.RedisPrefix, cfg.Cache.TTL)
	}
	return cache.NewMemoryStore()
}

// newDialer picks the broadcast transport. Events missed while the pusher
// transport was reconnecting are covered by refetching the unread count.
func newDialer(cfg *config.Config, redisClient pkgRedis.IRedis, inv realtime.Invalidator, logger log.Logger) realtime.Dialer {
	if cfg.Broadcast.Transport == config.TransportRedis {
		return redisDelivery.NewDialer(redisClient, cfg.Broadcast.RedisPrefix, logger)
	}
	return pusherDelivery.New(pusherDelivery.Config{
		URL:             pkgPusher.AppURL(cfg.Reverb.Secure(), cfg.Reverb.Host, cfg.Reverb.Port, cfg.Reverb.AppKey),
		AuthEndpoint:    cfg.AuthEndpoint(),
		ActivityTimeout: cfg.Reverb.ActivityTimeout,
		InitialBackoff:  cfg.Reverb.InitialBackoff,
		MaxBackoff:      cfg.Reverb.MaxBackoff,
		OnReconnected: func(ctx context.Context) {
			if err := inv.Invalidate(ctx, realtime.CacheKeyUnread); err != nil {
				logger.Warnf(ctx, "Failed to refresh unread count after reconnect: %v", err)
			}
		},
	}, logger)
}
