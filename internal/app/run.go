package app

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"chat-relay/internal/config"
	"chat-relay/internal/db"
	"chat-relay/internal/services"
	"chat-relay/internal/utils"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
)

// Run starts the service and blocks until it is shut down. It returns the process exit code.
func Run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		return 1
	}
	log := utils.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	var (
		store   services.Store
		dir     services.Directory
		closers []func() error
	)
	switch cfg.Store {
	case config.StoreMemory:
		mem := services.NewMemoryStore()
		store, dir = mem, mem
		log.Warn("using in-memory store; messages are lost on restart")
	default:
		pool, err := db.Connect(ctx, cfg.ConnString())
		if err != nil {
			log.Error("failed to connect to database", "err", err)
			return 1
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		if err := db.Migrate(ctx, pool); err != nil {
			log.Error("failed to migrate database", "err", err)
			pool.Close()
			return 1
		}
		pg := services.NewPgStore(pool)
		store, dir = pg, pg
	}

	if cfg.SeedFile != "" {
		seed, err := LoadSeed(ctx, cfg.SeedFile, dir)
		if err != nil {
			log.Error("failed to load seed", "err", err)
			return 1
		}
		log.Info("seed loaded", "users", len(seed.Users), "chats", len(seed.Chats))
	}

	var chats services.ChatReader
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, chat cache will fall back to the store", "addr", cfg.RedisAddr, "err", err)
		}
		cache := services.NewChatCache(client, store, cfg.ChatCacheTTL, log)
		chats = cache
		closers = append([]func() error{cache.Close}, closers...)
	}

	srv, err := New(cfg, store, chats, log)
	if err != nil {
		log.Error("failed to build server", "err", err)
		return 1
	}

	go func() {
		log.Info("listening", "port", cfg.Port, "store", cfg.Store)
		if err := srv.App.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", "err", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		// One operation so teardown keeps its order: stop accepting, drop
		// sockets, then release storage.
		"chat-relay": func(ctx context.Context) error {
			log.Info("gracefully shutting down")
			errs := []error{srv.App.ShutdownWithContext(ctx), srv.CloseRealtime()}
			for _, closeFn := range closers {
				errs = append(errs, closeFn())
			}
			return errors.Join(errs...)
		},
	})

	code := <-wait
	log.Info("server shutdown complete", "exit_code", code)
	return code
}
