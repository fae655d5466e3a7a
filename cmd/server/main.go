package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thicket/internal/config"
	"thicket/internal/db"
	"thicket/internal/logger"
	"thicket/internal/router"
	"thicket/internal/services"
	"thicket/internal/storage/postgres"
	"thicket/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad("")

	log := logger.Setup(cfg.Env)
	slog.SetDefault(log)
	if cfg.Env == logger.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database unavailable", slog.Any("err", err))
		os.Exit(1)
	}
	store := postgres.New(gdb)
	defer store.Close()

	cache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	ranking := services.NewRankingService(store, log)
	go ranking.Run(ctx)

	svc := services.New(
		store,
		services.NewPolicy(cfg.Content.MaxLength, cfg.Content.Prohibited),
		services.Options{
			PageSize:       cfg.Listing.PageSize,
			TrendingSample: cfg.Listing.TrendingSample,
			TrendingTTL:    cfg.Listing.TrendingTTL,
		},
		cache,
		ranking,
	)
	go svc.RunCleanup(logger.Into(ctx, log), cfg.Cleanup.Age, cfg.Cleanup.Interval)
	go ranking.RunRefresh(ctx, cfg.Listing.TrendingSample, cfg.Listing.TrendingRefresh)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(svc, cfg.SessionSecret, cfg.Env == logger.EnvProd, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("thicket server starting", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("err", err))
	}
	<-ranking.Done()
}

// openCache prefers Redis when configured and falls back to an in-process LRU.
func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (utils.Cache, func()) {
	if cfg.RedisURL != "" {
		rc, err := utils.NewRedisCache(ctx, cfg.RedisURL, "thicket:")
		if err == nil {
			log.Info("listing cache: redis")
			return rc, func() { _ = rc.Close() }
		}
		log.Warn("redis unavailable, using local cache", slog.Any("err", err))
	}
	lc, err := utils.NewLocalCache(500)
	if err != nil {
		log.Error("local cache", slog.Any("err", err))
		os.Exit(1)
	}
	return lc, func() {}
}
