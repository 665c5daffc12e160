package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/http/api"
	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/intake"
	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/app"
	"github.com/sendou-ink/sendou.ink-sub007/internal/config"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/rating"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	cal, err := cfg.Calendar()
	if err != nil {
		os.Stderr.WriteString("bad season calendar: " + err.Error() + "\n")
		return
	}
	tiers, err := cfg.TierList()
	if err != nil {
		os.Stderr.WriteString("bad tier table: " + err.Error() + "\n")
		return
	}
	fn, err := rating.ByName(cfg.RatingAlgorithm)
	if err != nil {
		os.Stderr.WriteString("bad rating algorithm: " + err.Error() + "\n")
		return
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
		return
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error(ctx, "store close failed", logger.Error(cerr))
		}
	}()

	engine := app.New(st, cal,
		app.WithLogger(log.Named("engine")),
		app.WithRatingFunc(fn),
		app.WithTierList(tiers),
		app.WithMinMatches(cfg.MinMatches),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)

	feed := intake.New(engine,
		intake.WithQueueSize(cfg.IntakeQueueSize),
		intake.WithWorkerCount(cfg.IntakeWorkerCount),
		intake.WithSeenCacheSize(cfg.SeenCacheSize),
	)
	feed.Start(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(engine, feed).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("algorithm", fn.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := feed.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "intake shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "stopped")
}
