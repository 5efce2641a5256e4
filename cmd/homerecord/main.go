package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabortao/HomeRecord/internal/config"
	"github.com/tabortao/HomeRecord/internal/database"
	"github.com/tabortao/HomeRecord/internal/handler"
	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/jobs"
	"github.com/tabortao/HomeRecord/internal/logging"
	"github.com/tabortao/HomeRecord/internal/server"
	"github.com/tabortao/HomeRecord/internal/store"
)

func main() {
	if err := run(); err != nil {
		// logging may not be set up yet
		os.Stderr.WriteString("homerecord: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel)
	loc := cfg.Location()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userStore := store.NewUserStore(db)
	honorStore := store.NewHonorStore(db)

	catalog, err := honor.LoadCatalog(ctx, honorStore, logger.With("component", "honor"))
	if err != nil {
		return err
	}
	engine := honor.NewEngine(catalog, userStore, store.NewTaskStore(db), store.NewOperationLogStore(db), honorStore,
		honor.Config{Location: loc}, logger)

	srv := server.New(db, engine, cfg.CheckRateLimit, logger)
	go cleanupLoop(ctx, srv)

	var sweeper *jobs.Sweeper
	if cfg.SweepSchedule != "" {
		hub := srv.Hub()
		sweeper = jobs.NewSweeper(userStore, engine, func(res *honor.Result) {
			handler.AnnounceGrants(hub, res)
		}, loc, logger.With("component", "sweep"))
		if err := sweeper.Start(ctx, cfg.SweepSchedule); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HomeRecord running", "addr", "http://localhost:"+cfg.Port, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if sweeper != nil {
		sweeper.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func cleanupLoop(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RateLimiter().Cleanup()
		}
	}
}
