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

	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/storage"
	"github.com/conorfennell/flashdeck/internal/store"
	appsync "github.com/conorfennell/flashdeck/internal/sync"
	"github.com/conorfennell/flashdeck/internal/web"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if path := config.ConfigFileUsed(flags); path != "" {
		slog.Info("loaded config file", "path", path)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	if path, _ := flags.GetString("add-source"); path != "" {
		sourceType := appsync.DetectType(path)
		if _, err := db.InsertSource(path, sourceType); err != nil {
			slog.Error("failed to add source", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("source added", "path", path, "type", sourceType)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Load(db, slog.Default(), store.Events{})
	if err != nil {
		slog.Error("failed to load card store", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(st, db, cfg.FeedbackDelay, cfg.ReposDir)
	st.SetEvents(server.Events())

	if cfg.SyncOnStart {
		appsync.Run(ctx, db, st, cfg.ReposDir)
	}

	go trackStudyTime(ctx, st, cfg.StudyTick)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("flashdeck ready", "addr", "http://"+cfg.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shut down cleanly")
}

// trackStudyTime accumulates wall-clock study minutes into the store for
// as long as the app is running. The ticker dies with the context, so no
// stray timer mutates state after shutdown begins.
func trackStudyTime(ctx context.Context, st *store.Store, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			minutes := int(now.Sub(last).Minutes())
			if minutes > 0 {
				st.TickStudyTime(minutes)
				last = last.Add(time.Duration(minutes) * time.Minute)
			}
		}
	}
}
