package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/command"
	"github.com/mezhov/kingdoms/internal/config"
	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/netsync"
	"github.com/mezhov/kingdoms/internal/scheduler"
	"github.com/mezhov/kingdoms/internal/store"
	"github.com/mezhov/kingdoms/internal/war"
)

const ConfigPath = "config/kingdoms.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("KINGDOMS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	log := slog.Default()

	log.Info("kingdoms server starting",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"tick_millis", cfg.TickMillis,
		"log_level", cfg.LogLevel)

	database, err := store.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	log.Info("database connected")

	if err := store.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations applied")

	repo := store.NewRealmRepository(database.Pool())

	// Registry and engine publish into the bus; the scheduler and the hub
	// consume from it. Both bus sides and the hub/engine pair reference
	// each other, so wiring finishes after construction.
	var bus event.Bus
	claimSvc := claims.NewInMemory()
	registry := kingdom.NewRegistry(claimSvc, &bus, log)
	hub := netsync.NewHub(registry, nil, log)
	engine := war.NewEngine(cfg.War, registry, claimSvc, hub, &bus, log)
	hub.SetEngine(engine)

	restoreState(ctx, repo, registry, engine, log)

	persist := func(ctx context.Context) error {
		return repo.Save(ctx, store.RealmState{
			Registry: registry.Snapshot(),
			Wars:     engine.Snapshot(),
		})
	}

	sched := scheduler.New(scheduler.Config{
		TickDuration:        time.Duration(cfg.TickMillis) * time.Millisecond,
		AutosaveTicks:       cfg.AutosaveTicks,
		HUDIntervalTicks:    cfg.HUDIntervalTicks,
		BorderDebounceTicks: cfg.BorderDebounceTicks,
	}, registry, engine, hub, persist, log)
	bus.Add(sched, hub)

	dispatcher := command.NewDispatcher(registry, engine, hub, log)
	dispatcher.IsAdmin = adminChecker(cfg.Admins, log)

	server := netsync.NewServer(hub, dispatcher, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", server.Handler())
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sched.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info("observer endpoint listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("observer endpoint: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// restoreState loads the saved realm or starts empty. Decode failures are
// not fatal: the realm comes up blank rather than refusing to start.
func restoreState(ctx context.Context, repo *store.RealmRepository, registry *kingdom.Registry, engine *war.Engine, log *slog.Logger) {
	st, err := repo.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNoState):
		log.Info("no saved realm state, starting empty")
	case err != nil:
		log.Error("realm state unreadable, starting empty", "error", err)
	default:
		registry.Restore(st.Registry)
		engine.Restore(st.Wars)
		log.Info("realm state restored", "kingdoms", len(registry.All()), "wars", engine.Count())
	}
	registry.RefreshClaims()
}

// adminChecker builds the privilege predicate from configured UUIDs.
func adminChecker(ids []string, log *slog.Logger) func(uuid.UUID) bool {
	admins := make(map[uuid.UUID]struct{}, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("ignoring malformed admin id", "value", raw)
			continue
		}
		admins[id] = struct{}{}
	}
	return func(p uuid.UUID) bool {
		_, ok := admins[p]
		return ok
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
