package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/channel"
	"github.com/marwanayman128/TaskFlow-sub001/internal/config"
	"github.com/marwanayman128/TaskFlow-sub001/internal/console"
	"github.com/marwanayman128/TaskFlow-sub001/internal/jobs"
	"github.com/marwanayman128/TaskFlow-sub001/internal/scheduler"
	"github.com/marwanayman128/TaskFlow-sub001/internal/session"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "console" {
		runConsole(os.Args[2:])
		return
	}
	if err := runDaemon(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd failed: %v\n", err)
		os.Exit(1)
	}
}

func runConsole(args []string) {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8090", "notifyd base URL")
	_ = fs.Parse(args)
	if err := console.Run(*baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "console failed: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(args []string) error {
	fs := flag.NewFlagSet("notifyd", flag.ExitOnError)
	flagDB := fs.String("db", "taskflow.db", "sqlite database path")
	flagAddr := fs.String("addr", ":8090", "trigger API listen address")
	_ = fs.Parse(args)

	cfg := config.Load(*flagDB, *flagAddr)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := storage.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return err
	}

	// The device transport is wired by the embedding deployment; with no
	// factory the session stays DISCONNECTED and WhatsApp delivery runs
	// through the hosted gateway.
	mgr := session.NewManager(nil, logger)
	defer mgr.Logout()

	gateway := channel.GatewayConfig{
		URL:      cfg.GatewayURL,
		Token:    cfg.GatewayToken,
		SenderID: cfg.GatewaySenderID,
	}
	runner := jobs.NewRunner(jobs.Deps{
		Logger: logger,
		Repo:   repo,
		Senders: map[string]channel.Sender{
			"whatsapp": channel.NewWhatsAppSender(mgr, gateway, logger),
			"telegram": channel.NewTelegramSender(cfg.TelegramBotToken, logger),
		},
		AppURL: cfg.AppURL,
	})

	engine := scheduler.NewEngine(logger)
	ticks := []struct {
		name  string
		every time.Duration
		run   func(ctx context.Context) error
	}{
		{"reminder-dispatch", cfg.DispatchInterval, func(ctx context.Context) error {
			_, err := runner.DispatchReminders(ctx)
			return err
		}},
		{"recurrence-expansion", cfg.ExpandInterval, func(ctx context.Context) error {
			_, err := runner.ExpandRecurrences(ctx)
			return err
		}},
		{"daily-digest", cfg.DigestInterval, func(ctx context.Context) error {
			_, err := runner.ComposeDigests(ctx)
			return err
		}},
	}
	for _, tick := range ticks {
		if tick.every <= 0 {
			continue
		}
		if err := engine.Add(scheduler.Job{Name: tick.name, Every: tick.every, Run: tick.run}); err != nil {
			return fmt.Errorf("register %s: %w", tick.name, err)
		}
	}
	engine.Start()
	defer engine.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: jobs.NewServer(runner, mgr, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifyd listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
