// Life OS daemon: the Telegram bot, the status API and the evening reminder.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/config"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/scheduler"
	"github.com/quantumlife/lifeos/internal/telegram"
)

var (
	configPath string
	memoryPath string
	port       int
	debug      bool

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "lifeos",
		Short:        "Life OS - personal journal bot for Telegram",
		Version:      version,
		SilenceUsage: true,
		RunE:         runDaemon,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.lifeos/config.yaml)")
	rootCmd.Flags().StringVar(&memoryPath, "memory", "", "journal directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "status API port (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if memoryPath != "" {
		cfg.MemoryPath = memoryPath
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if debug {
		cfg.Features.DebugMode = true
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) (func(), error) {
	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Features.DebugMode {
		level = logging.DEBUG
	}
	logging.SetLevel(level)

	if cfg.Log.File == "" {
		return func() {}, nil
	}
	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logging.Info("Starting Life OS %s, journal at %s", version, cfg.MemoryPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := buildServices(ctx, cfg, db)
	if err != nil {
		return err
	}

	botAPI, err := telegram.Connect(cfg.Telegram.Token, cfg.Features.DebugMode)
	if err != nil {
		return err
	}
	transport := telegram.New(botAPI, svc.dispatcher, telegram.Config{
		AdminUserID: cfg.Telegram.AdminUserID,
		NotifyStart: cfg.Features.NotifyAdminStart,
		PollTimeout: cfg.Telegram.PollTimeout,
	})

	sched := scheduler.New(scheduler.Config{})
	if cfg.Reminders.Enabled && cfg.Telegram.AdminUserID != 0 {
		reminder := &scheduler.ReviewReminder{
			ChatID:   cfg.Telegram.AdminUserID,
			Notifier: transport,
			Stats:    journal.NewStats(svc.ledger),
			Audit:    svc.recorder,
		}
		if err := sched.Register(reminder.Job(cfg.Reminders.ReviewAt)); err != nil {
			return fmt.Errorf("register reminder: %w", err)
		}
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	if svc.server != nil {
		go func() {
			if err := svc.server.Start(); err != nil {
				logging.Error("API server stopped: %v", err)
			}
		}()
	}

	if err := svc.recorder.RecordSystem(audit.ActionBotStarted, audit.ActorBot, map[string]interface{}{
		"version": version,
	}); err != nil {
		logging.Warn("Audit append failed: %v", err)
	}

	err = transport.Run(ctx)

	logging.Info("Shutting down...")
	if svc.server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := svc.server.Stop(shutdownCtx); err != nil {
			logging.Warn("API server shutdown: %v", err)
		}
	}
	return err
}
