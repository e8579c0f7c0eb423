package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/quantumlife/lifeos/internal/api"
	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/bot"
	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/config"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/session"
	"github.com/quantumlife/lifeos/internal/spaces"
	"github.com/quantumlife/lifeos/internal/spaces/calendar"
	"github.com/quantumlife/lifeos/internal/spaces/gmail"
	"github.com/quantumlife/lifeos/internal/speech"
	"github.com/quantumlife/lifeos/internal/storage"
	"github.com/quantumlife/lifeos/internal/todoist"
)

// services holds everything the daemon runs, minus the Telegram connection
type services struct {
	db       *storage.DB
	ledger   *journal.Ledger
	sessions *session.Store
	audit    *audit.Store
	recorder *audit.Recorder

	dispatcher *bot.Dispatcher
	server     *api.Server
}

func openDB(cfg *config.Config) (*storage.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.Open(storage.Config{Path: cfg.DBPath()})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// buildServices wires the journal, collaborators and dispatcher.
// Optional collaborators that are not configured stay nil.
func buildServices(ctx context.Context, cfg *config.Config, db *storage.DB) (*services, error) {
	s := &services{
		db:       db,
		ledger:   journal.NewLedger(cfg.MemoryPath),
		sessions: session.NewStore(),
	}

	if cfg.Features.EnableAudit {
		s.audit = audit.NewStore(db.Conn())
		s.recorder = audit.NewRecorder(s.audit)
	}

	deps := bot.Deps{
		Ledger:       s.ledger,
		Sessions:     s.sessions,
		Audit:        s.recorder,
		QuickCapture: cfg.Features.QuickCapture,
	}

	var routerOpts []capture.RouterOption
	if cfg.TodoistEnabled() {
		tasks := todoist.NewClient(cfg.Todoist.BaseURL, cfg.Todoist.APIToken)
		routerOpts = append(routerOpts, capture.WithMirror(tasks))
		deps.Tasks = tasks
		deps.Links = storage.NewTaskLinkStore(db)
		logging.Info("Todoist mirror enabled")
	} else {
		logging.Info("Todoist not configured, tasks stay in the journal only")
	}
	deps.Router = capture.NewRouter(s.ledger, routerOpts...)

	if cfg.SpeechEnabled() {
		deps.Transcriber = speech.NewClient(speech.Config{
			URL:      cfg.Speech.URL,
			APIKey:   cfg.Speech.APIKey,
			Model:    cfg.Speech.Model,
			Language: cfg.Speech.Language,
		})
	} else {
		logging.Warn("Speech backend not configured, voice messages will be declined")
	}

	if err := wireGoogle(ctx, cfg, db, &deps); err != nil {
		return nil, err
	}

	s.dispatcher = bot.NewDispatcher(deps)

	if cfg.Features.EnableAPI {
		s.server = api.New(api.Config{
			Host:     cfg.Server.Host,
			Port:     cfg.Server.Port,
			Ledger:   s.ledger,
			Sessions: s.sessions,
			Audit:    s.audit,
		})
	}
	return s, nil
}

func googleOAuth(cfg *config.Config, db *storage.DB) *spaces.OAuth {
	return spaces.NewOAuth(spaces.OAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}, storage.NewCredentialStore(db))
}

// wireGoogle attaches calendar and gmail when a token was stored by
// `lctl google login`. A missing token only disables /schedule and /inbox.
func wireGoogle(ctx context.Context, cfg *config.Config, db *storage.DB, deps *bot.Deps) error {
	if !cfg.GoogleEnabled() {
		return nil
	}

	httpClient, err := googleOAuth(cfg, db).HTTPClient(ctx)
	if errors.Is(err, core.ErrNotConfigured) {
		logging.Warn("Google not authorized, run `lctl google login` to enable /schedule and /inbox")
		return nil
	}
	if err != nil {
		return fmt.Errorf("google credentials: %w", err)
	}

	cal, err := calendar.NewClient(ctx, httpClient)
	if err != nil {
		return fmt.Errorf("calendar client: %w", err)
	}
	mail, err := gmail.NewClient(ctx, httpClient)
	if err != nil {
		return fmt.Errorf("gmail client: %w", err)
	}
	deps.Agenda = cal
	deps.Inbox = mail
	logging.Info("Google calendar and gmail connected")
	return nil
}
