package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/config"
	"github.com/quantumlife/lifeos/internal/spaces"
	"github.com/quantumlife/lifeos/internal/storage"
)

// =============================================================================
// audit
// =============================================================================

func (c *cli) auditStore() (*audit.Store, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return audit.NewStore(db.Conn()), nil
}

func auditCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.auditStore()
			if err != nil {
				return err
			}
			count, err := store.Count()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := store.VerifyChain(); err != nil {
				var chainErr *audit.ChainError
				if errors.As(err, &chainErr) {
					fmt.Fprintf(out, "❌ Audit chain broken at entry %d (%s)\n", chainErr.EntryNum, chainErr.EntryID)
				}
				return err
			}
			fmt.Fprintf(out, "✅ Audit chain valid (%d entries)\n", count)
			return nil
		},
	})

	var (
		limit  int
		action string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.auditStore()
			if err != nil {
				return err
			}
			entries, err := store.Query(audit.QueryOptions{Action: action, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%5d  %s  %-18s %-9s %s\n",
					e.Seq, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.Details)
			}
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	listCmd.Flags().StringVar(&action, "action", "", "filter by action, e.g. mood.recorded")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Count entries by action and actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.auditStore()
			if err != nil {
				return err
			}
			summary, err := store.GetSummary()
			if err != nil {
				return err
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(summary)
		},
	})

	return cmd
}

// =============================================================================
// config
// =============================================================================

func configCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default settings",
		Long: `Writes the defaults to ~/.lifeos/config.yaml (or the given path; .json
selects JSON). Tokens are never written: set TELEGRAM_BOT_TOKEN,
TODOIST_API_TOKEN, SPEECH_API_KEY and GOOGLE_CLIENT_SECRET in the environment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg := config.Default()
			if path == "" {
				path = filepath.Join(cfg.DataDir, "config.yaml")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Config written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration without secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			safe := c.cfg.WithoutSecrets()
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(&safe)
		},
	})

	return cmd
}

// =============================================================================
// google
// =============================================================================

func (c *cli) googleOAuth() (*spaces.OAuth, *storage.CredentialStore, error) {
	if !c.cfg.GoogleEnabled() {
		return nil, nil, errors.New("google client is not configured (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET)")
	}
	db, err := c.database()
	if err != nil {
		return nil, nil, err
	}
	creds := storage.NewCredentialStore(db)
	return spaces.NewOAuth(spaces.OAuthConfig{
		ClientID:     c.cfg.Google.ClientID,
		ClientSecret: c.cfg.Google.ClientSecret,
		RedirectURL:  c.cfg.Google.RedirectURL,
	}, creds), creds, nil
}

func googleCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Link Google Calendar and Gmail (read-only) for /schedule and /inbox",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authorize in the browser and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oauth, _, err := c.googleOAuth()
			if err != nil {
				return err
			}
			redirect, err := url.Parse(c.cfg.Google.RedirectURL)
			if err != nil || redirect.Host == "" {
				return fmt.Errorf("invalid google.redirect_url %q", c.cfg.Google.RedirectURL)
			}

			if _, err := oauth.RunFlow(cmd.Context(), redirect.Host, cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Google linked. Restart lifeos to enable /schedule and /inbox.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a Google token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, creds, err := c.googleOAuth()
			if err != nil {
				return err
			}
			record, err := creds.GetRecord(spaces.GoogleProvider)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if record == nil {
				fmt.Fprintln(out, "❌ Not linked. Run: lctl google login")
				return nil
			}
			fmt.Fprintf(out, "✅ Linked since %s\n", record.CreatedAt.Format("2006-01-02 15:04"))
			if record.ExpiresAt != nil {
				fmt.Fprintf(out, "   Access token expires %s (refreshed automatically)\n", record.ExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Delete the stored Google token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, creds, err := c.googleOAuth()
			if err != nil {
				return err
			}
			if !c.confirm(cmd, "Удалить токен Google?") {
				return nil
			}
			if err := creds.Delete(spaces.GoogleProvider); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Google token removed")
			return nil
		},
	})

	return cmd
}
