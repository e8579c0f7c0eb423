// lctl - command-line access to the Life OS journal.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/config"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/storage"
)

var version = "0.1.0"

// cli carries what every subcommand shares. The database is opened on
// first use; journal commands that need no audit trail never touch it.
type cli struct {
	configPath string
	memoryPath string
	yes        bool

	cfg *config.Config
	db  *storage.DB

	isTerminal func(r io.Reader) bool
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	if c.isTerminal == nil {
		c.isTerminal = stdinIsTerminal
	}

	rootCmd := &cobra.Command{
		Use:   "lctl",
		Short: "Life OS - the journal from your terminal",
		Long: `lctl reads and writes the same Markdown journal as the Life OS bot:
tasks, ideas, mood, habits, life-area scores and daily reviews.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ~/.lifeos/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&c.memoryPath, "memory", "", "journal directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&c.yes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(captureCmd(c))
	rootCmd.AddCommand(ideaCmd(c))
	rootCmd.AddCommand(tasksCmd(c))
	rootCmd.AddCommand(moodCmd(c))
	rootCmd.AddCommand(habitCmd(c))
	rootCmd.AddCommand(streakCmd(c))
	rootCmd.AddCommand(scoreCmd(c))
	rootCmd.AddCommand(reviewCmd(c))
	rootCmd.AddCommand(statsCmd(c))
	rootCmd.AddCommand(auditCmd(c))
	rootCmd.AddCommand(configCmd(c))
	rootCmd.AddCommand(googleCmd(c))

	return rootCmd
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.memoryPath != "" {
		cfg.MemoryPath = c.memoryPath
	}
	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))
	c.cfg = cfg
	return nil
}

func (c *cli) close() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

func (c *cli) ledger() *journal.Ledger {
	return journal.NewLedger(c.cfg.MemoryPath)
}

// database opens the shared SQLite file the daemon also uses
func (c *cli) database() (*storage.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := storage.Open(storage.Config{Path: c.cfg.DBPath()})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	c.db = db
	return db, nil
}

// recorder returns nil when auditing is off. A database that cannot be
// opened downgrades to no auditing rather than failing the write.
func (c *cli) recorder() *audit.Recorder {
	if !c.cfg.Features.EnableAudit {
		return nil
	}
	db, err := c.database()
	if err != nil {
		logging.Warn("Audit disabled: %v", err)
		return nil
	}
	return audit.NewRecorder(audit.NewStore(db.Conn()))
}

func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question on interactive input. Piped input and
// --yes accept without asking.
func (c *cli) confirm(cmd *cobra.Command, question string) bool {
	in := cmd.InOrStdin()
	if c.yes || !c.isTerminal(in) {
		return true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [Y/n] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes", "д", "да":
		return true
	}
	return false
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
