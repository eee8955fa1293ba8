// Package cli wires configuration, persistence, the session and the backend
// client together and exposes them as cobra commands. Without a subcommand
// the interactive TUI starts.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nissyi-gh/remind/internal/api"
	"github.com/nissyi-gh/remind/internal/collection"
	"github.com/nissyi-gh/remind/internal/config"
	"github.com/nissyi-gh/remind/internal/session"
	"github.com/nissyi-gh/remind/internal/store"
	"github.com/nissyi-gh/remind/internal/ui"
)

// Version is set at build time.
var Version = "dev"

// app holds what every command needs once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *slog.Logger
	logFile io.Closer
	store   *store.Store
	session *session.Session
	client  *api.Client

	copyText  func(string) error
	pasteText func() (string, error)
	now       func() time.Time
	runTUI    func(ui.Deps) error
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	defer a.close()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{
		copyText:  clipboard.WriteAll,
		pasteText: clipboard.ReadAll,
		now:       time.Now,
		runTUI:    ui.Run,
	}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "remind - a terminal client for the Task Reminder backend",
		Long: `remind manages your Task Reminder tasks and folders from the terminal.

Run it without arguments for the interactive interface, or use the
subcommands for scripting.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: a.runInteractive,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/remind/config.yaml)")
	pf.String("base-url", "", "backend base URL")
	pf.Duration("timeout", 0, "request timeout")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "log file (default <data dir>/remind.log)")
	pf.String("data-dir", "", "directory for the credential database")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr instead of the log file")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.tasksCmd(),
		a.foldersCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.promptCmd(),
	)
	return root, a
}

// setup loads configuration and opens the session store.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, onlyChanged(cmd))
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.setupLogger(cmd); err != nil {
		return err
	}

	st, err := store.Open("", cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	a.store = st

	sess, err := session.New(st, session.WithLogger(a.logger), session.WithClock(a.now))
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	a.session = sess

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Tokens:  sess,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) setupLogger(cmd *cobra.Command) error {
	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	if a.verbose {
		a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
		return nil
	}

	path := a.cfg.LogFile
	if path == "" {
		dir := a.cfg.DataDir
		if dir == "" {
			if dir, err = store.DataDir(); err != nil {
				return fmt.Errorf("determine data dir: %w", err)
			}
		}
		path = filepath.Join(dir, config.AppName+".log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	a.logger = slog.New(slog.NewTextHandler(f, opts))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Error("close credential store", "err", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) runInteractive(cmd *cobra.Command, _ []string) error {
	return a.runTUI(ui.Deps{
		Auth:      a.client,
		Tasks:     a.client.Tasks(),
		Folders:   a.client.Folders(),
		Session:   a.session,
		Config:    a.cfg,
		Logger:    a.logger,
		CopyText:  a.copyText,
		PasteText: a.pasteText,
		Now:       a.now,
	})
}

// requireLogin fails early when no usable token is stored.
func (a *app) requireLogin() error {
	if !a.session.Authenticated() {
		return fmt.Errorf("%w: run `remind login` first", session.ErrNotAuthenticated)
	}
	return nil
}

// syncOptions reports confirmations on out. Failures come back as errors.
func (a *app) syncOptions(out io.Writer) collection.Options {
	return collection.Options{
		Notifier: collection.NotifierFunc(func(n collection.Notification) {
			if n.Level == collection.LevelSuccess && n.Message != "" {
				fmt.Fprintln(out, n.Message)
			}
		}),
		Teardown: a.session.Teardown,
		Logger:   a.logger,
	}
}

// describe turns backend errors into something a shell user can act on.
func describe(err error) error {
	var verr *api.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("session expired or revoked, run `remind login`: %w", err)
	case errors.As(err, &verr):
		return errors.New(verr.Detail())
	}
	return err
}
