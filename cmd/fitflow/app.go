package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/client"
	"github.com/fitflow/fitflow/internal/config"
	"github.com/fitflow/fitflow/internal/localstore"
	"github.com/fitflow/fitflow/internal/plans"
)

// app carries what every subcommand needs.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	log     *slog.Logger
	store   *localstore.Store
	catalog *plans.Catalog
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fitflow.yaml"
	}
	return filepath.Join(dir, "fitflow", "config.yaml")
}

func (a *app) setup(cmd *cobra.Command) error {
	level := charmlog.InfoLevel
	if a.verbose {
		level = charmlog.DebugLevel
	}
	// The mcp command speaks JSON-RPC on stdout, so logs always go to stderr.
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
	a.log = slog.New(handler)

	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Local.Catalog != "" {
		a.catalog, err = plans.Open(cfg.Local.Catalog)
	} else {
		a.catalog, err = plans.Default()
	}
	if err != nil {
		return fmt.Errorf("loading plan catalog: %w", err)
	}

	a.store, err = localstore.Open(cfg.Local.StateDir)
	if err != nil {
		return err
	}
	a.log.Debug("state opened", "dir", cfg.Local.StateDir, "command", cmd.Name())
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// session returns the signed-in user or a friendly error.
func (a *app) session() (*localstore.Session, error) {
	s, err := a.store.CurrentSession()
	if errors.Is(err, localstore.ErrNoSession) {
		return nil, errors.New("not signed in, run `fitflow login` first")
	}
	return s, err
}

func (a *app) historyClient(token string) *client.History {
	return client.NewHistory(a.cfg.Backend.HistoryURL, token, a.log)
}

func (a *app) authClient(token string) *client.Auth {
	return client.NewAuth(a.cfg.Backend.AuthURL, token)
}
