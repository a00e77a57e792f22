package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/internal/logger"
	"github.com/MrEthical07/authsession/kv"
)

type rootOptions struct {
	configPath string
	baseURL    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "authsession",
		Short: "Sign in to the parish API and inspect the session",
		Long: `authsession signs in against the parish administration API and keeps the
session between invocations. Expired access tokens are renewed transparently.

Configuration is read from ./authsession.yaml or the user config directory,
then from AUTHSESSION_* environment variables, then from flags.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default authsession.yaml)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newCanCmd(opts),
		newGetCmd(opts),
		newMenuCmd(opts),
	)
	return cmd
}

// session bundles a booted client with the resources the command must
// release.
type session struct {
	client *authsession.Client
	logger *zap.Logger
	store  *kv.SQLite
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("close client", zap.Error(err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close session store", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// openSession builds a client from configuration. The SQLite backend doubles
// as the tab store so the access token survives between invocations.
func openSession(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, err := loadConfig(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	b := authsession.New().
		WithConfig(cfg).
		WithLogger(log).
		WithAuditSink(authsession.NewZapSink(log)).
		WithRedirect(func(_ context.Context, reason error) {
			fmt.Fprintf(os.Stderr, "session ended (%v); run `authsession login`\n", reason)
		})

	s := &session{logger: log}
	if cfg.Storage.Backend == authsession.StorageSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o700); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
		s.store, err = kv.OpenSQLite(ctx, cfg.Storage.SQLitePath, cfg.Storage.Prefix)
		if err != nil {
			return nil, err
		}
		b.WithSharedStore(s.store).WithTabStore(s.store)
	}

	s.client, err = b.Build()
	if err != nil {
		if s.store != nil {
			_ = s.store.Close()
		}
		return nil, err
	}
	return s, nil
}

// bootSession opens the session and runs Boot. A hydrate failure that kept
// the cached user is only logged.
func bootSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := s.client.Boot(ctx); err != nil && !s.client.IsAuthenticated() {
		s.logger.Debug("boot", zap.Error(err))
	} else if err != nil {
		s.logger.Warn("could not refresh user, using cached copy", zap.Error(err))
	}
	return s, nil
}
