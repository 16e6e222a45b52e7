package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Tiliavir/trivial-pay-tracker/internal/config"
	"github.com/Tiliavir/trivial-pay-tracker/internal/ledger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote/mysql"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote/sheets"
	"github.com/Tiliavir/trivial-pay-tracker/internal/storage"
)

// session is everything a command needs: a loaded ledger and the resources
// behind it.
type session struct {
	cfg     config.Config
	repo    *ledger.Repository
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openSession loads config, opens the local slot, starts the remote client
// and loads the ledger. The remote gets remote.init_timeout to become ready;
// after that the ledger falls back to local storage.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.ResolveSecrets()

	base, err := storage.BaseDir()
	if err != nil {
		return nil, failure(err)
	}
	return openSessionAt(ctx, cfg, base)
}

func openSessionAt(ctx context.Context, cfg config.Config, base string) (*session, error) {
	s := &session{cfg: cfg}

	slot, err := openSlot(cfg.Local, base)
	if err != nil {
		return nil, failure(err)
	}
	s.closers = append(s.closers, slot)

	store := openStore(ctx, cfg)
	if c, ok := store.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	s.repo = ledger.New(store, slot, logger.Logger)
	if _, err := s.repo.Load(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func openSlot(cfg config.LocalConfig, base string) (storage.Slot, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return storage.OpenSQLiteSlot(filepath.Join(base, "tpt.db"), cfg.Slot)
	default:
		return storage.NewFileSlot(base, cfg.Slot), nil
	}
}

// openStore returns the configured remote. Connection happens in the
// background; a failed or slow connect leaves the store not ready.
func openStore(ctx context.Context, cfg config.Config) remote.Store {
	var connect remote.ConnectFunc
	switch cfg.Remote.Kind {
	case config.RemoteSheets:
		connect = func(ctx context.Context) (remote.Store, error) {
			c, err := sheets.Connect(ctx, sheets.Config{
				SpreadsheetID:   cfg.Sheets.SpreadsheetID,
				SheetName:       cfg.Sheets.SheetName,
				CredentialsFile: cfg.Sheets.CredentialsFile,
				APIKey:          cfg.Sheets.APIKey,
				Logger:          logger.Logger,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	case config.RemoteMySQL:
		connect = func(ctx context.Context) (remote.Store, error) {
			c, err := mysql.Connect(ctx, cfg.MySQL.DSN, mysql.Options{Logger: logger.Logger})
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	default:
		logger.Debug("no remote configured, running offline")
		return remote.Offline{}
	}

	d := remote.NewDeferred(connect)
	d.Start(ctx)
	if !d.Wait(ctx, cfg.InitTimeout()) {
		if err := d.Err(); err != nil {
			logger.Warn("remote unavailable", "kind", cfg.Remote.Kind, "err", err)
		} else {
			logger.Warn("remote not ready in time", "kind", cfg.Remote.Kind, "timeout", cfg.InitTimeout())
		}
	}
	return d
}

// sourceNote describes where the listed data came from when it is not the remote.
func sourceNote(s *session) string {
	switch {
	case s.cfg.Remote.Kind == config.RemoteNone:
		return ""
	case s.repo.Source() == ledger.SourceLocal:
		return fmt.Sprintf("(remote %s unavailable or empty; showing local copy)", s.cfg.Remote.Kind)
	}
	return ""
}
