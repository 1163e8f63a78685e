package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/observability"
	"github.com/lazyvibe/websmith/internal/store"
	"github.com/lazyvibe/websmith/internal/ui"
	"github.com/lazyvibe/websmith/internal/ui/components/setup"
)

// runTUI starts the terminal interface, running the first-run wizard
// before it when needed. Logs go to the log file only.
func runTUI(ctx context.Context, opts *rootOptions) error {
	dir, cfg, err := opts.load()
	if err != nil {
		return err
	}
	observability.InitializeFileOnly(cfg.Logger)
	logger := observability.GetLogger()

	if !cfg.Initialized {
		done, err := runSetupWizard(ctx, dir, cfg, logger)
		if err != nil {
			return err
		}
		if !done {
			// Quit before finishing; nothing to start.
			return nil
		}
		if dir, cfg, err = opts.load(); err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
	}

	svc := newServices(dir, cfg, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Shutdown incomplete", zap.Error(err))
		}
	}()

	application := ui.New(ui.Deps{
		Store:      svc.store,
		Engine:     svc.engine,
		Reader:     svc.reader,
		Downloader: svc.downloader,
		Notifier:   svc.notifier,
		Config:     cfg,
		ConfigDir:  dir,
		Logger:     logger,
	})

	logger.Info("Starting websmith", zap.String("version", Version), zap.String("config_dir", dir))
	if _, err := tea.NewProgram(application, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}

// runSetupWizard reports whether the wizard was completed.
func runSetupWizard(ctx context.Context, dir string, cfg *app.Config, logger *zap.Logger) (bool, error) {
	s := store.NewJSONStore(dir, store.WithLogger(logger), store.WithLegacyPolicy(cfg.LegacyWhitelistPolicy))
	defer s.Close()

	final, err := tea.NewProgram(setup.New(dir, cfg, s), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return false, fmt.Errorf("setup wizard: %w", err)
	}
	m, ok := final.(setup.Model)
	return ok && m.IsComplete(), nil
}
