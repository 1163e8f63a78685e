package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/notify"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/source"
	"github.com/lazyvibe/websmith/internal/store"
)

// services is the object graph every command works against.
type services struct {
	configDir  string
	config     *app.Config
	logger     *zap.Logger
	store      *store.JSONStore
	reader     *source.Loader
	downloader *rules.Downloader
	notifier   *notify.Dispatcher
	engine     *runtime.DefaultEngine

	// quiet suppresses session-ended notifications for windows we close.
	quiet atomic.Bool
	// announced receives a value after each session-ended notification.
	announced chan struct{}
}

// engineOptions lets a caller add engine options, e.g. an end observer.
type engineOptions func(s *services) []runtime.EngineOption

func newServices(configDir string, cfg *app.Config, logger *zap.Logger, extra ...engineOptions) *services {
	s := &services{
		configDir: configDir,
		config:    cfg,
		logger:    logger,
		announced: make(chan struct{}, 1),
	}
	s.store = store.NewJSONStore(configDir,
		store.WithLogger(logger),
		store.WithLegacyPolicy(cfg.LegacyWhitelistPolicy),
	)
	s.reader = source.NewLoader(cfg.SourceConfig(), logger)
	s.downloader = rules.NewDownloader(configDir, s.reader, logger)
	s.notifier = notify.NewDispatcher(logger)

	opts := []runtime.EngineOption{
		runtime.WithLogger(logger),
		runtime.WithReader(s.reader),
	}
	for _, fn := range extra {
		opts = append(opts, fn(s)...)
	}
	registry := driver.NewRegistryWithConfig(cfg.DriverConfig(), logger)
	s.engine = runtime.NewEngine(registry, cfg.Driver, configDir, opts...)
	return s
}

// announceEnded makes the engine report windows closed from the browser
// side. Used by the blocking CLI commands; the TUI announces on its own.
func announceEnded(s *services) []runtime.EngineOption {
	return []runtime.EngineOption{runtime.WithOnEnded(s.sessionEnded)}
}

func (s *services) sessionEnded(sess runtime.Session) {
	defer func() {
		select {
		case s.announced <- struct{}{}:
		default:
		}
	}()
	if s.quiet.Load() {
		return
	}
	p := sess.Profile()
	s.notifier.Dispatch(context.Background(), s.config.Notifications, notify.Event{
		ProfileID:   p.ID,
		ProfileName: p.DisplayName(),
		Type:        notify.EventSessionEnded,
		Title:       "Window closed",
		Message:     fmt.Sprintf("%s closed after %d blocked navigations", p.DisplayName(), sess.Blocked()),
		Timestamp:   time.Now(),
	})
}

// Close stops every window and releases the store.
func (s *services) Close() error {
	s.quiet.Store(true)
	return errors.Join(s.engine.CloseAll(), s.store.Close())
}
