package driver

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/session"
)

// ChromedpDriver opens surfaces through chromedp.
type ChromedpDriver struct {
	cfg    Config
	logger *zap.Logger
}

// NewChromedpDriver creates a chromedp driver.
func NewChromedpDriver(cfg Config, logger *zap.Logger) *ChromedpDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpDriver{cfg: cfg, logger: logger.Named("chromedp")}
}

// Name returns the driver identifier.
func (d *ChromedpDriver) Name() model.DriverType {
	return model.DriverChromedp
}

// Open launches Chromium with document interception enabled.
func (d *ChromedpDriver) Open(ctx context.Context, sess *session.Session, opts OpenOptions) (Surface, error) {
	w, h := windowSize(sess.OrientationLock(), d.cfg)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.WindowSize(w, h),
	)
	if d.cfg.BrowserPath != "" {
		path, err := ResolveBrowser(d.cfg.BrowserPath)
		if err != nil {
			return nil, err
		}
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	for _, f := range launchFlags(sess, d.cfg) {
		var value any = true
		if f.Value != "" {
			value = f.Value
		}
		allocOpts = append(allocOpts, chromedp.Flag(f.Name, value))
	}

	dataDir := opts.UserDataDir
	var tempDir string
	if dataDir == "" {
		dir, err := os.MkdirTemp("", "websmith-ephemeral-*")
		if err != nil {
			return nil, fmt.Errorf("create ephemeral profile: %w", err)
		}
		tempDir, dataDir = dir, dir
	} else if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user data dir: %w", err)
	}
	allocOpts = append(allocOpts, chromedp.UserDataDir(dataDir))

	// The surface outlives the caller's context.
	base := context.WithoutCancel(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(base, allocOpts...)
	sugar := d.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &chromedpSurface{
		sess:        sess,
		opts:        opts,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		tempDir:     tempDir,
		width:       w,
		height:      h,
		logger:      d.logger.With(zap.String("profile", sess.Profile().ID)),
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	enable := fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
		URLPattern:   "*",
		ResourceType: network.ResourceTypeDocument,
		RequestStage: fetch.RequestStageRequest,
	}})
	if err := chromedp.Run(tabCtx, enable); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start chromium: %w", err)
	}
	s.logger.Info("Surface opened", zap.Bool("headless", d.cfg.Headless), zap.Bool("ephemeral", tempDir != ""))
	return s, nil
}

type chromedpSurface struct {
	sess        *session.Session
	opts        OpenOptions
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	tempDir     string
	width       int
	height      int
	logger      *zap.Logger
	closeOnce   sync.Once
}

// onEvent runs on the chromedp event loop and must not block; commands are
// issued from separate goroutines.
func (s *chromedpSurface) onEvent(ev any) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		url := e.Request.URL
		decision := s.sess.Decide(url)
		s.opts.report(url, decision)
		var action chromedp.Action = fetch.ContinueRequest(e.RequestID)
		if decision == rules.Deny {
			s.logger.Debug("Navigation blocked", zap.String("url", url))
			action = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient)
		}
		go s.run(action)
	case *page.EventLoadEventFired:
		if script := s.sess.Script(); script != "" {
			go s.run(chromedp.Evaluate(script, nil))
		}
	}
}

func (s *chromedpSurface) run(actions ...chromedp.Action) {
	if err := chromedp.Run(s.ctx, actions...); err != nil && s.ctx.Err() == nil {
		s.logger.Warn("Browser command failed", zap.Error(err))
	}
}

func (s *chromedpSurface) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

func (s *chromedpSurface) Lock(_ context.Context, lock session.OrientationLock) error {
	w, h := orient(lock, s.width, s.height)
	orientation := emulation.OrientationTypePortraitPrimary
	if lock == session.LockLandscape {
		orientation = emulation.OrientationTypeLandscapePrimary
	}
	return chromedp.Run(s.ctx, emulation.SetDeviceMetricsOverride(int64(w), int64(h), 0, false).
		WithScreenOrientation(&emulation.ScreenOrientation{
			Type:  orientation,
			Angle: int64(orientationAngle(lock)),
		}))
}

func (s *chromedpSurface) Unlock(context.Context) error {
	if s.ctx.Err() != nil {
		return nil
	}
	return chromedp.Run(s.ctx, emulation.ClearDeviceMetricsOverride())
}

func (s *chromedpSurface) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *chromedpSurface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.ctx.Err() == nil {
			cctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
			err = chromedp.Cancel(cctx)
			cancel()
		}
		s.cancel()
		s.allocCancel()
		if s.tempDir != "" {
			_ = os.RemoveAll(s.tempDir)
		}
		s.logger.Info("Surface closed")
	})
	return err
}
