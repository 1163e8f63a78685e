package driver

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/session"
)

// RodDriver opens surfaces through go-rod.
type RodDriver struct {
	cfg    Config
	logger *zap.Logger
}

// NewRodDriver creates a rod driver.
func NewRodDriver(cfg Config, logger *zap.Logger) *RodDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodDriver{cfg: cfg, logger: logger.Named("rod")}
}

// Name returns the driver identifier.
func (d *RodDriver) Name() model.DriverType {
	return model.DriverRod
}

// Open launches Chromium, connects and opens one page with document
// requests hijacked. Without cookies the page lives in an incognito context.
func (d *RodDriver) Open(ctx context.Context, sess *session.Session, opts OpenOptions) (Surface, error) {
	w, h := windowSize(sess.OrientationLock(), d.cfg)
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))

	l := launcher.New().Context(base).Headless(d.cfg.Headless).
		Set("window-size", strconv.Itoa(w)+","+strconv.Itoa(h))
	if d.cfg.BrowserPath != "" {
		path, err := ResolveBrowser(d.cfg.BrowserPath)
		if err != nil {
			cancel()
			return nil, err
		}
		l = l.Bin(path)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	for _, f := range launchFlags(sess, d.cfg) {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}

	s := &rodSurface{
		sess:      sess,
		opts:      opts,
		launcher:  l,
		cancel:    cancel,
		width:     w,
		height:    h,
		ephemeral: opts.UserDataDir == "",
		done:      make(chan struct{}),
		logger:    d.logger.With(zap.String("profile", sess.Profile().ID)),
	}

	controlURL, err := l.Launch()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	s.launched = true
	s.browser = rod.New().Context(base).ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect chromium: %w", err)
	}

	target := s.browser
	if !sess.CookiesEnabled() {
		if target, err = s.browser.Incognito(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("incognito context: %w", err)
		}
	}
	if s.page, err = target.Page(proto.TargetCreateTarget{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	s.router = s.page.HijackRequests()
	if err := s.router.Add("*", proto.NetworkResourceTypeDocument, s.gate); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("hijack documents: %w", err)
	}
	go s.router.Run()

	wait := s.page.EachEvent(
		func(*proto.PageLoadEventFired) { go s.inject() },
		func(e *proto.TargetTargetDestroyed) bool { return e.TargetID == s.page.TargetID },
	)
	go func() {
		wait()
		close(s.done)
	}()

	s.logger.Info("Surface opened", zap.Bool("headless", d.cfg.Headless), zap.Bool("incognito", !sess.CookiesEnabled()))
	return s, nil
}

type rodSurface struct {
	sess      *session.Session
	opts      OpenOptions
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	cancel    context.CancelFunc
	width     int
	height    int
	launched  bool
	ephemeral bool
	done      chan struct{}
	logger    *zap.Logger
	closeOnce sync.Once
}

func (s *rodSurface) gate(h *rod.Hijack) {
	url := h.Request.URL().String()
	decision := s.sess.Decide(url)
	s.opts.report(url, decision)
	if decision == rules.Deny {
		s.logger.Debug("Navigation blocked", zap.String("url", url))
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	h.ContinueRequest(&proto.FetchContinueRequest{})
}

// inject evaluates the script as a plain expression; rod's Eval would wrap
// it in a function.
func (s *rodSurface) inject() {
	script := s.sess.Script()
	if script == "" {
		return
	}
	if _, err := (proto.RuntimeEvaluate{Expression: script}).Call(s.page); err != nil {
		s.logger.Warn("Script injection failed", zap.Error(err))
	}
}

func (s *rodSurface) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Navigate(url)
}

func (s *rodSurface) Lock(_ context.Context, lock session.OrientationLock) error {
	w, h := orient(lock, s.width, s.height)
	orientation := proto.EmulationScreenOrientationTypePortraitPrimary
	if lock == session.LockLandscape {
		orientation = proto.EmulationScreenOrientationTypeLandscapePrimary
	}
	return proto.EmulationSetDeviceMetricsOverride{
		Width:  w,
		Height: h,
		ScreenOrientation: &proto.EmulationScreenOrientation{
			Type:  orientation,
			Angle: orientationAngle(lock),
		},
	}.Call(s.page)
}

func (s *rodSurface) Unlock(context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
	}
	return proto.EmulationClearDeviceMetricsOverride{}.Call(s.page)
}

func (s *rodSurface) Done() <-chan struct{} {
	return s.done
}

func (s *rodSurface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.browser != nil {
			err = s.browser.Close()
		}
		s.cancel()
		// Cleanup waits for the process and deletes the data dir, which
		// must survive for profiles that keep cookies.
		if s.launched && s.ephemeral {
			s.launcher.Cleanup()
		}
		s.logger.Info("Surface closed")
	})
	return err
}
