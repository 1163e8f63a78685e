// Package session composes a profile's display flags, navigation rules and
// injection script into what a rendering surface must honor.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/inject"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/source"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("session already started")

// OrientationLock is an instruction for the orientation controller.
type OrientationLock int

const (
	// LockNone leaves orientation unrestricted.
	LockNone OrientationLock = iota
	// LockPortrait restricts the surface to portrait.
	LockPortrait
	// LockLandscape restricts the surface to landscape.
	LockLandscape
)

func (l OrientationLock) String() string {
	switch l {
	case LockPortrait:
		return "portrait"
	case LockLandscape:
		return "landscape"
	default:
		return "none"
	}
}

// LockFor maps a profile orientation onto a lock instruction.
func LockFor(o model.Orientation) OrientationLock {
	switch o {
	case model.OrientationPortrait:
		return LockPortrait
	case model.OrientationLandscape:
		return LockLandscape
	default:
		return LockNone
	}
}

// OrientationController applies and releases orientation locks.
type OrientationController interface {
	Lock(ctx context.Context, lock OrientationLock) error
	Unlock(ctx context.Context) error
}

// Session is built once per surface activation and ended on exit.
type Session struct {
	profile *model.Profile
	rules   *rules.RuleSet
	script  string

	mu      sync.Mutex
	ctrl    OrientationController
	started bool
	ended   bool
}

// New compiles the rules and injection script for p. Reading content may block
// on I/O; navigation decisions made afterwards never do.
func New(ctx context.Context, p *model.Profile, r source.Reader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("profile", p.ID))
	return &Session{
		profile: p.Clone(),
		rules:   rules.CompileProfile(ctx, p, r, logger),
		script:  inject.New(r, logger).Build(ctx, p),
	}
}

// Profile returns a copy of the profile the session was built from.
func (s *Session) Profile() *model.Profile { return s.profile.Clone() }

// InitialURL is the first navigation target.
func (s *Session) InitialURL() string { return s.profile.URL }

// ChromeVisible reports whether navigation chrome is shown.
func (s *Session) ChromeVisible() bool { return !s.profile.HideNavigation }

// Fullscreen is requested explicitly or implied by a landscape lock.
func (s *Session) Fullscreen() bool {
	return s.profile.AllowFullscreen || s.profile.ForceOrientation == model.OrientationLandscape
}

// OrientationLock is the lock applied on Start.
func (s *Session) OrientationLock() OrientationLock { return LockFor(s.profile.ForceOrientation) }

// CookiesEnabled reports whether storage persists across sessions.
func (s *Session) CookiesEnabled() bool { return s.profile.AllowCookies }

// GesturesEnabled reports whether back/forward gestures are allowed.
func (s *Session) GesturesEnabled() bool { return s.profile.AllowBackForwardGestures }

// Rules returns the compiled rule set.
func (s *Session) Rules() *rules.RuleSet { return s.rules }

// Script returns the injection payload. It may be empty.
func (s *Session) Script() string { return s.script }

// Decide gates one navigation.
func (s *Session) Decide(url string) rules.Decision { return s.rules.Decide(url) }

// Start applies the orientation lock. A nil controller is allowed.
func (s *Session) Start(ctx context.Context, ctrl OrientationController) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctrl = ctrl

	if ctrl == nil || s.OrientationLock() == LockNone {
		return nil
	}
	return ctrl.Lock(ctx, s.OrientationLock())
}

// End releases the orientation lock back to unrestricted. It is safe to call
// more than once.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.ended {
		return nil
	}
	s.ended = true
	if s.ctrl == nil || s.OrientationLock() == LockNone {
		return nil
	}
	return s.ctrl.Unlock(ctx)
}
