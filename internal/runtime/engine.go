package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/session"
	"github.com/lazyvibe/websmith/internal/source"
)

// SessionsDir is the directory under the config dir holding persistent
// browser data, one subdirectory per profile.
const SessionsDir = "sessions"

// Engine manages browsing surfaces for multiple profiles.
type Engine interface {
	// Open builds a session for p and opens its surface on the initial URL.
	// An already running session for the same profile is returned as is.
	Open(ctx context.Context, p *model.Profile) (Session, error)
	// Get retrieves an existing session by profile ID.
	Get(profileID string) (Session, bool)
	// List returns all tracked sessions.
	List() []Session
	// Close stops and removes a session.
	Close(profileID string) error
	// Forget closes the session and deletes the profile's browser data.
	Forget(profileID string) error
	// CloseAll stops and removes all sessions.
	CloseAll() error
}

// ErrOpenCancelled is returned by Open when the profile was closed while
// its surface was still starting.
var ErrOpenCancelled = errors.New("session closed while opening")

// EndedFunc observes sessions that ended on their own or were stopped.
type EndedFunc func(s Session)

// EngineOption configures a DefaultEngine.
type EngineOption func(*DefaultEngine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *DefaultEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReader sets the reader used for stylesheets, scripts and lists.
func WithReader(r source.Reader) EngineOption {
	return func(e *DefaultEngine) { e.reader = r }
}

// WithOnEnded registers an observer for ended sessions.
func WithOnEnded(fn EndedFunc) EngineOption {
	return func(e *DefaultEngine) { e.onEnded = fn }
}

// DefaultEngine is the default implementation of Engine.
type DefaultEngine struct {
	mu          sync.RWMutex
	sessions    map[string]*BrowserSession
	opening     map[string]*pendingOpen
	registry    *driver.Registry
	driver      model.DriverType
	reader      source.Reader
	sessionsDir string
	onEnded     EndedFunc
	logger      *zap.Logger
}

// pendingOpen is an Open in progress. Concurrent opens for the same profile
// wait on done and share the result.
type pendingOpen struct {
	done      chan struct{}
	session   *BrowserSession
	err       error
	cancelled bool
}

// NewEngine creates an engine that opens surfaces with the given driver.
// Persistent browser data is kept below configDir.
func NewEngine(registry *driver.Registry, dt model.DriverType, configDir string, opts ...EngineOption) *DefaultEngine {
	e := &DefaultEngine{
		sessions:    make(map[string]*BrowserSession),
		opening:     make(map[string]*pendingOpen),
		registry:    registry,
		driver:      dt,
		sessionsDir: filepath.Join(configDir, SessionsDir),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("runtime")
	return e
}

// Open builds and starts a session for p. The engine lock is held only to
// reserve the profile and to publish the result; compiling rules and
// opening the surface happen outside it.
func (e *DefaultEngine) Open(ctx context.Context, p *model.Profile) (Session, error) {
	if p == nil {
		return nil, errors.New("profile is nil")
	}

	e.mu.Lock()
	if existing, ok := e.sessions[p.ID]; ok {
		if existing.Status() == model.SessionStatusRunning {
			e.mu.Unlock()
			return existing, nil
		}
		delete(e.sessions, p.ID)
	}
	if pending, ok := e.opening[p.ID]; ok {
		e.mu.Unlock()
		select {
		case <-pending.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if errors.Is(pending.err, ErrOpenCancelled) {
			// That open lost to a Close; this one starts afresh.
			return e.Open(ctx, p)
		}
		if pending.err != nil {
			return nil, pending.err
		}
		return pending.session, nil
	}
	pending := &pendingOpen{done: make(chan struct{})}
	e.opening[p.ID] = pending
	e.mu.Unlock()

	bs, err := e.start(ctx, p)

	e.mu.Lock()
	delete(e.opening, p.ID)
	cancelled := pending.cancelled
	if err == nil && cancelled {
		err = ErrOpenCancelled
	}
	if err == nil {
		e.sessions[p.ID] = bs
	}
	pending.session, pending.err = bs, err
	close(pending.done)
	e.mu.Unlock()

	if cancelled && bs != nil {
		// Closed while starting: tear the fresh surface down again.
		_ = bs.Stop()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	go e.reap(bs)
	return bs, nil
}

// start compiles the session and opens its surface on the initial URL.
func (e *DefaultEngine) start(ctx context.Context, p *model.Profile) (*BrowserSession, error) {
	d, ok := e.registry.Get(e.driver)
	if !ok {
		return nil, fmt.Errorf("%w: %s", driver.ErrUnknownDriver, e.driver)
	}

	logger := e.logger.With(zap.String("profile", p.ID), zap.String("site", p.DisplayName()))
	core := session.New(ctx, p, e.reader, logger)
	bs := newBrowserSession(core, logger)

	opts := driver.OpenOptions{OnNavigation: bs.record}
	// Without cookies nothing may outlive the surface.
	if core.CookiesEnabled() {
		opts.UserDataDir = filepath.Join(e.sessionsDir, p.ID)
	}

	surface, err := d.Open(ctx, core, opts)
	if err != nil {
		return nil, fmt.Errorf("open surface: %w", err)
	}
	if err := core.Start(ctx, surface); err != nil {
		logger.Warn("Failed to lock orientation", zap.Error(err))
	}
	bs.attach(surface)

	if err := surface.Load(ctx, core.InitialURL()); err != nil {
		logger.Warn("Initial navigation failed", zap.String("url", core.InitialURL()), zap.Error(err))
	}

	logger.Info("Session opened", zap.String("driver", string(e.driver)),
		zap.Int("rules", core.Rules().Len()))
	return bs, nil
}

// reap forgets a session once it ends and notifies the observer.
func (e *DefaultEngine) reap(bs *BrowserSession) {
	<-bs.Done()

	e.mu.Lock()
	if cur, ok := e.sessions[bs.ID()]; ok && cur == bs {
		delete(e.sessions, bs.ID())
	}
	e.mu.Unlock()

	if e.onEnded != nil {
		e.onEnded(bs)
	}
}

// Get retrieves an existing session.
func (e *DefaultEngine) Get(profileID string) (Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.sessions[profileID]
	if !ok {
		return nil, false
	}
	return s, true
}

// List returns all sessions.
func (e *DefaultEngine) List() []Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		result = append(result, s)
	}
	return result
}

// Status returns the status of a profile's session without the full session.
func (e *DefaultEngine) Status(profileID string) model.SessionStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.sessions[profileID]
	if !ok {
		return model.SessionStatusIdle
	}
	return s.Status()
}

// Close stops and removes a session. Unknown IDs are ignored.
func (e *DefaultEngine) Close(profileID string) error {
	e.mu.Lock()
	s, ok := e.sessions[profileID]
	delete(e.sessions, profileID)
	if pending, starting := e.opening[profileID]; starting {
		pending.cancelled = true
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Stop()
}

// Forget closes the profile's session and deletes its persistent browser
// data. Used when a profile is removed.
func (e *DefaultEngine) Forget(profileID string) error {
	if profileID == "" {
		return errors.New("profile id is empty")
	}
	closeErr := e.Close(profileID)
	if err := os.RemoveAll(filepath.Join(e.sessionsDir, profileID)); err != nil {
		return errors.Join(closeErr, fmt.Errorf("remove browser data: %w", err))
	}
	return closeErr
}

// CloseAll stops and removes all sessions.
func (e *DefaultEngine) CloseAll() error {
	e.mu.Lock()
	all := make([]*BrowserSession, 0, len(e.sessions))
	for id, s := range e.sessions {
		all = append(all, s)
		delete(e.sessions, id)
	}
	for _, pending := range e.opening {
		pending.cancelled = true
	}
	e.mu.Unlock()

	var errs []error
	for _, s := range all {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
