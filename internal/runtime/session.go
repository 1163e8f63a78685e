// Package runtime manages open browsing surfaces, one per profile.
package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/session"
)

// Session is one active browsing surface.
type Session interface {
	// ID returns the profile ID the surface was opened for.
	ID() string
	// Profile returns the profile snapshot the surface honors.
	Profile() *model.Profile
	// Status returns the current session status.
	Status() model.SessionStatus
	// Events delivers gate decisions as they happen. It is closed when the
	// session ends.
	Events() <-chan driver.NavigationEvent
	// History returns recent gate decisions, oldest first.
	History() []driver.NavigationEvent
	// Blocked returns the number of denied navigations so far.
	Blocked() int
	// Done is closed once the session has ended.
	Done() <-chan struct{}
	// Stop releases the orientation lock and closes the surface.
	Stop() error
}

// BrowserSession binds a compiled session to a driver surface.
type BrowserSession struct {
	core    *session.Session
	surface driver.Surface
	logger  *zap.Logger

	mu      sync.RWMutex
	status  model.SessionStatus
	started time.Time

	events   chan driver.NavigationEvent
	history  *EventLog
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newBrowserSession(core *session.Session, logger *zap.Logger) *BrowserSession {
	return &BrowserSession{
		core:    core,
		logger:  logger,
		status:  model.SessionStatusIdle,
		events:  make(chan driver.NavigationEvent, 256),
		history: NewEventLog(200),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// record is the surface's navigation observer. It never blocks.
func (s *BrowserSession) record(e driver.NavigationEvent) {
	s.history.Add(e)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != model.SessionStatusRunning {
		return
	}
	select {
	case s.events <- e:
	default:
		// Drop the oldest pending event to make room.
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- e:
		default:
		}
	}
}

// attach marks the session running on surface and starts watching it.
func (s *BrowserSession) attach(surface driver.Surface) {
	s.mu.Lock()
	s.surface = surface
	s.status = model.SessionStatusRunning
	s.started = time.Now()
	s.mu.Unlock()

	go s.watch()
}

// watch ends the session when the window closes or Stop is called.
func (s *BrowserSession) watch() {
	select {
	case <-s.surface.Done():
		s.logger.Info("Browser window closed")
	case <-s.stop:
	}
	s.finish()
}

func (s *BrowserSession) finish() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.core.End(ctx); err != nil {
		s.logger.Debug("Failed to release orientation lock", zap.Error(err))
	}
	if err := s.surface.Close(); err != nil {
		s.logger.Debug("Surface close reported an error", zap.Error(err))
	}

	s.mu.Lock()
	if s.status == model.SessionStatusRunning {
		s.status = model.SessionStatusStopped
	}
	close(s.events)
	s.mu.Unlock()

	s.logger.Info("Session ended",
		zap.Duration("uptime", time.Since(s.started)),
		zap.Int("blocked", s.history.Blocked()))
	close(s.done)
}

// ID returns the profile ID.
func (s *BrowserSession) ID() string { return s.core.Profile().ID }

// Profile returns the profile snapshot.
func (s *BrowserSession) Profile() *model.Profile { return s.core.Profile() }

// Core returns the compiled session.
func (s *BrowserSession) Core() *session.Session { return s.core }

// Status returns the current status.
func (s *BrowserSession) Status() model.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Events returns the decision channel.
func (s *BrowserSession) Events() <-chan driver.NavigationEvent { return s.events }

// History returns recent decisions.
func (s *BrowserSession) History() []driver.NavigationEvent { return s.history.Events() }

// Blocked returns the number of denied navigations.
func (s *BrowserSession) Blocked() int { return s.history.Blocked() }

// Done is closed once the session has ended.
func (s *BrowserSession) Done() <-chan struct{} { return s.done }

// Stop ends the session and waits for the surface to close.
func (s *BrowserSession) Stop() error {
	s.mu.RLock()
	attached := s.surface != nil
	s.mu.RUnlock()
	if !attached {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
