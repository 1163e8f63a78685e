// Package driver provides rendering surfaces backed by a Chromium browser.
package driver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/session"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// ErrUnknownDriver is returned when a driver type is not registered.
var ErrUnknownDriver = errors.New("unknown driver")

// Surface is one open browsing window.
//
// A surface gates every document request through its session and evaluates
// the session script once per main-frame load. It also acts as the session's
// orientation controller.
type Surface interface {
	session.OrientationController
	// Load navigates to url.
	Load(ctx context.Context, url string) error
	// Done is closed when the browser window goes away.
	Done() <-chan struct{}
	// Close shuts the browser down and releases its resources.
	Close() error
}

// OpenOptions describe one surface activation.
type OpenOptions struct {
	// UserDataDir keeps cookies and storage between activations.
	// Empty means an ephemeral profile discarded on Close.
	UserDataDir string
	// OnNavigation, when set, observes every gated document request.
	// It is called from driver goroutines and must not block.
	OnNavigation func(NavigationEvent)
}

// NavigationEvent records one gate decision.
type NavigationEvent struct {
	URL      string
	Decision rules.Decision
	Time     time.Time
}

func (o OpenOptions) report(url string, d rules.Decision) {
	if o.OnNavigation != nil {
		o.OnNavigation(NavigationEvent{URL: url, Decision: d, Time: time.Now()})
	}
}

// Driver opens surfaces.
type Driver interface {
	// Name returns the driver identifier.
	Name() model.DriverType
	// Open launches a browser configured for sess. It does not navigate.
	Open(ctx context.Context, sess *session.Session, opts OpenOptions) (Surface, error)
}

// Config holds launch settings shared by all drivers.
type Config struct {
	// BrowserPath is the Chromium executable. Empty lets the driver decide.
	BrowserPath string
	Headless    bool
	Width       int
	Height      int
	// ExtraFlags are appended to the derived launch switches.
	ExtraFlags []utils.BrowserFlag
}

func (c Config) size() (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 800
	}
	return w, h
}

// Registry holds all available drivers.
type Registry struct {
	drivers map[model.DriverType]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[model.DriverType]Driver)}
}

// NewRegistryWithConfig creates a registry with the built-in drivers.
func NewRegistryWithConfig(cfg Config, logger *zap.Logger) *Registry {
	r := NewRegistry()
	r.Register(NewChromedpDriver(cfg, logger))
	r.Register(NewRodDriver(cfg, logger))
	return r
}

// Register adds or replaces a driver.
func (r *Registry) Register(d Driver) {
	r.drivers[d.Name()] = d
}

// Get retrieves a driver by type.
func (r *Registry) Get(t model.DriverType) (Driver, bool) {
	d, ok := r.drivers[t]
	return d, ok
}
