package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/session"
	"github.com/lazyvibe/websmith/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSurface struct {
	mu      sync.Mutex
	calls   []string
	done    chan struct{}
	once    sync.Once
	loadErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{done: make(chan struct{})}
}

func (s *fakeSurface) log(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSurface) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSurface) Lock(_ context.Context, l session.OrientationLock) error {
	s.log("lock:" + l.String())
	return nil
}

func (s *fakeSurface) Unlock(context.Context) error {
	s.log("unlock")
	return nil
}

func (s *fakeSurface) Load(_ context.Context, url string) error {
	s.log("load:" + url)
	return s.loadErr
}

func (s *fakeSurface) Done() <-chan struct{} { return s.done }

// closeWindow simulates the user closing the browser.
func (s *fakeSurface) closeWindow() {
	s.once.Do(func() { close(s.done) })
}

func (s *fakeSurface) Close() error {
	s.log("close")
	s.closeWindow()
	return nil
}

type fakeDriver struct {
	mu       sync.Mutex
	surfaces []*fakeSurface
	opts     []driver.OpenOptions
	openErr  error
	loadErr  error
}

func (d *fakeDriver) Name() model.DriverType { return "fake" }

func (d *fakeDriver) Open(_ context.Context, _ *session.Session, opts driver.OpenOptions) (driver.Surface, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newFakeSurface()
	s.loadErr = d.loadErr
	d.surfaces = append(d.surfaces, s)
	d.opts = append(d.opts, opts)
	return s, nil
}

func (d *fakeDriver) last() (*fakeSurface, driver.OpenOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaces[len(d.surfaces)-1], d.opts[len(d.opts)-1]
}

func newTestEngine(t *testing.T, d *fakeDriver, opts ...EngineOption) *DefaultEngine {
	t.Helper()
	reg := driver.NewRegistry()
	reg.Register(d)
	e := NewEngine(reg, "fake", t.TempDir(), opts...)
	t.Cleanup(func() { _ = e.CloseAll() })
	return e
}

func TestEngineOpenLoadsInitialURL(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	p := model.NewProfile("https://a.com", "A")
	p.ForceOrientation = model.OrientationLandscape

	s, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, s.ID())
	assert.Equal(t, model.SessionStatusRunning, s.Status())

	surface, opts := d.last()
	assert.Equal(t, []string{"lock:landscape", "load:https://a.com"}, surface.Calls())
	assert.Contains(t, opts.UserDataDir, p.ID)

	got, ok := e.Get(p.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Len(t, e.List(), 1)
	assert.Equal(t, model.SessionStatusRunning, e.Status(p.ID))
}

func TestEngineOpenReturnsRunningSession(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	p := model.NewProfile("https://a.com", "A")

	first, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	second, err := e.Open(context.Background(), p)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, d.surfaces, 1)
}

func TestEngineEphemeralWithoutCookies(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	p := model.NewProfile("https://a.com", "A")
	p.AllowCookies = false

	_, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	_, opts := d.last()
	assert.Empty(t, opts.UserDataDir)
}

func TestEngineUnknownDriver(t *testing.T) {
	e := NewEngine(driver.NewRegistry(), "missing", t.TempDir())
	_, err := e.Open(context.Background(), model.NewProfile("https://a.com", "A"))
	assert.ErrorIs(t, err, driver.ErrUnknownDriver)
}

func TestEngineOpenError(t *testing.T) {
	d := &fakeDriver{openErr: errors.New("no browser")}
	e := newTestEngine(t, d)
	_, err := e.Open(context.Background(), model.NewProfile("https://a.com", "A"))
	require.Error(t, err)
	assert.Empty(t, e.List())
}

func TestEngineLoadFailureKeepsSession(t *testing.T) {
	d := &fakeDriver{loadErr: errors.New("dns")}
	e := newTestEngine(t, d)
	s, err := e.Open(context.Background(), model.NewProfile("https://a.com", "A"))
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRunning, s.Status())
}

func TestEngineCloseReleasesLock(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	p := model.NewProfile("https://a.com", "A")
	p.ForceOrientation = model.OrientationPortrait

	s, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	require.NoError(t, e.Close(p.ID))

	<-s.Done()
	assert.Equal(t, model.SessionStatusStopped, s.Status())
	surface, _ := d.last()
	assert.Equal(t, []string{"lock:portrait", "load:https://a.com", "unlock", "close"}, surface.Calls())
	_, ok := e.Get(p.ID)
	assert.False(t, ok)
	assert.NoError(t, e.Close(p.ID))
}

func TestEngineReapsClosedWindow(t *testing.T) {
	ended := make(chan Session, 1)
	d := &fakeDriver{}
	e := newTestEngine(t, d, WithOnEnded(func(s Session) { ended <- s }))
	p := model.NewProfile("https://a.com", "A")

	s, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	surface, _ := d.last()
	surface.closeWindow()

	select {
	case got := <-ended:
		assert.Equal(t, p.ID, got.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("session not reaped")
	}
	assert.Equal(t, model.SessionStatusStopped, s.Status())
	_, ok := e.Get(p.ID)
	assert.False(t, ok)
}

func TestSessionRecordsNavigation(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	p := model.NewProfile("https://a.com", "A")

	s, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	_, opts := d.last()

	opts.OnNavigation(driver.NavigationEvent{URL: "https://a.com", Decision: rules.Allow})
	opts.OnNavigation(driver.NavigationEvent{URL: "https://ads.io", Decision: rules.Deny})

	ev := <-s.Events()
	assert.Equal(t, "https://a.com", ev.URL)
	ev = <-s.Events()
	assert.Equal(t, rules.Deny, ev.Decision)

	assert.Len(t, s.History(), 2)
	assert.Equal(t, 1, s.Blocked())

	require.NoError(t, s.Stop())
	_, open := <-s.Events()
	assert.False(t, open)

	// Late reports after the end are kept in history only.
	opts.OnNavigation(driver.NavigationEvent{URL: "https://late.io", Decision: rules.Allow})
	assert.Len(t, s.History(), 3)
}

func TestEngineCloseAll(t *testing.T) {
	d := &fakeDriver{}
	e := newTestEngine(t, d)
	for _, url := range []string{"https://a.com", "https://b.com"} {
		_, err := e.Open(context.Background(), model.NewProfile(url, ""))
		require.NoError(t, err)
	}
	require.NoError(t, e.CloseAll())
	assert.Empty(t, e.List())
}

func TestEngineForgetRemovesBrowserData(t *testing.T) {
	d := &fakeDriver{}
	reg := driver.NewRegistry()
	reg.Register(d)
	dir := t.TempDir()
	e := NewEngine(reg, "fake", dir)
	t.Cleanup(func() { _ = e.CloseAll() })

	p := model.NewProfile("https://a.com", "A")
	s, err := e.Open(context.Background(), p)
	require.NoError(t, err)
	_, opts := d.last()
	require.NoError(t, os.MkdirAll(opts.UserDataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.UserDataDir, "Cookies"), []byte("x"), 0o600))

	require.NoError(t, e.Forget(p.ID))
	<-s.Done()
	assert.NoDirExists(t, filepath.Join(dir, SessionsDir, p.ID))
	assert.Error(t, e.Forget(""))
	assert.NoError(t, e.Forget("never-opened"))
}

func TestEventLogWraps(t *testing.T) {
	l := NewEventLog(2)
	l.Add(driver.NavigationEvent{URL: "1", Decision: rules.Deny})
	l.Add(driver.NavigationEvent{URL: "2", Decision: rules.Allow})
	l.Add(driver.NavigationEvent{URL: "3", Decision: rules.Deny})

	events := l.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[0].URL)
	assert.Equal(t, "3", events[1].URL)
	assert.Equal(t, 2, l.Blocked())

	l.Reset()
	assert.Zero(t, l.Len())
	assert.Zero(t, l.Blocked())
}

// slowLists returns a reader whose adblock list reads park until release
// is closed. entered receives each parked ref.
func slowLists(entered chan<- string, release <-chan struct{}) source.Reader {
	return source.ReaderFunc(func(ctx context.Context, ref string) ([]byte, error) {
		entered <- ref
		select {
		case <-release:
			return []byte("ads.\n"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestEngineOpenDoesNotBlockOtherProfiles(t *testing.T) {
	entered := make(chan string, 4)
	release := make(chan struct{})
	d := &fakeDriver{}
	e := newTestEngine(t, d, WithReader(slowLists(entered, release)))

	slow := model.NewProfile("https://a.com", "A")
	slow.AdblockLists = []string{"https://lists.example/a.txt"}
	other := model.NewProfile("https://b.com", "B")

	opened := make(chan error, 1)
	go func() {
		_, err := e.Open(context.Background(), slow)
		opened <- err
	}()
	<-entered

	answered := make(chan model.SessionStatus, 1)
	go func() { answered <- e.Status(other.ID) }()
	select {
	case st := <-answered:
		assert.Equal(t, model.SessionStatusIdle, st)
	case <-time.After(time.Second):
		t.Fatal("status lookup waited on another profile's open")
	}

	// A second profile opens while the first is still compiling.
	_, err := e.Open(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, e.List(), 1)
	assert.Equal(t, model.SessionStatusIdle, e.Status(slow.ID))

	close(release)
	require.NoError(t, <-opened)
	assert.Equal(t, model.SessionStatusRunning, e.Status(slow.ID))
	assert.Len(t, e.List(), 2)
}

func TestEngineConcurrentOpenSharesSession(t *testing.T) {
	entered := make(chan string, 4)
	release := make(chan struct{})
	d := &fakeDriver{}
	e := newTestEngine(t, d, WithReader(slowLists(entered, release)))

	p := model.NewProfile("https://a.com", "A")
	p.AdblockLists = []string{"https://lists.example/a.txt"}

	results := make(chan Session, 2)
	open := func() {
		s, err := e.Open(context.Background(), p)
		assert.NoError(t, err)
		results <- s
	}
	go open()
	<-entered
	go open()

	close(release)
	first, second := <-results, <-results
	assert.Same(t, first, second)
	d.mu.Lock()
	assert.Len(t, d.surfaces, 1)
	d.mu.Unlock()
}

func TestEngineCloseWhileOpening(t *testing.T) {
	entered := make(chan string, 4)
	release := make(chan struct{})
	d := &fakeDriver{}
	e := newTestEngine(t, d, WithReader(slowLists(entered, release)))

	p := model.NewProfile("https://a.com", "A")
	p.AdblockLists = []string{"https://lists.example/a.txt"}

	opened := make(chan error, 1)
	go func() {
		_, err := e.Open(context.Background(), p)
		opened <- err
	}()
	<-entered

	require.NoError(t, e.Close(p.ID))
	close(release)

	assert.ErrorIs(t, <-opened, ErrOpenCancelled)
	_, ok := e.Get(p.ID)
	assert.False(t, ok)
	surface, _ := d.last()
	assert.Contains(t, surface.Calls(), "close")
}
