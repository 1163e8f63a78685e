package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/session"
	"github.com/lazyvibe/websmith/internal/source"
	"github.com/lazyvibe/websmith/internal/store"
)

type stubSurface struct {
	done chan struct{}
	once sync.Once
}

func (s *stubSurface) Lock(context.Context, session.OrientationLock) error { return nil }
func (s *stubSurface) Unlock(context.Context) error                        { return nil }
func (s *stubSurface) Load(context.Context, string) error                  { return nil }
func (s *stubSurface) Done() <-chan struct{}                               { return s.done }

func (s *stubSurface) Close() error {
	s.closeWindow()
	return nil
}

func (s *stubSurface) closeWindow() {
	s.once.Do(func() { close(s.done) })
}

type stubDriver struct {
	mu       sync.Mutex
	surfaces []*stubSurface
	opts     []driver.OpenOptions
}

func (d *stubDriver) Name() model.DriverType { return "stub" }

func (d *stubDriver) Open(_ context.Context, _ *session.Session, opts driver.OpenOptions) (driver.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &stubSurface{done: make(chan struct{})}
	d.surfaces = append(d.surfaces, s)
	d.opts = append(d.opts, opts)
	return s, nil
}

func (d *stubDriver) last() (*stubSurface, driver.OpenOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaces[len(d.surfaces)-1], d.opts[len(d.opts)-1]
}

type harness struct {
	app    App
	dir    string
	store  *store.JSONStore
	engine *runtime.DefaultEngine
	driver *stubDriver
}

func newHarness(t *testing.T, profiles ...*model.Profile) *harness {
	t.Helper()
	dir := t.TempDir()

	st := store.NewJSONStore(dir)
	for _, p := range profiles {
		require.NoError(t, st.Upsert(context.Background(), p))
	}

	d := &stubDriver{}
	reg := driver.NewRegistry()
	reg.Register(d)
	reader := source.ReaderFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("offline")
	})
	engine := runtime.NewEngine(reg, "stub", dir, runtime.WithReader(reader))
	t.Cleanup(func() { _ = engine.CloseAll() })

	a := New(Deps{
		Store:      st,
		Engine:     engine,
		Reader:     reader,
		Downloader: rules.NewDownloader(dir, reader, nil),
		Config:     app.DefaultConfig(),
		ConfigDir:  dir,
	})
	h := &harness{app: a, dir: dir, store: st, engine: engine, driver: d}
	h.send(t, tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(t, a.Init())
	return h
}

// send delivers msg and returns the follow-up command.
func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	m, cmd := h.app.Update(msg)
	app, ok := m.(App)
	require.True(t, ok)
	h.app = app
	return cmd
}

// run executes cmd and feeds its messages back, expanding batches. Only
// commands that cannot block may be passed.
func (h *harness) run(t *testing.T, cmd tea.Cmd) []tea.Cmd {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var next []tea.Cmd
		for _, c := range batch {
			next = append(next, h.run(t, c)...)
		}
		return next
	}
	if msg == nil {
		return nil
	}
	if follow := h.send(t, msg); follow != nil {
		return []tea.Cmd{follow}
	}
	return nil
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitLoadsProfiles(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	h := newHarness(t, p)

	selected := h.app.siteList.SelectedProfile()
	require.NotNil(t, selected)
	assert.Equal(t, p.ID, selected.ID)
	assert.Equal(t, p.ID, h.app.activity.ProfileID())
}

func TestAddSite(t *testing.T) {
	h := newHarness(t)

	h.send(t, keyPress("a"))
	require.Equal(t, DialogAddSite, h.app.dialogMode)
	h.send(t, keyPress("https://new.example"))
	cmd := h.send(t, keyPress("enter"))
	assert.Equal(t, DialogNone, h.app.dialogMode)

	for _, next := range h.run(t, cmd) {
		h.run(t, next)
	}

	selected := h.app.siteList.SelectedProfile()
	require.NotNil(t, selected)
	assert.Equal(t, "https://new.example", selected.URL)

	stored, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAddSiteRequiresURL(t *testing.T) {
	h := newHarness(t)

	h.send(t, keyPress("a"))
	cmd := h.send(t, keyPress("enter"))
	assert.Nil(t, cmd)

	msg, isErr := h.app.statusBar.Message()
	assert.True(t, isErr)
	assert.Equal(t, errURLRequired.Error(), msg)
}

func TestOpenRecordsNavigationUntilWindowCloses(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	h := newHarness(t, p)

	wait := h.run(t, h.send(t, keyPress("enter")))
	require.Len(t, wait, 1)
	assert.True(t, h.app.isRunning(p.ID))
	assert.Contains(t, h.app.watching, p.ID)

	surface, opts := h.driver.last()
	opts.OnNavigation(driver.NavigationEvent{URL: "https://a.example", Decision: rules.Allow})
	opts.OnNavigation(driver.NavigationEvent{URL: "https://ads.example", Decision: rules.Deny})

	// Both events are queued before the wait runs, so they arrive together.
	wait = h.run(t, wait[0])
	require.Len(t, wait, 1)
	assert.Equal(t, 2, h.app.eventLog(p.ID).Len())
	assert.Equal(t, 1, h.app.eventLog(p.ID).Blocked())

	surface.closeWindow()
	assert.Empty(t, h.run(t, wait[0]))
	assert.NotContains(t, h.app.watching, p.ID)

	msg, _ := h.app.statusBar.Message()
	assert.Equal(t, "Closed Alpha", msg)
	// History survives the session.
	assert.Equal(t, 2, h.app.eventLog(p.ID).Len())
}

func TestStaleStreamEndIsIgnored(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	h := newHarness(t, p)

	h.run(t, h.send(t, keyPress("enter")))
	current := h.app.watching[p.ID]

	stale := make(chan driver.NavigationEvent)
	cmd := h.send(t, SessionEndedMsg{ProfileID: p.ID, stream: stale})
	assert.Nil(t, cmd)
	assert.Equal(t, current, h.app.watching[p.ID])
}

func TestDeleteSiteRemovesBrowserData(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	h := newHarness(t, p)

	data := filepath.Join(h.dir, runtime.SessionsDir, p.ID)
	require.NoError(t, os.MkdirAll(data, 0o755))

	h.send(t, keyPress("d"))
	require.Equal(t, DialogDeleteSite, h.app.dialogMode)
	cmd := h.send(t, keyPress("y"))
	for _, next := range h.run(t, cmd) {
		h.run(t, next)
	}

	assert.Nil(t, h.app.siteList.SelectedProfile())
	assert.NoDirExists(t, data)
	_, err := h.store.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCancelled(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	h := newHarness(t, p)

	h.send(t, keyPress("d"))
	assert.Nil(t, h.send(t, keyPress("n")))
	assert.Equal(t, DialogNone, h.app.dialogMode)

	_, err := h.store.Get(context.Background(), p.ID)
	assert.NoError(t, err)
}

func TestExportAndImport(t *testing.T) {
	p := model.NewProfile("https://a.example", "Alpha")
	p.URLBlacklist = []string{"ads.example"}
	h := newHarness(t, p)

	target := t.TempDir()
	h.run(t, h.app.exportProfile(p, target))
	path := filepath.Join(target, "Alpha.json")
	require.FileExists(t, path)

	for _, next := range h.run(t, h.app.importProfile(path)) {
		h.run(t, next)
	}
	profiles, err := h.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.NotEqual(t, profiles[0].ID, profiles[1].ID)
	assert.Equal(t, profiles[0].URLBlacklist, profiles[1].URLBlacklist)
	assert.Contains(t, h.app.config.RecentPaths, path)
}

func TestListDownloadFailureIsReported(t *testing.T) {
	h := newHarness(t)

	h.send(t, ListDownloadedMsg{ProfileID: "x", URL: "https://lists.example", Err: errors.New("boom")})
	msg, isErr := h.app.statusBar.Message()
	assert.True(t, isErr)
	assert.Contains(t, msg, "boom")
}

func TestViewTooSmall(t *testing.T) {
	h := newHarness(t)
	h.send(t, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, h.app.View(), "Window too small")
}

func TestTabSwitchesFocus(t *testing.T) {
	h := newHarness(t)
	h.send(t, keyPress("tab"))
	assert.Equal(t, FocusActivity, h.app.focus)
	h.send(t, keyPress("tab"))
	assert.Equal(t, FocusSites, h.app.focus)
}

func TestEditKeepsListDownloadedWhileOpen(t *testing.T) {
	ctx := context.Background()
	p := model.NewProfile("https://a.example", "Alpha")
	p.AdblockLists = []string{"old.txt"}
	h := newHarness(t, p)

	h.send(t, keyPress("e"))
	require.Equal(t, DialogEditSite, h.app.dialogMode)

	// A list download for the same site completes while the form is open.
	stored, err := h.store.Get(ctx, p.ID)
	require.NoError(t, err)
	stored.AdblockLists = append(stored.AdblockLists, "fresh.txt")
	require.NoError(t, h.store.Upsert(ctx, stored))

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	for _, next := range h.run(t, cmd) {
		h.run(t, next)
	}

	got, err := h.store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.txt", "fresh.txt"}, got.AdblockLists)
}
