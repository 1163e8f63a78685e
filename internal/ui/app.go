package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/notify"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/source"
	"github.com/lazyvibe/websmith/internal/store"
	"github.com/lazyvibe/websmith/internal/ui/components/activity"
	"github.com/lazyvibe/websmith/internal/ui/components/dialog"
	"github.com/lazyvibe/websmith/internal/ui/components/editor"
	"github.com/lazyvibe/websmith/internal/ui/components/sitelist"
	"github.com/lazyvibe/websmith/internal/ui/components/statusbar"
	"github.com/lazyvibe/websmith/internal/ui/keys"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// FocusArea represents which UI pane has focus.
type FocusArea int

const (
	// FocusSites is the site list pane.
	FocusSites FocusArea = iota
	// FocusActivity is the navigation log pane.
	FocusActivity
)

const (
	minAppWidth  = 60
	minAppHeight = 16

	// historySize is how many navigations are kept per site.
	historySize = 500
)

// DialogMode represents the current dialog being shown.
type DialogMode int

const (
	DialogNone DialogMode = iota
	DialogAddSite
	DialogEditSite
	DialogDeleteSite
	DialogImport
	DialogExport
	DialogFetchList
	DialogSettings
)

// Deps are the services the TUI drives.
type Deps struct {
	Store      store.ProfileStore
	Engine     *runtime.DefaultEngine
	Reader     source.Reader
	Downloader *rules.Downloader
	Notifier   *notify.Dispatcher
	Config     *app.Config
	ConfigDir  string
	Logger     *zap.Logger
}

// App is the main application model.
type App struct {
	// Components
	siteList  sitelist.Model
	activity  activity.Model
	statusBar statusbar.Model
	input     dialog.InputDialog
	form      editor.Model

	// State
	focus      FocusArea
	dialogMode DialogMode
	width      int
	height     int
	ready      bool
	quitting   bool

	// Data
	profiles []*model.Profile
	// targetID is the profile the open dialog acts on.
	targetID      string
	pendingSelect string
	logs          map[string]*runtime.EventLog
	watching      map[string]<-chan driver.NavigationEvent
	fetches       map[string]context.CancelFunc
	// closing marks windows the user closed; their end is not announced.
	closing map[string]bool
	// formLists are the edited profile's adblock lists when its form opened.
	formLists []string
	// edits serializes read-modify-write cycles on stored profiles.
	edits *sync.Mutex

	configDir string
	config    *app.Config

	// Dependencies
	store      store.ProfileStore
	engine     *runtime.DefaultEngine
	reader     source.Reader
	downloader *rules.Downloader
	notifier   *notify.Dispatcher
	keys       keys.KeyMap
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// New creates a new application instance.
func New(d Deps) App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	status := statusbar.New()
	if d.Config != nil {
		status.SetDriver(string(d.Config.Driver))
	}

	siteList := sitelist.New()
	siteList.SetFocused(true)

	return App{
		siteList:   siteList,
		activity:   activity.New(),
		statusBar:  status,
		focus:      FocusSites,
		dialogMode: DialogNone,
		logs:       make(map[string]*runtime.EventLog),
		watching:   make(map[string]<-chan driver.NavigationEvent),
		fetches:    make(map[string]context.CancelFunc),
		closing:    make(map[string]bool),
		edits:      &sync.Mutex{},
		configDir:  d.ConfigDir,
		config:     d.Config,
		store:      d.Store,
		engine:     d.Engine,
		reader:     d.Reader,
		downloader: d.Downloader,
		notifier:   d.Notifier,
		keys:       keys.DefaultKeyMap(),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("ui"),
	}
}

// Init initializes the application.
func (a App) Init() tea.Cmd {
	return a.loadProfiles()
}

func (a App) loadProfiles() tea.Cmd {
	return func() tea.Msg {
		profiles, err := a.store.List(a.ctx)
		return ProfilesLoadedMsg{Profiles: profiles, Err: err}
	}
}

func (a App) findProfile(id string) *model.Profile {
	for _, p := range a.profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (a *App) eventLog(profileID string) *runtime.EventLog {
	l, ok := a.logs[profileID]
	if !ok {
		l = runtime.NewEventLog(historySize)
		a.logs[profileID] = l
	}
	return l
}

func (a App) isRunning(profileID string) bool {
	return a.engine.Status(profileID) == model.SessionStatusRunning
}

// refreshActivity points the activity pane at the selected site.
func (a *App) refreshActivity() {
	p := a.siteList.SelectedProfile()
	if p == nil {
		a.activity.Show("", "", false, nil, 0)
		return
	}
	l := a.eventLog(p.ID)
	a.activity.Show(p.ID, p.DisplayName(), a.isRunning(p.ID), l.Events(), l.Blocked())
}

func (a *App) updateSessionCount() {
	a.statusBar.SetSessionCount(len(a.engine.List()))
}

// openSession launches a browser window for p. A running session is
// replaced when restart is set.
func (a App) openSession(p *model.Profile, restart bool) tea.Cmd {
	if restart {
		a.closing[p.ID] = true
	}
	return a.startSession(p.Clone(), restart)
}

func (a App) startSession(p *model.Profile, restart bool) tea.Cmd {
	return func() tea.Msg {
		if restart {
			if err := a.engine.Close(p.ID); err != nil {
				a.logger.Warn("Failed to close session before restart", zap.String("profile", p.ID), zap.Error(err))
			}
		}
		if _, err := a.engine.Open(a.ctx, p); err != nil {
			if errors.Is(err, runtime.ErrOpenCancelled) {
				return nil
			}
			return ErrorMsg{Err: fmt.Errorf("open %s: %w", p.DisplayName(), err)}
		}
		return SessionOpenedMsg{ProfileID: p.ID, Restarted: restart}
	}
}

func (a App) closeSession(profileID string) tea.Cmd {
	a.closing[profileID] = true
	return func() tea.Msg {
		if err := a.engine.Close(profileID); err != nil {
			return ErrorMsg{Err: fmt.Errorf("close window: %w", err)}
		}
		return nil
	}
}

// saveEdited stores an edited profile. Adblock lists added to the stored
// copy while the form was open are kept.
func (a App) saveEdited(p *model.Profile, opened []string) tea.Cmd {
	st, edits := a.store, a.edits
	return func() tea.Msg {
		edits.Lock()
		defer edits.Unlock()
		if current, err := st.Get(a.ctx, p.ID); err == nil {
			p.AdblockLists = mergeAddedLists(p.AdblockLists, current.AdblockLists, opened)
		}
		if err := st.Upsert(a.ctx, p); err != nil {
			return ErrorMsg{Err: err}
		}
		return ProfileSavedMsg{Profile: p}
	}
}

func (a App) saveProfile(p *model.Profile, isNew bool) tea.Cmd {
	return func() tea.Msg {
		if err := a.store.Upsert(a.ctx, p); err != nil {
			return ErrorMsg{Err: err}
		}
		return ProfileSavedMsg{Profile: p, IsNew: isNew}
	}
}

func (a App) deleteProfile(p *model.Profile) tea.Cmd {
	if cancel, ok := a.fetches[p.ID]; ok {
		cancel()
		delete(a.fetches, p.ID)
	}
	delete(a.logs, p.ID)
	a.closing[p.ID] = true
	return func() tea.Msg {
		if err := a.engine.Forget(p.ID); err != nil {
			a.logger.Warn("Failed to clean up browser data", zap.String("profile", p.ID), zap.Error(err))
		}
		if err := a.store.Remove(a.ctx, p.ID); err != nil {
			return ErrorMsg{Err: err}
		}
		return ProfileDeletedMsg{ProfileID: p.ID, Nickname: p.DisplayName()}
	}
}

func (a App) importProfile(ref string) tea.Cmd {
	return func() tea.Msg {
		data, err := a.reader.Read(a.ctx, ref)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("import: %w", err)}
		}
		p, err := store.ImportNew(a.ctx, a.store, data)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("import: %w", err)}
		}
		return ImportedMsg{Profile: p, Source: ref}
	}
}

func (a App) exportProfile(p *model.Profile, target string) tea.Cmd {
	p = p.Clone()
	return func() tea.Msg {
		data, err := a.store.Export(a.ctx, p)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("export: %w", err)}
		}
		path := utils.ExportPath(target, p.DisplayName())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return ErrorMsg{Err: fmt.Errorf("export: %w", err)}
		}
		return ExportedMsg{Path: path}
	}
}

// fetchList downloads an adblock list and appends it to the profile. The
// fetch is abandoned when the profile is deleted or the app quits.
func (a *App) fetchList(p *model.Profile, url string) tea.Cmd {
	if cancel, ok := a.fetches[p.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.fetches[p.ID] = cancel

	id, name := p.ID, p.DisplayName()
	notifications := a.notificationConfig()
	downloader, st, notifier, edits := a.downloader, a.store, a.notifier, a.edits
	return func() tea.Msg {
		defer cancel()
		msg := ListDownloadedMsg{ProfileID: id, URL: url}

		dl, err := downloader.Fetch(ctx, url)
		if err == nil {
			edits.Lock()
			var current *model.Profile
			if current, err = st.Get(ctx, id); err == nil {
				current.AdblockLists = append(current.AdblockLists, dl.Ref)
				err = st.Upsert(ctx, current)
			}
			edits.Unlock()
		}
		if ctx.Err() != nil {
			// Dismissed: nothing to report.
			return nil
		}

		event := notify.Event{ProfileID: id, ProfileName: name, Timestamp: time.Now()}
		if err != nil {
			msg.Err = err
			event.Type = notify.EventListFailed
			event.Title = "Blocklist download failed"
			event.Message = fmt.Sprintf("%s: %v", url, err)
		} else {
			msg.Rules = dl.Rules
			event.Type = notify.EventListDownloaded
			event.Title = "Blocklist added"
			event.Message = fmt.Sprintf("%d rules from %s", dl.Rules, url)
		}
		if notifier != nil {
			notifier.Dispatch(ctx, notifications, event)
		}
		return msg
	}
}

// notifyEnded announces a window that went away without being closed
// from here.
func (a App) notifyEnded(p *model.Profile, blocked int) tea.Cmd {
	if a.notifier == nil {
		return nil
	}
	cfg := a.notificationConfig()
	event := notify.Event{
		ProfileID:   p.ID,
		ProfileName: p.DisplayName(),
		Type:        notify.EventSessionEnded,
		Title:       "Window closed",
		Message:     fmt.Sprintf("%s closed after %d blocked navigations", p.DisplayName(), blocked),
		Timestamp:   time.Now(),
	}
	notifier, ctx := a.notifier, a.ctx
	return func() tea.Msg {
		notifier.Dispatch(ctx, cfg, event)
		return nil
	}
}

func (a App) notificationConfig() notify.Config {
	if a.config == nil {
		return notify.Config{}
	}
	return a.config.Notifications
}

func (a *App) rememberPath(path string) {
	if a.config == nil || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return
	}
	a.config.AddRecentPath(utils.ExpandPath(path))
	if err := app.SaveConfig(a.configDir, a.config); err != nil {
		a.logger.Warn("Failed to save recent paths", zap.Error(err))
	}
}

// SetSize updates the window dimensions.
func (a *App) SetSize(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.statusBar.SetWidth(width)
	a.input.SetSize(width, height)
	a.form.SetSize(width, height)
	if a.windowTooSmall() {
		return
	}

	leftWidth := a.leftWidth()
	contentHeight := height - 1
	a.siteList.SetSize(leftWidth, contentHeight)
	a.activity.SetSize(width-leftWidth, contentHeight)
}

func (a App) leftWidth() int {
	return min(max(a.width*35/100, 28), 50)
}

func (a App) windowTooSmall() bool {
	return a.width < minAppWidth || a.height < minAppHeight
}

func (a *App) setFocus(f FocusArea) {
	a.focus = f
	a.siteList.SetFocused(f == FocusSites)
	a.activity.SetFocused(f == FocusActivity)
}

// ---------- Dialogs ----------

func (a *App) showInput(mode DialogMode, d dialog.InputDialog, targetID string) {
	d.SetSize(a.width, a.height)
	a.input = d
	a.dialogMode = mode
	a.targetID = targetID
}

func (a *App) showAddDialog() {
	a.showInput(DialogAddSite, dialog.NewInputDialog("Add Site", []dialog.InputField{
		{Label: "URL", Placeholder: "https://example.com"},
		{Label: "Nickname", Placeholder: "Example"},
	}), "")
}

func (a *App) showEditForm(p *model.Profile) {
	a.form = editor.New("Edit "+p.DisplayName(), profileFields(p))
	a.form.SetSize(a.width, a.height)
	a.dialogMode = DialogEditSite
	a.targetID = p.ID
	a.formLists = slices.Clone(p.AdblockLists)
}

func (a *App) showDeleteDialog(p *model.Profile) {
	msg := fmt.Sprintf("Delete %q? Its cookies and browser data are removed too.", p.DisplayName())
	a.showInput(DialogDeleteSite, dialog.NewConfirmDialog("Delete Site", msg), p.ID)
}

func (a *App) showImportDialog() {
	var recent []string
	if a.config != nil {
		recent = a.config.GetRecentPaths("")
	}
	d := dialog.NewInputDialog("Import Site", []dialog.InputField{
		{Label: "File or URL", Placeholder: "~/Downloads/site.json", EnablePathComp: true, PathExtensions: []string{".json"}},
	})
	if len(recent) > 0 {
		d.SetMessage("Recent: " + strings.Join(recent[:min(len(recent), 3)], ", "))
	}
	a.showInput(DialogImport, d, "")
}

func (a *App) showExportDialog(p *model.Profile) {
	home, _ := os.UserHomeDir()
	def := filepath.Join(home, utils.SafeFileName(p.DisplayName())+".json")
	a.showInput(DialogExport, dialog.NewInputDialog("Export "+p.DisplayName(), []dialog.InputField{
		{Label: "File", Value: def, EnablePathComp: true, PathExtensions: []string{".json"}},
	}), p.ID)
}

func (a *App) showFetchDialog(p *model.Profile) {
	d := dialog.NewInputDialog("Fetch Blocklist", []dialog.InputField{
		{Label: "List URL", Placeholder: "https://easylist.to/easylist/easylist.txt"},
	})
	d.SetMessage("The list is saved locally and added to " + p.DisplayName() + ".")
	a.showInput(DialogFetchList, d, p.ID)
}

func (a *App) showSettings() {
	if a.config == nil {
		return
	}
	a.form = editor.New("Settings", settingsFields(a.config))
	a.form.SetSize(a.width, a.height)
	a.dialogMode = DialogSettings
	a.targetID = ""
}

func (a *App) hideDialog() {
	a.dialogMode = DialogNone
	a.targetID = ""
}

// shutdown cancels pending work and closes every window.
func (a *App) shutdown() {
	a.quitting = true
	a.cancel()
	if err := a.engine.CloseAll(); err != nil {
		a.logger.Warn("Failed to close sessions", zap.Error(err))
	}
}
