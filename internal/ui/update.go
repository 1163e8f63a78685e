package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/model"
)

// Update handles all messages for the application.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If a dialog is open, only intercept key input; allow other messages through.
	if a.dialogMode != DialogNone {
		if _, ok := msg.(tea.KeyMsg); ok {
			return a.handleDialogUpdate(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeys(msg)

	case ProfilesLoadedMsg:
		if msg.Err != nil {
			a.statusBar.SetMessage("Error loading sites: "+msg.Err.Error(), true)
			return a, nil
		}
		a.profiles = msg.Profiles
		running := make(map[string]bool)
		for _, s := range a.engine.List() {
			if s.Status() == model.SessionStatusRunning {
				running[s.ID()] = true
			}
		}
		a.siteList.SetProfiles(a.profiles, running)
		for id := range running {
			a.siteList.SetRunning(id, true, a.eventLog(id).Blocked())
		}
		if a.pendingSelect != "" {
			a.siteList.Select(a.pendingSelect)
			a.pendingSelect = ""
		}
		a.refreshActivity()
		a.updateSessionCount()
		return a, nil

	case ProfileSavedMsg:
		a.pendingSelect = msg.Profile.ID
		if msg.IsNew {
			a.statusBar.SetMessage("Site added: "+msg.Profile.DisplayName(), false)
			return a, a.loadProfiles()
		}
		a.statusBar.SetMessage("Site updated: "+msg.Profile.DisplayName(), false)
		// Rules and scripts are compiled when a window opens.
		if a.isRunning(msg.Profile.ID) {
			return a, tea.Batch(a.loadProfiles(), a.openSession(msg.Profile, true))
		}
		return a, a.loadProfiles()

	case ProfileDeletedMsg:
		a.statusBar.SetMessage("Site deleted: "+msg.Nickname, false)
		return a, a.loadProfiles()

	case ImportedMsg:
		a.pendingSelect = msg.Profile.ID
		a.rememberPath(msg.Source)
		a.statusBar.SetMessage("Imported: "+msg.Profile.DisplayName(), false)
		return a, a.loadProfiles()

	case ExportedMsg:
		a.rememberPath(msg.Path)
		a.statusBar.SetMessage("Exported to "+msg.Path, false)
		return a, nil

	case ListDownloadedMsg:
		delete(a.fetches, msg.ProfileID)
		if msg.Err != nil {
			a.statusBar.SetMessage("Blocklist failed: "+msg.Err.Error(), true)
			return a, nil
		}
		a.statusBar.SetMessage(fmt.Sprintf("Blocklist added: %d rules", msg.Rules), false)
		cmds := []tea.Cmd{a.loadProfiles()}
		if a.isRunning(msg.ProfileID) {
			if p := a.findProfile(msg.ProfileID); p != nil {
				// Reload the fresh copy so the new list is compiled in.
				cmds = append(cmds, a.reopenFromStore(p.ID))
			}
		}
		return a, tea.Batch(cmds...)

	case SessionOpenedMsg:
		s, ok := a.engine.Get(msg.ProfileID)
		if !ok {
			return a, nil
		}
		if !msg.Restarted {
			if _, watched := a.watching[msg.ProfileID]; !watched {
				a.eventLog(msg.ProfileID).Reset()
			}
		}
		a.siteList.SetRunning(msg.ProfileID, true, a.eventLog(msg.ProfileID).Blocked())
		a.updateSessionCount()
		a.refreshActivity()
		if msg.Restarted {
			a.statusBar.SetMessage("Reopened with new settings", false)
		} else {
			a.statusBar.SetMessage("Opened "+s.Profile().DisplayName(), false)
		}

		delete(a.closing, msg.ProfileID)
		ch := s.Events()
		if a.watching[msg.ProfileID] == ch {
			return a, nil
		}
		a.watching[msg.ProfileID] = ch
		return a, WaitForEvents(ch, msg.ProfileID)

	case NavigationMsg:
		l := a.eventLog(msg.ProfileID)
		for _, e := range msg.Events {
			l.Add(e)
		}
		a.siteList.SetRunning(msg.ProfileID, a.isRunning(msg.ProfileID), l.Blocked())
		if a.activity.ProfileID() == msg.ProfileID {
			a.refreshActivity()
		}
		return a, WaitForEvents(msg.stream, msg.ProfileID)

	case SessionEndedMsg:
		if a.watching[msg.ProfileID] != msg.stream {
			// A replaced session; its successor has its own watcher.
			return a, nil
		}
		delete(a.watching, msg.ProfileID)
		a.siteList.SetRunning(msg.ProfileID, false, a.eventLog(msg.ProfileID).Blocked())
		a.updateSessionCount()
		if a.activity.ProfileID() == msg.ProfileID {
			a.refreshActivity()
		}
		closedHere := a.closing[msg.ProfileID]
		delete(a.closing, msg.ProfileID)
		p := a.findProfile(msg.ProfileID)
		if p == nil {
			return a, nil
		}
		a.statusBar.SetMessage("Closed "+p.DisplayName(), false)
		if closedHere {
			return a, nil
		}
		return a, a.notifyEnded(p, a.eventLog(p.ID).Blocked())

	case ErrorMsg:
		a.logger.Debug("Action failed", zap.Error(msg.Err))
		a.statusBar.SetMessage("Error: "+msg.Err.Error(), true)
		return a, nil
	}

	if a.focus == FocusActivity {
		var cmd tea.Cmd
		a.activity, cmd = a.activity.Update(msg)
		return a, cmd
	}
	return a, nil
}

// reopenFromStore restarts a window with the stored copy of its profile.
func (a App) reopenFromStore(id string) tea.Cmd {
	a.closing[id] = true
	return func() tea.Msg {
		p, err := a.store.Get(a.ctx, id)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return a.startSession(p, true)()
	}
}

func (a App) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.shutdown()
		return a, tea.Quit
	case key.Matches(msg, a.keys.Tab):
		if a.focus == FocusSites {
			a.setFocus(FocusActivity)
		} else {
			a.setFocus(FocusSites)
		}
		return a, nil
	case key.Matches(msg, a.keys.Help):
		a.statusBar.ToggleHelp()
		return a, nil
	case key.Matches(msg, a.keys.Add):
		a.showAddDialog()
		return a, nil
	case key.Matches(msg, a.keys.Import):
		a.showImportDialog()
		return a, nil
	case key.Matches(msg, a.keys.Settings):
		a.showSettings()
		return a, nil
	}

	if a.focus == FocusActivity {
		if key.Matches(msg, a.keys.Close) {
			if id := a.activity.ProfileID(); id != "" {
				return a, a.closeSession(id)
			}
		}
		var cmd tea.Cmd
		a.activity, cmd = a.activity.Update(msg)
		return a, cmd
	}
	return a.handleSiteKeys(msg)
}

func (a App) handleSiteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.siteList.HandleKey(msg.String()) {
		a.refreshActivity()
		return a, nil
	}

	p := a.siteList.SelectedProfile()
	if p == nil {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Open):
		a.statusBar.SetMessage("Opening "+p.DisplayName()+"...", false)
		return a, a.openSession(p, false)
	case key.Matches(msg, a.keys.Close):
		if !a.isRunning(p.ID) {
			a.statusBar.SetMessage(p.DisplayName()+" is not open", true)
			return a, nil
		}
		return a, a.closeSession(p.ID)
	case key.Matches(msg, a.keys.Edit):
		a.showEditForm(p)
	case key.Matches(msg, a.keys.Duplicate):
		return a, a.saveProfile(p.Duplicate(p.DisplayName()+" copy"), true)
	case key.Matches(msg, a.keys.Delete):
		a.showDeleteDialog(p)
	case key.Matches(msg, a.keys.Export):
		a.showExportDialog(p)
	case key.Matches(msg, a.keys.Download):
		a.showFetchDialog(p)
	}
	return a, nil
}

// handleDialogUpdate handles input when a dialog is open.
func (a App) handleDialogUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch a.dialogMode {
	case DialogEditSite, DialogSettings:
		return a.handleFormUpdate(msg)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if a.input.IsCancelled() {
		a.hideDialog()
		return a, nil
	}
	if !a.input.IsSubmitted() {
		return a, cmd
	}

	mode, target := a.dialogMode, a.findProfile(a.targetID)
	a.hideDialog()

	switch mode {
	case DialogAddSite:
		url := a.input.Value(0)
		if url == "" {
			a.statusBar.SetMessage(errURLRequired.Error(), true)
			return a, nil
		}
		return a, a.saveProfile(model.NewProfile(url, a.input.Value(1)), true)

	case DialogImport:
		ref := a.input.Value(0)
		if ref == "" {
			return a, nil
		}
		return a, a.importProfile(ref)

	case DialogDeleteSite, DialogExport, DialogFetchList:
		if target == nil {
			a.statusBar.SetMessage("Site no longer exists", true)
			return a, nil
		}
	}

	switch mode {
	case DialogDeleteSite:
		return a, a.deleteProfile(target)
	case DialogExport:
		path := a.input.Value(0)
		if path == "" {
			return a, nil
		}
		return a, a.exportProfile(target, path)
	case DialogFetchList:
		url := a.input.Value(0)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			a.statusBar.SetMessage("Blocklist URL must start with http:// or https://", true)
			return a, nil
		}
		a.statusBar.SetMessage("Downloading blocklist...", false)
		return a, a.fetchList(target, url)
	}
	return a, nil
}

func (a App) handleFormUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	if a.form.IsCancelled() {
		a.hideDialog()
		return a, nil
	}
	if !a.form.IsSubmitted() {
		return a, cmd
	}

	if a.dialogMode == DialogSettings {
		next, err := configFromForm(a.form, a.config)
		if err != nil {
			a.form.SetError(err.Error())
			return a, nil
		}
		if err := app.SaveConfig(a.configDir, next); err != nil {
			a.form.SetError("save config: " + err.Error())
			return a, nil
		}
		browserChanged := next.Driver != a.config.Driver || next.Headless != a.config.Headless ||
			next.BrowserPath != a.config.BrowserPath || next.BrowserFlags != a.config.BrowserFlags ||
			next.Window != a.config.Window
		*a.config = *next
		a.hideDialog()
		if browserChanged {
			a.statusBar.SetMessage("Settings saved; browser changes apply after restart", false)
		} else {
			a.statusBar.SetMessage("Settings saved", false)
		}
		return a, nil
	}

	base := a.findProfile(a.targetID)
	if base == nil {
		a.hideDialog()
		a.statusBar.SetMessage("Site no longer exists", true)
		return a, nil
	}
	p, err := profileFromForm(a.form, base)
	if err != nil {
		a.form.SetError(err.Error())
		return a, nil
	}
	a.hideDialog()
	return a, a.saveEdited(p, a.formLists)
}
