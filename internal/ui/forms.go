package ui

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/ui/components/editor"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// Profile form labels.
const (
	labelURL         = "URL"
	labelNickname    = "Nickname"
	labelFullscreen  = "Allow fullscreen"
	labelHideNav     = "Hide navigation"
	labelNoSelect    = "Disable text selection"
	labelCookies     = "Cookies"
	labelGestures    = "Back/forward gestures"
	labelOrientation = "Orientation"
	labelStylesheets = "Stylesheets"
	labelScripts     = "User scripts"
	labelBlacklist   = "Blocked URLs"
	labelWhitelist   = "Allowed URLs only"
	labelAdblock     = "Adblock lists"
)

// Settings form labels.
const (
	labelDriver       = "Driver"
	labelHeadless     = "Headless"
	labelBrowserPath  = "Browser path"
	labelBrowserFlags = "Browser flags"
	labelWidth        = "Window width"
	labelHeight       = "Window height"
	labelLegacy       = "requestWhitelist means"
	labelDesktop      = "Desktop notifications"
	labelWebhook      = "Webhook URL"
)

var errURLRequired = errors.New("URL is required")

func orientationOptions() []string {
	opts := make([]string, len(model.Orientations))
	for i, o := range model.Orientations {
		opts[i] = string(o)
	}
	return opts
}

// profileFields lays a profile out over the two editor columns: display
// settings on the left, injection and rules on the right.
func profileFields(p *model.Profile) []editor.Field {
	toggle := func(label string, on bool) editor.Field {
		return editor.Field{Label: label, Type: editor.InputToggle, Value: strconv.FormatBool(on)}
	}
	lines := func(label, placeholder string, entries []string) editor.Field {
		return editor.Field{
			Label:       label,
			Placeholder: placeholder,
			Type:        editor.InputTextArea,
			Value:       utils.FormatLines(entries),
			Column:      1,
		}
	}

	fields := []editor.Field{
		{Label: labelURL, Placeholder: "https://example.com", Value: p.URL, Header: "Site"},
		{Label: labelNickname, Placeholder: "Example", Value: p.Nickname},
		toggle(labelFullscreen, p.AllowFullscreen),
		toggle(labelHideNav, p.HideNavigation),
		toggle(labelNoSelect, p.DisableTextSelection),
		toggle(labelCookies, p.AllowCookies),
		toggle(labelGestures, p.AllowBackForwardGestures),
		{Label: labelOrientation, Type: editor.InputChoice, Options: orientationOptions(), Value: string(p.ForceOrientation)},
		lines(labelStylesheets, "~/styles/dark.css", p.CustomStylesheets),
		lines(labelScripts, "https://example.com/tweak.js", p.UserScripts),
		lines(labelBlacklist, "doubleclick.net", p.URLBlacklist),
		lines(labelWhitelist, "example.com", p.URLWhitelist),
		lines(labelAdblock, "~/lists/easylist.txt", p.AdblockLists),
	}
	fields[2].Header = "Display"
	fields[8].Header = "Injection (one per line)"
	fields[10].Header = "Rules (one per line)"
	return fields
}

// profileFromForm applies the form to a copy of base. The ID is kept.
func profileFromForm(f editor.Model, base *model.Profile) (*model.Profile, error) {
	url := strings.TrimSpace(f.Value(labelURL))
	if url == "" {
		return nil, errURLRequired
	}
	orientation := model.Orientation(f.Value(labelOrientation))
	if !orientation.Valid() {
		return nil, fmt.Errorf("unknown orientation %q", orientation)
	}

	p := base.Clone()
	p.URL = url
	p.Nickname = strings.TrimSpace(f.Value(labelNickname))
	p.AllowFullscreen = f.Bool(labelFullscreen)
	p.HideNavigation = f.Bool(labelHideNav)
	p.DisableTextSelection = f.Bool(labelNoSelect)
	p.AllowCookies = f.Bool(labelCookies)
	p.AllowBackForwardGestures = f.Bool(labelGestures)
	p.ForceOrientation = orientation
	p.CustomStylesheets = utils.ParseLines(f.Value(labelStylesheets))
	p.UserScripts = utils.ParseLines(f.Value(labelScripts))
	p.URLBlacklist = utils.ParseLines(f.Value(labelBlacklist))
	p.URLWhitelist = utils.ParseLines(f.Value(labelWhitelist))
	p.AdblockLists = utils.ParseLines(f.Value(labelAdblock))
	return p, nil
}

// mergeAddedLists returns edited plus every entry of stored that was not
// present when the form opened, so downloads finishing mid-edit survive.
func mergeAddedLists(edited, stored, opened []string) []string {
	out := slices.Clone(edited)
	for _, ref := range stored {
		if !slices.Contains(opened, ref) && !slices.Contains(out, ref) {
			out = append(out, ref)
		}
	}
	return out
}

func settingsFields(cfg *app.Config) []editor.Field {
	return []editor.Field{
		{Label: labelDriver, Type: editor.InputChoice, Header: "Browser",
			Options: []string{string(model.DriverChromedp), string(model.DriverRod)}, Value: string(cfg.Driver)},
		{Label: labelHeadless, Type: editor.InputToggle, Value: strconv.FormatBool(cfg.Headless)},
		{Label: labelBrowserPath, Placeholder: "auto-detect", Value: cfg.BrowserPath},
		{Label: labelBrowserFlags, Placeholder: "--lang=en --disable-gpu", Value: cfg.BrowserFlags},
		{Label: labelWidth, Value: strconv.Itoa(cfg.Window.Width)},
		{Label: labelHeight, Value: strconv.Itoa(cfg.Window.Height)},
		{Label: labelLegacy, Type: editor.InputChoice, Header: "Import", Column: 1,
			Options: []string{string(model.LegacyRename), string(model.LegacyAllow)}, Value: string(cfg.LegacyWhitelistPolicy)},
		{Label: labelDesktop, Type: editor.InputToggle, Header: "Notifications", Column: 1,
			Value: strconv.FormatBool(cfg.Notifications.Desktop)},
		{Label: labelWebhook, Placeholder: "https://hooks.example/notify", Column: 1, Value: cfg.Notifications.WebhookURL},
	}
}

// configFromForm returns a validated copy of cfg with the form applied.
func configFromForm(f editor.Model, cfg *app.Config) (*app.Config, error) {
	next := *cfg
	next.RecentPaths = append([]string(nil), cfg.RecentPaths...)

	width, err := strconv.Atoi(strings.TrimSpace(f.Value(labelWidth)))
	if err != nil {
		return nil, fmt.Errorf("window width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(f.Value(labelHeight)))
	if err != nil {
		return nil, fmt.Errorf("window height: %w", err)
	}

	next.Driver = model.DriverType(f.Value(labelDriver))
	next.Headless = f.Bool(labelHeadless)
	next.BrowserPath = strings.TrimSpace(f.Value(labelBrowserPath))
	next.BrowserFlags = strings.TrimSpace(f.Value(labelBrowserFlags))
	next.Window.Width = width
	next.Window.Height = height
	next.LegacyWhitelistPolicy = model.LegacyWhitelistPolicy(f.Value(labelLegacy))
	next.Notifications.Desktop = f.Bool(labelDesktop)
	next.Notifications.WebhookURL = strings.TrimSpace(f.Value(labelWebhook))

	if next.BrowserPath != "" && !app.ValidateBrowserPath(next.BrowserPath) {
		return nil, fmt.Errorf("browser not found: %s", next.BrowserPath)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}
