package model

import (
	"slices"

	"github.com/google/uuid"
)

// Profile describes how one site is rendered and restricted.
type Profile struct {
	// ID is the unique identifier for this profile. It never changes.
	ID string
	// URL is the initial navigation target.
	URL string
	// Nickname is the display name.
	Nickname string

	AllowFullscreen          bool
	HideNavigation           bool
	DisableTextSelection     bool
	AllowCookies             bool
	AllowBackForwardGestures bool

	// ForceOrientation locks the surface orientation.
	ForceOrientation Orientation

	// CustomStylesheets are references injected in order.
	CustomStylesheets []string
	// UserScripts are references injected after the stylesheets.
	UserScripts []string
	// URLBlacklist holds literal substrings that deny a navigation.
	URLBlacklist []string
	// URLWhitelist holds literal substrings; when non-empty only matching
	// navigations are allowed.
	URLWhitelist []string
	// AdblockLists are references to newline-delimited denial lists.
	AdblockLists []string
}

// NewProfile creates a profile with default flags.
func NewProfile(url, nickname string) *Profile {
	return &Profile{
		ID:                       uuid.New().String(),
		URL:                      url,
		Nickname:                 nickname,
		AllowCookies:             true,
		AllowBackForwardGestures: true,
		ForceOrientation:         OrientationSystem,
		CustomStylesheets:        []string{},
		UserScripts:              []string{},
		URLBlacklist:             []string{},
		URLWhitelist:             []string{},
		AdblockLists:             []string{},
	}
}

// Clone creates a deep copy of the profile keeping its ID.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.CustomStylesheets = slices.Clone(p.CustomStylesheets)
	c.UserScripts = slices.Clone(p.UserScripts)
	c.URLBlacklist = slices.Clone(p.URLBlacklist)
	c.URLWhitelist = slices.Clone(p.URLWhitelist)
	c.AdblockLists = slices.Clone(p.AdblockLists)
	return &c
}

// Duplicate copies the profile under a fresh ID and a new nickname.
func (p *Profile) Duplicate(nickname string) *Profile {
	c := p.Clone()
	c.ID = uuid.New().String()
	c.Nickname = nickname
	return c
}

// DisplayName returns the nickname, falling back to the URL.
func (p *Profile) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.URL
}
