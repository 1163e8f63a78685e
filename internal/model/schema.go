package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMalformedProfile is returned when a payload is not a valid profile record.
var ErrMalformedProfile = errors.New("malformed profile")

// Current field names. These are written by Encode and are load-bearing for
// files produced by earlier releases.
const (
	fieldID                       = "id"
	fieldURL                      = "url"
	fieldNickname                 = "nickname"
	fieldAllowFullscreen          = "allowFullscreen"
	fieldHideNavigation           = "hideNavigation"
	fieldDisableTextSelection     = "disableTextSelection"
	fieldAllowCookies             = "allowCookies"
	fieldAllowBackForwardGestures = "allowBackForwardGestures"
	fieldForceOrientation         = "forceOrientation"
	fieldCustomStylesheets        = "customStylesheets"
	fieldUserScripts              = "userScripts"
	fieldURLBlacklist             = "urlBlacklist"
	fieldURLWhitelist             = "urlWhitelist"
	fieldAdblockLists             = "adblockLists"
)

// record is the serialized shape of a Profile.
type record struct {
	ID                       string      `json:"id"`
	URL                      string      `json:"url"`
	Nickname                 string      `json:"nickname"`
	AllowFullscreen          bool        `json:"allowFullscreen"`
	HideNavigation           bool        `json:"hideNavigation"`
	DisableTextSelection     bool        `json:"disableTextSelection"`
	AllowCookies             bool        `json:"allowCookies"`
	AllowBackForwardGestures bool        `json:"allowBackForwardGestures"`
	ForceOrientation         Orientation `json:"forceOrientation"`
	CustomStylesheets        []string    `json:"customStylesheets"`
	UserScripts              []string    `json:"userScripts"`
	URLBlacklist             []string    `json:"urlBlacklist"`
	URLWhitelist             []string    `json:"urlWhitelist"`
	AdblockLists             []string    `json:"adblockLists"`
}

// legacyField maps a field name from an earlier schema generation onto the
// current one. transform, when set, rewrites the value.
type legacyField struct {
	name      string
	target    func(LegacyWhitelistPolicy) string
	transform func(json.RawMessage) (json.RawMessage, error)
}

var legacyFields = []legacyField{
	{
		name: "requestWhitelist",
		target: func(p LegacyWhitelistPolicy) string {
			if p == LegacyAllow {
				return fieldURLWhitelist
			}
			return fieldURLBlacklist
		},
	},
	{
		name:      "showTopBar",
		target:    func(LegacyWhitelistPolicy) string { return fieldHideNavigation },
		transform: invertBool,
	},
}

func invertBool(raw json.RawMessage) (json.RawMessage, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(!v)
}

// Encode serializes a profile using the current field names.
func Encode(p *Profile) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil profile", ErrMalformedProfile)
	}
	return json.MarshalIndent(toRecord(p), "", "  ")
}

// EncodeList serializes a whole collection as a JSON array.
func EncodeList(profiles []*Profile) ([]byte, error) {
	records := make([]record, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		records = append(records, toRecord(p))
	}
	return json.MarshalIndent(records, "", "  ")
}

func toRecord(p *Profile) record {
	orientation := p.ForceOrientation
	if orientation == "" {
		orientation = OrientationSystem
	}
	return record{
		ID:                       p.ID,
		URL:                      p.URL,
		Nickname:                 p.Nickname,
		AllowFullscreen:          p.AllowFullscreen,
		HideNavigation:           p.HideNavigation,
		DisableTextSelection:     p.DisableTextSelection,
		AllowCookies:             p.AllowCookies,
		AllowBackForwardGestures: p.AllowBackForwardGestures,
		ForceOrientation:         orientation,
		CustomStylesheets:        nonNil(p.CustomStylesheets),
		UserScripts:              nonNil(p.UserScripts),
		URLBlacklist:             nonNil(p.URLBlacklist),
		URLWhitelist:             nonNil(p.URLWhitelist),
		AdblockLists:             nonNil(p.AdblockLists),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Decoder decodes profile payloads, including those written by earlier
// releases.
type Decoder struct {
	// Policy decides where legacy requestWhitelist values end up.
	// The zero value behaves as LegacyRename.
	Policy LegacyWhitelistPolicy
}

// Decode parses one profile with the default legacy policy.
func Decode(data []byte) (*Profile, error) {
	return Decoder{}.Decode(data)
}

// DecodeList parses a JSON array of profiles with the default legacy policy.
func DecodeList(data []byte) ([]*Profile, error) {
	return Decoder{}.DecodeList(data)
}

// Decode parses one profile. Unknown fields are ignored; absent fields take
// their defaults.
func (d Decoder) Decode(data []byte) (*Profile, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedProfile)
	}
	return d.decodeFields(fields)
}

// DecodeList parses a JSON array of profiles. A single bad record fails the
// whole list.
func (d Decoder) DecodeList(data []byte) ([]*Profile, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformedProfile)
	}
	profiles := make([]*Profile, 0, len(raws))
	for i, raw := range raws {
		p, err := d.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (d Decoder) policy() LegacyWhitelistPolicy {
	if d.Policy.Valid() {
		return d.Policy
	}
	return LegacyRename
}

func (d Decoder) decodeFields(fields map[string]json.RawMessage) (*Profile, error) {
	for _, lf := range legacyFields {
		raw, ok := fields[lf.name]
		if !ok {
			continue
		}
		delete(fields, lf.name)
		target := lf.target(d.policy())
		if _, exists := fields[target]; exists {
			continue
		}
		if lf.transform != nil {
			converted, err := lf.transform(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedProfile, lf.name, err)
			}
			raw = converted
		}
		fields[target] = raw
	}

	p := &Profile{
		AllowCookies:             true,
		AllowBackForwardGestures: true,
		ForceOrientation:         OrientationSystem,
	}

	var (
		id, url, nickname *string
		orientation       *string
	)
	targets := []struct {
		name string
		dst  any
	}{
		{fieldID, &id},
		{fieldURL, &url},
		{fieldNickname, &nickname},
		{fieldAllowFullscreen, &p.AllowFullscreen},
		{fieldHideNavigation, &p.HideNavigation},
		{fieldDisableTextSelection, &p.DisableTextSelection},
		{fieldAllowCookies, &p.AllowCookies},
		{fieldAllowBackForwardGestures, &p.AllowBackForwardGestures},
		{fieldForceOrientation, &orientation},
		{fieldCustomStylesheets, &p.CustomStylesheets},
		{fieldUserScripts, &p.UserScripts},
		{fieldURLBlacklist, &p.URLBlacklist},
		{fieldURLWhitelist, &p.URLWhitelist},
		{fieldAdblockLists, &p.AdblockLists},
	}
	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedProfile, t.name, err)
		}
	}

	if url == nil {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedProfile, fieldURL)
	}
	if nickname == nil {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedProfile, fieldNickname)
	}
	p.URL = *url
	p.Nickname = *nickname

	if id != nil && *id != "" {
		p.ID = *id
	} else {
		p.ID = uuid.New().String()
	}

	if orientation != nil {
		o := Orientation(*orientation)
		if !o.Valid() {
			return nil, fmt.Errorf("%w: field %q: unknown value %q", ErrMalformedProfile, fieldForceOrientation, *orientation)
		}
		p.ForceOrientation = o
	}

	p.CustomStylesheets = nonNil(p.CustomStylesheets)
	p.UserScripts = nonNil(p.UserScripts)
	p.URLBlacklist = nonNil(p.URLBlacklist)
	p.URLWhitelist = nonNil(p.URLWhitelist)
	p.AdblockLists = nonNil(p.AdblockLists)
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
