package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lazyvibe/websmith/internal/inject"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mapReader map[string]string

func (m mapReader) Read(_ context.Context, ref string) ([]byte, error) {
	if s, ok := m[ref]; ok {
		return []byte(s), nil
	}
	return nil, source.ErrUnreadableSource
}

type recordingController struct {
	calls []string
}

func (c *recordingController) Lock(_ context.Context, l OrientationLock) error {
	c.calls = append(c.calls, "lock:"+l.String())
	return nil
}

func (c *recordingController) Unlock(context.Context) error {
	c.calls = append(c.calls, "unlock")
	return nil
}

func TestDerivedFlags(t *testing.T) {
	ctx := context.Background()
	p := model.NewProfile("https://a.com", "A")

	s := New(ctx, p, nil, nil)
	assert.Equal(t, "https://a.com", s.InitialURL())
	assert.True(t, s.ChromeVisible())
	assert.False(t, s.Fullscreen())
	assert.Equal(t, LockNone, s.OrientationLock())
	assert.True(t, s.CookiesEnabled())
	assert.True(t, s.GesturesEnabled())
	assert.Equal(t, "", s.Script())

	p.HideNavigation = true
	p.AllowCookies = false
	p.AllowBackForwardGestures = false
	p.ForceOrientation = model.OrientationLandscape
	s = New(ctx, p, nil, nil)
	assert.False(t, s.ChromeVisible())
	assert.True(t, s.Fullscreen())
	assert.Equal(t, LockLandscape, s.OrientationLock())
	assert.False(t, s.CookiesEnabled())
	assert.False(t, s.GesturesEnabled())

	p.ForceOrientation = model.OrientationPortrait
	p.AllowFullscreen = true
	s = New(ctx, p, nil, nil)
	assert.True(t, s.Fullscreen())
	assert.Equal(t, LockPortrait, s.OrientationLock())
}

func TestSessionComposesRulesAndScript(t *testing.T) {
	ctx := context.Background()
	p := model.NewProfile("https://a.com", "A")
	p.URLBlacklist = []string{"ads."}
	p.AdblockLists = []string{"list"}
	p.DisableTextSelection = true
	p.UserScripts = []string{"s.js"}
	r := mapReader{"list": "! c\ntracker.\n", "s.js": "go();\n"}

	s := New(ctx, p, r, nil)
	assert.Equal(t, []string{"ads.", "tracker."}, s.Rules().Denials())
	assert.Equal(t, rules.Deny, s.Decide("https://tracker.io"))
	assert.Equal(t, rules.Allow, s.Decide("https://a.com/page"))
	assert.Equal(t, inject.DisableSelectionSnippet+"go();\n", s.Script())
}

func TestSessionIsolatedFromProfileEdits(t *testing.T) {
	p := model.NewProfile("https://a.com", "A")
	s := New(context.Background(), p, nil, nil)
	p.URL = "https://b.com"
	p.HideNavigation = true
	assert.Equal(t, "https://a.com", s.InitialURL())
	assert.True(t, s.ChromeVisible())
}

func TestLifecycleLocksAndReleases(t *testing.T) {
	ctx := context.Background()
	p := model.NewProfile("https://a.com", "A")
	p.ForceOrientation = model.OrientationPortrait
	ctrl := &recordingController{}

	s := New(ctx, p, nil, nil)
	require.NoError(t, s.Start(ctx, ctrl))
	assert.ErrorIs(t, s.Start(ctx, ctrl), ErrAlreadyStarted)
	require.NoError(t, s.End(ctx))
	require.NoError(t, s.End(ctx))

	assert.Equal(t, []string{"lock:portrait", "unlock"}, ctrl.calls)
}

func TestLifecycleSystemOrientationNeverLocks(t *testing.T) {
	ctx := context.Background()
	ctrl := &recordingController{}
	s := New(ctx, model.NewProfile("https://a.com", "A"), nil, nil)

	require.NoError(t, s.Start(ctx, ctrl))
	require.NoError(t, s.End(ctx))
	assert.Empty(t, ctrl.calls)
}

func TestEndWithoutStart(t *testing.T) {
	ctx := context.Background()
	p := model.NewProfile("https://a.com", "A")
	p.ForceOrientation = model.OrientationLandscape
	s := New(ctx, p, nil, nil)
	assert.NoError(t, s.End(ctx))
	assert.NoError(t, s.Start(ctx, nil))
	assert.NoError(t, s.End(ctx))
}

func TestLockFor(t *testing.T) {
	assert.Equal(t, LockNone, LockFor(model.OrientationSystem))
	assert.Equal(t, LockNone, LockFor(""))
	assert.Equal(t, LockPortrait, LockFor(model.OrientationPortrait))
	assert.Equal(t, LockLandscape, LockFor(model.OrientationLandscape))
	assert.Equal(t, "none", LockNone.String())
}
