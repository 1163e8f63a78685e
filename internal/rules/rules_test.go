package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/source"
)

// mapReader serves fixed content and fails for unknown refs.
type mapReader map[string]string

func (m mapReader) Read(_ context.Context, ref string) ([]byte, error) {
	if s, ok := m[ref]; ok {
		return []byte(s), nil
	}
	return nil, source.ErrUnreadableSource
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"block.me"}, ParseList("! comment\n\nblock.me\n"))
	assert.Equal(t, []string{"a", "b", "a"}, ParseList("  a  \r\n! x\r\nb\n\t\na"))
	assert.Empty(t, ParseList(""))
	assert.Empty(t, ParseList("! only\n   \n!also"))
}

func TestCompileOrder(t *testing.T) {
	r := mapReader{
		"one": "! header\nads.\n",
		"two": "tracker.\nads.\n",
	}
	rs := Compile(context.Background(), Input{
		Blacklist:    []string{"popup.", ""},
		AdblockLists: []string{"one", "two"},
	}, r, nil)

	assert.Equal(t, []string{"popup.", "ads.", "tracker.", "ads."}, rs.Denials())
	assert.Equal(t, 4, rs.Len())
	assert.Empty(t, rs.Allows())
}

func TestCompileSkipsUnreadableSource(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := mapReader{"good": "block.me"}

	rs := Compile(context.Background(), Input{
		Blacklist:    []string{"x."},
		AdblockLists: []string{"missing", "good"},
	}, r, zap.New(core))

	assert.Equal(t, []string{"x.", "block.me"}, rs.Denials())
	assert.Equal(t, 1, logs.FilterMessage("Skipping unreadable adblock list").Len())
}

func TestCompileCommentOnlySource(t *testing.T) {
	rs := Compile(context.Background(), Input{AdblockLists: []string{"l"}},
		mapReader{"l": "! comment\n\nblock.me\n"}, nil)
	assert.Equal(t, []string{"block.me"}, rs.Denials())
}

func TestCompileProfile(t *testing.T) {
	p := model.NewProfile("https://a.com", "A")
	p.URLBlacklist = []string{"ads."}
	p.URLWhitelist = []string{"a.com"}

	rs := CompileProfile(context.Background(), p, mapReader{}, nil)
	assert.Equal(t, []string{"ads."}, rs.Denials())
	assert.Equal(t, []string{"a.com"}, rs.Allows())
}

func TestCompileIsSnapshot(t *testing.T) {
	in := Input{Blacklist: []string{"a"}}
	rs := Compile(context.Background(), in, nil, nil)
	in.Blacklist[0] = "changed"
	assert.Equal(t, []string{"a"}, rs.Denials())
}

func TestDecideDenial(t *testing.T) {
	rs := Compile(context.Background(), Input{Blacklist: []string{"ads.", "tracker."}}, nil, nil)

	assert.Equal(t, Deny, Decide("https://ads.example.com", rs, nil))
	assert.Equal(t, Deny, Decide("https://cdn.tracker.net/p.js", rs, nil))
	assert.Equal(t, Allow, Decide("https://example.com", rs, nil))
}

func TestDecideAllowListPrecedence(t *testing.T) {
	rs := Compile(context.Background(), Input{Blacklist: []string{"a.com"}}, nil, nil)

	assert.Equal(t, Allow, Decide("https://a.com/x", rs, []string{"a.com"}))
	assert.Equal(t, Deny, Decide("https://b.com/x", rs, []string{"a.com"}))
}

func TestDecideCaseSensitive(t *testing.T) {
	rs := Compile(context.Background(), Input{Blacklist: []string{"Ads."}}, nil, nil)
	assert.Equal(t, Allow, Decide("https://ads.example.com", rs, nil))
	assert.Equal(t, Deny, Decide("https://Ads.example.com", rs, nil))

	assert.Equal(t, Deny, Decide("https://A.COM", nil, []string{"a.com"}))
}

func TestDecideContainmentNotPrefix(t *testing.T) {
	assert.Equal(t, Allow, Decide("https://www.example.com/a.com", nil, []string{"a.com"}))
}

func TestDecideEmpty(t *testing.T) {
	assert.Equal(t, Allow, Decide("https://anything", nil, nil))
	assert.Equal(t, Allow, Decide("https://anything", &RuleSet{}, []string{}))
}

func TestRuleSetDecideUsesCompiledAllowList(t *testing.T) {
	rs := Compile(context.Background(), Input{
		Blacklist: []string{"a.com"},
		Whitelist: []string{"a.com"},
	}, nil, nil)
	assert.Equal(t, Allow, rs.Decide("https://a.com/x"))
	assert.Equal(t, Deny, rs.Decide("https://b.com"))

	var nilSet *RuleSet
	assert.Equal(t, Allow, nilSet.Decide("https://b.com"))
}

// Empty entries would match every URL, so compilation drops them: an empty
// blacklist entry denies nothing and an allow-list of only empty entries
// leaves the denial set in charge.
func TestCompileDropsEmptyEntries(t *testing.T) {
	rs := Compile(context.Background(), Input{Blacklist: []string{""}}, nil, nil)
	assert.Empty(t, rs.Denials())
	assert.Equal(t, Allow, rs.Decide("https://ads.x"))

	rs = Compile(context.Background(), Input{
		Blacklist: []string{"ads.", ""},
		Whitelist: []string{""},
	}, nil, nil)
	assert.Equal(t, []string{"ads."}, rs.Denials())
	assert.Empty(t, rs.Allows())
	assert.Equal(t, Deny, rs.Decide("https://ads.x"))
	assert.Equal(t, Allow, rs.Decide("https://news.x"))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}

func TestDownloaderFetch(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(dir, mapReader{"https://lists/x.txt": "! EasyList\nads.\ntracker.\n"}, nil)

	got, err := d.Fetch(context.Background(), "https://lists/x.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rules)
	assert.Equal(t, filepath.Join(dir, ListsDir), filepath.Dir(got.Ref))

	data, err := os.ReadFile(got.Ref)
	require.NoError(t, err)
	assert.Equal(t, "! EasyList\nads.\ntracker.\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, ListsDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloaderRejectsBinary(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"
	d := NewDownloader(t.TempDir(), mapReader{"u": png}, nil)

	_, err := d.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrNotText)
}

func TestDownloaderRejectsEmpty(t *testing.T) {
	d := NewDownloader(t.TempDir(), mapReader{"u": "! nothing here\n\n"}, nil)
	_, err := d.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestDownloaderPropagatesReadError(t *testing.T) {
	d := NewDownloader(t.TempDir(), mapReader{}, nil)
	_, err := d.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, source.ErrUnreadableSource)
}

func TestDownloaderAbandoned(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(dir, mapReader{"u": "ads."}, nil)
	_, err := d.Fetch(ctx, "u")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoDirExists(t, filepath.Join(dir, ListsDir))
}
