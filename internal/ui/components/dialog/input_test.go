package dialog

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(d InputDialog, s string) InputDialog {
	for _, r := range s {
		d, _ = d.Update(runes(string(r)))
	}
	return d
}

func TestTypingAndFocus(t *testing.T) {
	d := NewInputDialog("Add Site", []InputField{
		{Label: "URL"},
		{Label: "Nickname", Value: "preset"},
	})
	d = typeText(d, "https://a.com")
	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyTab})
	d = typeText(d, "!")

	assert.Equal(t, []string{"https://a.com", "preset!"}, d.Values())
	assert.Equal(t, "https://a.com", d.Value(0))
	assert.Equal(t, "", d.Value(5))

	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	d = typeText(d, "x")
	assert.Equal(t, "preset!x", d.Value(1))
}

func TestSubmitCancelAndReset(t *testing.T) {
	d := NewInputDialog("Export", []InputField{{Label: "File"}})
	d = typeText(d, "out.json")
	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, d.IsSubmitted())

	d.Reset()
	assert.False(t, d.IsSubmitted())
	assert.Equal(t, "", d.Value(0))

	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, d.IsCancelled())
}

func TestConfirmDialog(t *testing.T) {
	d := NewConfirmDialog("Delete Site", "Delete news?")
	assert.Contains(t, d.View(), "Delete news?")

	d, _ = d.Update(runes("x"))
	assert.False(t, d.IsSubmitted())
	assert.False(t, d.IsCancelled())

	yes, _ := d.Update(runes("y"))
	assert.True(t, yes.IsSubmitted())

	no, _ := d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, no.IsCancelled())
	assert.Empty(t, no.Values())
}

func TestOptionSuggestions(t *testing.T) {
	d := NewInputDialog("Open", []InputField{{Label: "Site", Options: []string{"news", "mail", "newsletter"}}})
	d = typeText(d, "ne")
	assert.Equal(t, []string{"news", "newsletter"}, d.suggestions)

	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "newsletter", d.Value(0))
	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "news", d.Value(0))

	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, d.IsCancelled())
	assert.Empty(t, d.suggestions)
}

func TestMatchOptionsFallsBackToSubstring(t *testing.T) {
	opts := []string{"alpha", "beta", "alphabet"}
	assert.Equal(t, []string{"alpha", "alphabet"}, matchOptions(opts, "AL"))
	assert.Equal(t, []string{"alpha", "alphabet"}, matchOptions(opts, "pha"))
	assert.Equal(t, []string{"beta"}, matchOptions(opts, "bet"))
	assert.Equal(t, opts, matchOptions(opts, ""))
	assert.Empty(t, matchOptions(opts, "zzz"))
}

func TestPathSuggestionsHonourExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.txt"), []byte(""), 0o644))

	d := NewInputDialog("Import", []InputField{{Label: "File", EnablePathComp: true, PathExtensions: []string{".json"}}})
	d = typeText(d, dir+string(filepath.Separator)+"si")
	require.NotEmpty(t, d.suggestions)
	for _, s := range d.suggestions {
		assert.NotContains(t, s, "site.txt")
	}
}
