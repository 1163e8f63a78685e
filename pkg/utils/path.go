// Package utils provides small helpers shared by the websmith CLI and TUI.
package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathCompleter completes file paths typed into dialogs.
type PathCompleter struct {
	// Extensions, when set, limits file suggestions to these suffixes.
	// Directories are always suggested.
	Extensions []string
	maxResults int
}

// NewPathCompleter creates a completer for files with the given extensions.
func NewPathCompleter(extensions ...string) *PathCompleter {
	return &PathCompleter{Extensions: extensions, maxResults: 10}
}

// Complete returns completion suggestions for the given input.
func (c *PathCompleter) Complete(input string) []string {
	if input == "" {
		return []string{"~/", "./", "/"}
	}

	expanded := expandHome(input)
	dir := filepath.Dir(expanded)
	prefix := filepath.Base(expanded)
	if strings.HasSuffix(input, "/") || strings.HasSuffix(input, string(filepath.Separator)) {
		dir = expanded
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	home, _ := os.UserHomeDir()
	var suggestions []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			continue
		}
		if !entry.IsDir() && !c.accepts(name) {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if strings.HasPrefix(input, "~") && home != "" {
			fullPath = "~" + strings.TrimPrefix(fullPath, home)
		}
		if entry.IsDir() {
			fullPath += "/"
		}
		suggestions = append(suggestions, fullPath)
	}

	// Directories first, then alphabetical.
	sort.Slice(suggestions, func(i, j int) bool {
		iDir := strings.HasSuffix(suggestions[i], "/")
		jDir := strings.HasSuffix(suggestions[j], "/")
		if iDir != jDir {
			return iDir
		}
		return suggestions[i] < suggestions[j]
	})

	if c.maxResults > 0 && len(suggestions) > c.maxResults {
		suggestions = suggestions[:c.maxResults]
	}
	return suggestions
}

func (c *PathCompleter) accepts(name string) bool {
	if len(c.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// expandHome expands ~ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// ExpandPath expands ~ and normalizes the path.
func ExpandPath(path string) string {
	return filepath.Clean(expandHome(path))
}

// SafeFileName turns a nickname into a file name usable for exports.
func SafeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "profile"
	}
	return b.String()
}

// ExportPath resolves an export target. An existing directory receives
// <name>.json.
func ExportPath(target, name string) string {
	path := ExpandPath(target)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, SafeFileName(name)+".json")
	}
	return path
}
