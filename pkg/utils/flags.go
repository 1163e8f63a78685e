package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// BrowserFlag is one Chromium command-line switch.
type BrowserFlag struct {
	Name  string
	Value string
}

// ParseBrowserFlags parses a switch string such as
// `--lang=fr --disable-gpu "--user-agent=Mozilla/5.0 (X11)"`.
// Quoting and escapes follow POSIX shell rules; bare switches have an
// empty Value.
func ParseBrowserFlags(input string) ([]BrowserFlag, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	tokens, err := shlex.Split(input)
	if err != nil {
		return nil, fmt.Errorf("browser flags: %w", err)
	}

	flags := make([]BrowserFlag, 0, len(tokens))
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, "-") {
			return nil, errors.New("browser flag must start with '-': " + tok)
		}
		name, value, _ := strings.Cut(strings.TrimLeft(tok, "-"), "=")
		if name == "" {
			return nil, errors.New("empty browser flag: " + tok)
		}
		flags = append(flags, BrowserFlag{Name: name, Value: value})
	}
	return flags, nil
}
