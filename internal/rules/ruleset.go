// Package rules compiles navigation admission rules and decides whether a URL
// may be loaded.
package rules

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/source"
)

// RuleSet is an immutable compiled set of admission rules.
type RuleSet struct {
	denials []string
	allows  []string
}

// Denials returns the compiled denial entries in source order.
func (rs *RuleSet) Denials() []string {
	if rs == nil {
		return nil
	}
	return append([]string(nil), rs.denials...)
}

// Allows returns the allow-list captured at compile time.
func (rs *RuleSet) Allows() []string {
	if rs == nil {
		return nil
	}
	return append([]string(nil), rs.allows...)
}

// Len returns the number of denial entries.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.denials)
}

// Decide runs the gate against this set and its own allow-list.
func (rs *RuleSet) Decide(candidateURL string) Decision {
	if rs == nil {
		return Allow
	}
	return Decide(candidateURL, rs, rs.allows)
}

// Input holds the rule fields of a profile.
type Input struct {
	Blacklist    []string
	AdblockLists []string
	Whitelist    []string
}

// InputFromProfile extracts the rule fields of p.
func InputFromProfile(p *model.Profile) Input {
	return Input{
		Blacklist:    p.URLBlacklist,
		AdblockLists: p.AdblockLists,
		Whitelist:    p.URLWhitelist,
	}
}

// Compile builds a RuleSet. Blacklist entries come first, verbatim, followed
// by the parsed lines of each adblock source in order. A source that cannot
// be read contributes nothing. Empty entries are dropped because they would
// match every URL.
func Compile(ctx context.Context, in Input, r source.Reader, logger *zap.Logger) *RuleSet {
	if logger == nil {
		logger = zap.NewNop()
	}

	rs := &RuleSet{}
	for _, entry := range in.Blacklist {
		if entry != "" {
			rs.denials = append(rs.denials, entry)
		}
	}

	for _, ref := range in.AdblockLists {
		if r == nil {
			break
		}
		data, err := r.Read(ctx, ref)
		if err != nil {
			logger.Warn("Skipping unreadable adblock list", zap.String("ref", ref), zap.Error(err))
			continue
		}
		lines := ParseList(string(data))
		logger.Debug("Loaded adblock list", zap.String("ref", ref), zap.Int("rules", len(lines)))
		rs.denials = append(rs.denials, lines...)
	}

	for _, entry := range in.Whitelist {
		if entry != "" {
			rs.allows = append(rs.allows, entry)
		}
	}
	return rs
}

// CompileProfile compiles the rules of p.
func CompileProfile(ctx context.Context, p *model.Profile, r source.Reader, logger *zap.Logger) *RuleSet {
	return Compile(ctx, InputFromProfile(p), r, logger)
}

// ParseList parses adblock list text: one literal per line, surrounding
// whitespace trimmed, blank lines and lines starting with '!' skipped.
// Order is preserved and duplicates are kept.
func ParseList(text string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		out = append(out, line)
	}
	return out
}
