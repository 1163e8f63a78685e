// Package inject assembles the script injected into every top-level page load.
package inject

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/source"
)

// DisableSelectionSnippet turns off text selection for the whole document.
const DisableSelectionSnippet = "document.documentElement.style.webkitUserSelect='none';" +
	"document.documentElement.style.userSelect='none';"

// Pipeline builds injection payloads.
type Pipeline struct {
	reader source.Reader
	logger *zap.Logger
}

// New creates a pipeline reading content through r.
func New(r source.Reader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{reader: r, logger: logger}
}

// Build returns the script for p. The order is fixed: selection suppression,
// then stylesheets, then user scripts, each in profile order. Unreadable
// references are skipped. Identical inputs give byte-identical output.
func (pl *Pipeline) Build(ctx context.Context, p *model.Profile) string {
	var b strings.Builder

	if p.DisableTextSelection {
		b.WriteString(DisableSelectionSnippet)
	}

	for _, ref := range p.CustomStylesheets {
		css, ok := pl.read(ctx, "stylesheet", ref)
		if !ok {
			continue
		}
		b.WriteString(StyleSnippet(css))
	}

	for _, ref := range p.UserScripts {
		js, ok := pl.read(ctx, "script", ref)
		if !ok {
			continue
		}
		b.WriteString(js)
		if !strings.HasSuffix(js, "\n") {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Build is a convenience for a one-off pipeline.
func Build(ctx context.Context, p *model.Profile, r source.Reader) string {
	return New(r, nil).Build(ctx, p)
}

func (pl *Pipeline) read(ctx context.Context, kind, ref string) (string, bool) {
	if pl.reader == nil {
		return "", false
	}
	data, err := pl.reader.Read(ctx, ref)
	if err != nil {
		pl.logger.Warn("Skipping unreadable "+kind, zap.String("ref", ref), zap.Error(err))
		return "", false
	}
	return string(data), true
}

var (
	newlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
	template = strings.NewReplacer(`\`, `\\`, "`", "\\`", "${", "\\${")
)

// StyleSnippet wraps css in a statement that appends a <style> element to the
// document head. Newlines become spaces and template-literal metacharacters
// are escaped.
func StyleSnippet(css string) string {
	css = template.Replace(newlines.Replace(css))
	return "var style=document.createElement('style');style.innerHTML=`" + css + "`;document.head.appendChild(style);"
}
