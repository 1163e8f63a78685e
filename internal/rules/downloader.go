package rules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/source"
)

// ListsDir is the directory under the config dir holding downloaded lists.
const ListsDir = "lists"

var (
	// ErrNotText is returned when a downloaded list is not plain text.
	ErrNotText = errors.New("adblock list is not plain text")
	// ErrEmptyList is returned when a downloaded list has no rules.
	ErrEmptyList = errors.New("adblock list has no rules")
)

// Download is the result of a successful list fetch.
type Download struct {
	// Ref is the local file reference to append to a profile's adblock lists.
	Ref string
	// Source is the URL the list was fetched from.
	Source string
	// Rules is the number of rules the list contributes.
	Rules int
}

// Downloader saves remote adblock lists locally so sessions can compile
// them without network access.
type Downloader struct {
	dir    string
	reader source.Reader
	logger *zap.Logger
}

// NewDownloader creates a downloader writing into <configDir>/lists.
func NewDownloader(configDir string, r source.Reader, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		dir:    filepath.Join(configDir, ListsDir),
		reader: r,
		logger: logger,
	}
}

// Fetch downloads url, validates it and stores it. Cancelling ctx abandons
// the fetch without leaving a file behind.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Download, error) {
	data, err := d.reader.Read(ctx, url)
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !isText(mt) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotText, mt.String())
	}
	rules := ParseList(string(data))
	if len(rules) == 0 {
		return nil, ErrEmptyList
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lists dir: %w", err)
	}
	path := filepath.Join(d.dir, uuid.New().String()+".txt")
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write list: %w", err)
	}

	d.logger.Info("Downloaded adblock list",
		zap.String("url", url), zap.String("path", path), zap.Int("rules", len(rules)))
	return &Download{Ref: path, Source: url, Rules: len(rules)}, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
