// Package source reads stylesheet, script and adblock-list content from local
// files or remote URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/pkg/utils"
)

var (
	// ErrUnreadableSource is returned when a reference cannot be read.
	ErrUnreadableSource = errors.New("unreadable content source")
	// ErrTooLarge is wrapped when content exceeds Config.MaxBytes.
	ErrTooLarge = errors.New("content too large")
)

// Reader reads the content behind a reference.
type Reader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, ref string) ([]byte, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

// Config configures a Loader.
type Config struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
	// MaxBytes caps what is read from any source. Zero means unlimited.
	MaxBytes int64
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		Retries:      3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		UserAgent:    "websmith/1.0",
		MaxBytes:     16 << 20,
	}
}

// Loader reads references from the filesystem, file:// URLs and http(s) URLs.
type Loader struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
}

// NewLoader creates a loader. HTTP requests go through a retrying transport.
func NewLoader(cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = leveledLogger{logger.Named("http").Sugar()}

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Loader{http: client, cfg: cfg, logger: logger}
}

// Read returns the content behind ref. Every failure wraps ErrUnreadableSource.
func (l *Loader) Read(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnreadableSource)
	}

	switch {
	case IsRemote(ref):
		return l.readRemote(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, ref, err)
		}
		return l.readFile(u.Path)
	default:
		return l.readFile(utils.ExpandPath(ref))
	}
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer f.Close()
	data, err := l.readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableSource, path, err)
	}
	return data, nil
}

// readRemote streams the body so MaxBytes bounds memory, not just the result.
func (l *Loader) readRemote(ctx context.Context, ref string) ([]byte, error) {
	resp, err := l.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, ref, err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnreadableSource, ref, resp.StatusCode())
	}
	body, err := l.readLimited(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableSource, ref, err)
	}
	l.logger.Debug("Fetched remote source", zap.String("url", ref), zap.Int("bytes", len(body)))
	return body, nil
}

// readLimited reads at most MaxBytes+1 bytes and fails past the limit.
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	if l.cfg.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, l.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > l.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.cfg.MaxBytes)
	}
	return body, nil
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// leveledLogger routes retryablehttp logging into zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
var _ Reader = (*Loader)(nil)
