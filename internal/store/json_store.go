package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/model"
)

var (
	// ErrNotFound is returned when a profile is not found.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps failures reading or writing the store file.
	ErrPersistence = errors.New("persistence failure")
)

// FileName is the store file name inside the config directory.
const FileName = "profiles.json"

// Option configures a JSONStore.
type Option func(*JSONStore)

// WithLogger sets the logger used for swallowed persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *JSONStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLegacyPolicy sets how legacy requestWhitelist values are read.
func WithLegacyPolicy(p model.LegacyWhitelistPolicy) Option {
	return func(s *JSONStore) {
		s.decoder.Policy = p
	}
}

// JSONStore implements ProfileStore using a single JSON file.
type JSONStore struct {
	mu       sync.RWMutex
	dir      string
	path     string
	profiles []*model.Profile
	decoder  model.Decoder
	logger   *zap.Logger
}

// NewJSONStore opens the store in configDir. It never fails: a missing or
// unreadable file yields an empty collection.
func NewJSONStore(configDir string, opts ...Option) *JSONStore {
	s := &JSONStore{
		dir:      configDir,
		path:     filepath.Join(configDir, FileName),
		profiles: []*model.Profile{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

// Path returns the store file path.
func (s *JSONStore) Path() string {
	return s.path
}

// restore reads the collection. Failures leave the store empty.
func (s *JSONStore) restore() {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read profile store, starting empty",
				zap.String("path", s.path), zap.Error(fmt.Errorf("%w: %v", ErrPersistence, err)))
		}
		return
	}

	profiles, err := s.decoder.DecodeList(content)
	if err != nil {
		s.logger.Warn("Profile store is corrupt, starting empty",
			zap.String("path", s.path), zap.Error(fmt.Errorf("%w: %v", ErrPersistence, err)))
		s.quarantine()
		return
	}

	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if seen[p.ID] {
			s.logger.Warn("Dropping profile with duplicate id", zap.String("id", p.ID))
			continue
		}
		seen[p.ID] = true
		s.profiles = append(s.profiles, p)
	}
}

// quarantine moves a corrupt store file aside so the next persist does not
// overwrite it.
func (s *JSONStore) quarantine() {
	backup := s.path + ".corrupt"
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.Warn("Failed to move corrupt profile store aside", zap.Error(err))
		return
	}
	s.logger.Info("Moved corrupt profile store aside", zap.String("backup", backup))
}

// persist writes the whole collection atomically. Callers hold s.mu.
func (s *JSONStore) persist() {
	if err := s.write(); err != nil {
		s.logger.Error("Failed to persist profiles", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *JSONStore) write() error {
	content, err := model.EncodeList(s.profiles)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Close is a no-op; every mutation is already durable.
func (s *JSONStore) Close() error {
	return nil
}

// List returns all profiles in display order.
func (s *JSONStore) List(_ context.Context) ([]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Profile, len(s.profiles))
	for i, p := range s.profiles {
		result[i] = p.Clone()
	}
	return result, nil
}

// Get retrieves a profile by ID.
func (s *JSONStore) Get(_ context.Context, id string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.profiles[i].Clone(), nil
	}
	return nil, ErrNotFound
}

// Upsert replaces in place or appends, then persists.
func (s *JSONStore) Upsert(_ context.Context, p *model.Profile) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: profile without id", model.ErrMalformedProfile)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		s.profiles[i] = p.Clone()
	} else {
		s.profiles = append(s.profiles, p.Clone())
	}
	s.persist()
	return nil
}

// Remove deletes by ID and persists. Absent IDs are ignored.
func (s *JSONStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	s.persist()
	return nil
}

// Export encodes one profile.
func (s *JSONStore) Export(_ context.Context, p *model.Profile) ([]byte, error) {
	return model.Encode(p)
}

// Import decodes one profile without inserting it.
func (s *JSONStore) Import(_ context.Context, data []byte) (*model.Profile, error) {
	return s.decoder.Decode(data)
}

func (s *JSONStore) indexOf(id string) int {
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			return i
		}
	}
	return -1
}

var _ ProfileStore = (*JSONStore)(nil)
