package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lazyvibe/websmith/internal/model"
)

// ErrAmbiguous is returned when a nickname matches more than one profile.
var ErrAmbiguous = errors.New("ambiguous profile reference")

// Find resolves ref as a profile ID, then as a case-insensitive nickname.
func Find(ctx context.Context, s ProfileStore, ref string) (*model.Profile, error) {
	ref = strings.TrimSpace(ref)
	if p, err := s.Get(ctx, ref); err == nil {
		return p, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	profiles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var found *model.Profile
	for _, p := range profiles {
		if !strings.EqualFold(p.Nickname, ref) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguous, ref)
		}
		found = p
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return found, nil
}

// ImportNew decodes data and inserts it as a new profile. A record whose ID
// is already taken gets a fresh one so an import never overwrites.
func ImportNew(ctx context.Context, s ProfileStore, data []byte) (*model.Profile, error) {
	p, err := s.Import(ctx, data)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, p.ID); err == nil {
		p.ID = uuid.New().String()
	}
	if err := s.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
