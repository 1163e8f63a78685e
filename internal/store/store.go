// Package store provides profile persistence for websmith.
package store

import (
	"context"

	"github.com/lazyvibe/websmith/internal/model"
)

// ProfileStore defines the interface for profile persistence.
//
// Callers are expected to serialize mutations. Every successful Upsert or
// Remove writes the whole collection; write failures are logged and never
// returned.
type ProfileStore interface {
	// List returns copies of all profiles in display order.
	List(ctx context.Context) ([]*model.Profile, error)
	// Get retrieves a profile by its ID.
	Get(ctx context.Context, id string) (*model.Profile, error)
	// Upsert replaces the profile with the same ID in place, or appends it.
	Upsert(ctx context.Context, p *model.Profile) error
	// Remove deletes a profile by its ID. Removing an absent ID is a no-op.
	Remove(ctx context.Context, id string) error
	// Export encodes a single profile for sharing.
	Export(ctx context.Context, p *model.Profile) ([]byte, error)
	// Import decodes a single profile. It does not insert it.
	Import(ctx context.Context, data []byte) (*model.Profile, error)
	// Close releases any resources held by the store.
	Close() error
}
