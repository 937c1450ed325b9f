package storage

import (
	"context"

	"github.com/canonica-labs/d1bridge/pkg/models"
)

// SettingActiveProfile is the settings key holding the active profile id.
const SettingActiveProfile = "active_profile"

// ProfileRepository persists connection profiles and settings.
// API tokens are never passed to a repository.
//
// Implementations must be safe for concurrent use and respect context
// cancellation.
type ProfileRepository interface {
	// Create stores a new profile. Fails if the id is taken.
	Create(ctx context.Context, p *models.Profile) error

	// Get retrieves a profile by id.
	Get(ctx context.Context, id string) (*models.Profile, error)

	// Update replaces an existing profile, keeping its creation time.
	Update(ctx context.Context, p *models.Profile) error

	// Delete removes a profile by id.
	Delete(ctx context.Context, id string) error

	// List returns all profiles ordered by id. Never nil.
	List(ctx context.Context) ([]*models.Profile, error)

	// Exists checks whether a profile id is taken.
	Exists(ctx context.Context, id string) (bool, error)

	// GetSetting returns a setting, or "" if unset.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting stores a setting.
	SetSetting(ctx context.Context, key, value string) error

	// CheckConnectivity verifies the store is reachable.
	CheckConnectivity(ctx context.Context) error
}
