package storage

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/validation"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

var profileMessages = map[string]string{
	"id.required":           "profile id is required",
	"id.excludesall":        "profile id cannot contain '/'",
	"name.required":         "profile name is required",
	"mode.oneof":            "mode must be local or remote",
	"accountId.required_if": "remote profiles need an account id",
}

// ProfileService manages connection profiles: the records in a repository
// and their API tokens in a secret store.
//
// The built-in local-dev profile always exists and cannot be removed.
// Removing the active profile activates local-dev again.
type ProfileService struct {
	repo    ProfileRepository
	secrets SecretStore
}

// NewProfileService creates a profile service.
func NewProfileService(repo ProfileRepository, secrets SecretStore) *ProfileService {
	return &ProfileService{repo: repo, secrets: secrets}
}

// EnsureDefault creates local-dev if missing and activates it if no
// profile is active.
func (s *ProfileService) EnsureDefault(ctx context.Context) error {
	exists, err := s.repo.Exists(ctx, models.DefaultProfileID)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.repo.Create(ctx, models.DefaultProfile()); err != nil {
			return err
		}
	}

	active, err := s.repo.GetSetting(ctx, SettingActiveProfile)
	if err != nil {
		return err
	}
	if active == "" {
		return s.repo.SetSetting(ctx, SettingActiveProfile, models.DefaultProfileID)
	}
	return nil
}

// List returns all profiles without tokens.
func (s *ProfileService) List(ctx context.Context) ([]*models.Profile, error) {
	return s.repo.List(ctx)
}

// Get returns a profile with its API token.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsRemote() {
		token, err := s.secrets.Get(id)
		if err != nil {
			return nil, err
		}
		p.APIToken = token
	}
	return p, nil
}

// Add validates and stores a new profile. Remote profiles need a token.
func (s *ProfileService) Add(ctx context.Context, p *models.Profile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	if p.IsRemote() && p.APIToken == "" {
		return errors.NewInvalidProfile("apiToken", "remote profiles need an API token")
	}

	token := p.APIToken
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	if token != "" {
		if err := s.secrets.Set(p.ID, token); err != nil {
			// Keep the store and the keyring consistent.
			_ = s.repo.Delete(ctx, p.ID)
			return err
		}
	}
	return nil
}

// Update replaces a profile. An empty token keeps the stored one.
func (s *ProfileService) Update(ctx context.Context, p *models.Profile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	switch {
	case !p.IsRemote():
		return s.secrets.Remove(p.ID)
	case p.APIToken != "":
		return s.secrets.Set(p.ID, p.APIToken)
	}
	return nil
}

// Remove deletes a profile and its token.
func (s *ProfileService) Remove(ctx context.Context, id string) error {
	if id == models.DefaultProfileID {
		return errors.NewInvalidProfile("id", "the local-dev profile cannot be removed")
	}
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewProfileNotFound(id)
	}
	if err := s.secrets.Remove(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	active, err := s.repo.GetSetting(ctx, SettingActiveProfile)
	if err != nil {
		return err
	}
	if active == id {
		return s.repo.SetSetting(ctx, SettingActiveProfile, models.DefaultProfileID)
	}
	return nil
}

// Use activates a profile.
func (s *ProfileService) Use(ctx context.Context, id string) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewProfileNotFound(id)
	}
	return s.repo.SetSetting(ctx, SettingActiveProfile, id)
}

// ActiveID returns the id of the active profile.
func (s *ProfileService) ActiveID(ctx context.Context) (string, error) {
	id, err := s.repo.GetSetting(ctx, SettingActiveProfile)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = models.DefaultProfileID
	}
	return id, nil
}

// Active returns the active profile with its token.
func (s *ProfileService) Active(ctx context.Context) (*models.Profile, error) {
	id, err := s.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Export writes all profiles as YAML. Tokens are included only when asked.
func (s *ProfileService) Export(ctx context.Context, withTokens bool) ([]byte, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.ActiveID(ctx)
	if err != nil {
		return nil, err
	}

	if withTokens {
		for _, p := range profiles {
			if p.IsRemote() {
				if p.APIToken, err = s.secrets.Get(p.ID); err != nil {
					return nil, err
				}
			}
		}
	}

	return yaml.Marshal(&models.ProfileExport{
		Version:         models.ExportVersion,
		ActiveProfileID: active,
		Profiles:        profiles,
	})
}

// Import reads a YAML export and creates or updates every profile in it.
// The exported active profile is activated when it exists. Returns the
// number of profiles imported.
func (s *ProfileService) Import(ctx context.Context, data []byte) (int, error) {
	var export models.ProfileExport
	if err := yaml.Unmarshal(data, &export); err != nil {
		return 0, errors.NewInvalidProfile("file", fmt.Sprintf("not a profile export: %v", err))
	}
	if err := validation.Check(export, profileMessages); err != nil {
		return 0, err
	}

	for _, p := range export.Profiles {
		exists, err := s.repo.Exists(ctx, p.ID)
		if err != nil {
			return 0, err
		}
		if exists {
			err = s.Update(ctx, p)
		} else {
			err = s.importNew(ctx, p)
		}
		if err != nil {
			return 0, fmt.Errorf("import profile %s: %w", p.ID, err)
		}
	}

	if export.ActiveProfileID != "" {
		if err := s.Use(ctx, export.ActiveProfileID); err != nil {
			return 0, err
		}
	}
	return len(export.Profiles), nil
}

// importNew stores a profile that may come without its token.
func (s *ProfileService) importNew(ctx context.Context, p *models.Profile) error {
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	if p.APIToken != "" {
		return s.secrets.Set(p.ID, p.APIToken)
	}
	return nil
}

func validateProfile(p *models.Profile) error {
	err := validation.Check(p, profileMessages)
	if br, ok := err.(*errors.ErrBadRequest); ok {
		return errors.NewInvalidProfile(br.Field, br.Message)
	}
	return err
}
