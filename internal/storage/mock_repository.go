package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// MockRepository is an in-memory implementation of ProfileRepository for testing.
// It is thread-safe and respects context cancellation.
type MockRepository struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
	settings map[string]string

	// Test helper fields for simulating failures
	connectivityFailure bool
	persistenceFailure  bool
}

// NewMockRepository creates a new mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		profiles: make(map[string]*models.Profile),
		settings: make(map[string]string),
	}
}

// checkContext verifies the context is not cancelled or timed out.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// SimulateConnectivityFailure makes CheckConnectivity fail.
func (r *MockRepository) SimulateConnectivityFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityFailure = fail
}

// SimulatePersistenceFailure makes every write fail.
func (r *MockRepository) SimulatePersistenceFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistenceFailure = fail
}

// Create stores a new profile.
func (r *MockRepository) Create(ctx context.Context, p *models.Profile) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewDatabaseUnavailable("persistence failure (simulated)")
	}
	if _, exists := r.profiles[p.ID]; exists {
		return errors.NewProfileExists(p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.profiles[p.ID] = copyProfile(p)
	return nil
}

// Get retrieves a profile by id.
func (r *MockRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.profiles[id]
	if !exists {
		return nil, errors.NewProfileNotFound(id)
	}
	return copyProfile(p), nil
}

// Update replaces an existing profile.
func (r *MockRepository) Update(ctx context.Context, p *models.Profile) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewDatabaseUnavailable("persistence failure (simulated)")
	}
	existing, exists := r.profiles[p.ID]
	if !exists {
		return errors.NewProfileNotFound(p.ID)
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.profiles[p.ID] = copyProfile(p)
	return nil
}

// Delete removes a profile.
func (r *MockRepository) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewDatabaseUnavailable("persistence failure (simulated)")
	}
	if _, exists := r.profiles[id]; !exists {
		return errors.NewProfileNotFound(id)
	}
	delete(r.profiles, id)
	return nil
}

// List returns all profiles ordered by id.
func (r *MockRepository) List(ctx context.Context) ([]*models.Profile, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Exists checks whether a profile id is taken.
func (r *MockRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.profiles[id]
	return exists, nil
}

// GetSetting returns a setting, or "" if unset.
func (r *MockRepository) GetSetting(ctx context.Context, key string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[key], nil
}

// SetSetting stores a setting.
func (r *MockRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewDatabaseUnavailable("persistence failure (simulated)")
	}
	r.settings[key] = value
	return nil
}

// CheckConnectivity fails only when a failure is simulated.
func (r *MockRepository) CheckConnectivity(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.connectivityFailure {
		return errors.NewDatabaseUnavailable("connectivity failure (simulated)")
	}
	return nil
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.APIToken = ""
	return &c
}
