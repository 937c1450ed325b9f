package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// SQLRepository implements ProfileRepository on the state store.
type SQLRepository struct {
	db *DB
}

// NewSQLRepository creates a new repository on db.
func NewSQLRepository(db *DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const profileColumns = `id, name, mode, description, account_id, database_id, created_at, updated_at`

// Create stores a new profile.
func (r *SQLRepository) Create(ctx context.Context, p *models.Profile) error {
	exists, err := r.Exists(ctx, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return errors.NewProfileExists(p.ID)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`),
		p.ID, p.Name, p.Mode, p.Description, p.AccountID, p.DatabaseID,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// Get retrieves a profile by id.
func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = $1`), id)
	p, err := scanProfile(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewProfileNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Update replaces an existing profile.
func (r *SQLRepository) Update(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles
		SET name = $2, mode = $3, description = $4, account_id = $5, database_id = $6, updated_at = $7
		WHERE id = $1`),
		p.ID, p.Name, p.Mode, p.Description, p.AccountID, p.DatabaseID, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewProfileNotFound(p.ID)
	}
	p.UpdatedAt = now
	return nil
}

// Delete removes a profile.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM profiles WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewProfileNotFound(id)
	}
	return nil
}

// List returns all profiles ordered by id.
func (r *SQLRepository) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Exists checks whether a profile id is taken.
func (r *SQLRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM profiles WHERE id = $1`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return n > 0, nil
}

// GetSetting returns a setting, or "" if unset.
func (r *SQLRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT value FROM settings WHERE key = $1`), key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a setting.
func (r *SQLRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// CheckConnectivity verifies the store is reachable.
func (r *SQLRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.NewDatabaseUnavailable(err.Error())
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	var p models.Profile
	var created, updated string
	if err := s.Scan(&p.ID, &p.Name, &p.Mode, &p.Description, &p.AccountID, &p.DatabaseID, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &p, nil
}
