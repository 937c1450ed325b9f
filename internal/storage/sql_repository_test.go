package storage

import (
	"context"
	"testing"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// repositories returns every ProfileRepository implementation under test.
func repositories(t *testing.T) map[string]ProfileRepository {
	return map[string]ProfileRepository{
		"sql":  NewSQLRepository(newTestDB(t)),
		"mock": NewMockRepository(),
	}
}

func TestProfileRepository_CRUD(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			p := &models.Profile{ID: "prod", Name: "Production", Mode: models.ModeRemote, AccountID: "acc", DatabaseID: "db"}
			if err := repo.Create(ctx, p); err != nil {
				t.Fatalf("Create() error: %v", err)
			}

			err := repo.Create(ctx, &models.Profile{ID: "prod", Name: "Again", Mode: models.ModeLocal})
			if _, ok := err.(*errors.ErrProfileExists); !ok {
				t.Errorf("duplicate Create() error = %v", err)
			}

			got, err := repo.Get(ctx, "prod")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.Name != "Production" || got.AccountID != "acc" || got.CreatedAt.IsZero() {
				t.Errorf("Get() = %+v", got)
			}

			got.Name = "Prod"
			if err := repo.Update(ctx, got); err != nil {
				t.Fatalf("Update() error: %v", err)
			}
			again, _ := repo.Get(ctx, "prod")
			if again.Name != "Prod" {
				t.Errorf("Update() not applied: %+v", again)
			}

			if err := repo.Create(ctx, &models.Profile{ID: "a-first", Name: "A", Mode: models.ModeLocal}); err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			list, err := repo.List(ctx)
			if err != nil || len(list) != 2 || list[0].ID != "a-first" {
				t.Errorf("List() = %v, %v", list, err)
			}

			if err := repo.Delete(ctx, "prod"); err != nil {
				t.Fatalf("Delete() error: %v", err)
			}
			if _, err := repo.Get(ctx, "prod"); err == nil {
				t.Error("deleted profile still found")
			}
			if _, ok := repo.Delete(ctx, "prod").(*errors.ErrProfileNotFound); !ok {
				t.Error("deleting a missing profile should report not found")
			}
			if _, ok := repo.Update(ctx, &models.Profile{ID: "ghost", Name: "G", Mode: models.ModeLocal}).(*errors.ErrProfileNotFound); !ok {
				t.Error("updating a missing profile should report not found")
			}
		})
	}
}

func TestProfileRepository_Settings(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if v, err := repo.GetSetting(ctx, SettingActiveProfile); err != nil || v != "" {
				t.Errorf("unset GetSetting() = %q, %v", v, err)
			}
			if err := repo.SetSetting(ctx, SettingActiveProfile, "one"); err != nil {
				t.Fatalf("SetSetting() error: %v", err)
			}
			if err := repo.SetSetting(ctx, SettingActiveProfile, "two"); err != nil {
				t.Fatalf("SetSetting() overwrite error: %v", err)
			}
			if v, _ := repo.GetSetting(ctx, SettingActiveProfile); v != "two" {
				t.Errorf("GetSetting() = %q", v)
			}
			if err := repo.CheckConnectivity(ctx); err != nil {
				t.Errorf("CheckConnectivity() error: %v", err)
			}
		})
	}
}

func TestMockRepository_SimulatedFailures(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()

	repo.SimulateConnectivityFailure(true)
	if err := repo.CheckConnectivity(ctx); err == nil {
		t.Error("expected connectivity failure")
	}

	repo.SimulatePersistenceFailure(true)
	if err := repo.Create(ctx, &models.Profile{ID: "x", Name: "X", Mode: models.ModeLocal}); err == nil {
		t.Error("expected persistence failure")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := repo.List(cancelled); err == nil {
		t.Error("expected context error")
	}
}
