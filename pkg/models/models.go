// Package models provides shared data models for the d1bridge public API
// and for profile files.
package models

import (
	"time"

	"github.com/canonica-labs/d1bridge/internal/result"
)

// Connection modes of a profile.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// DefaultProfileID is the built-in local profile. It cannot be removed.
const DefaultProfileID = "local-dev"

// ExportVersion is the version written into profile export files.
const ExportVersion = "1.0"

// Outcome is the envelope every gateway response is wrapped in.
// Success=false implies Error is set and Data is absent.
type Outcome struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ModeInfo is the capability probe response.
type ModeInfo struct {
	Local      bool `json:"local"`
	Remote     bool `json:"remote"`
	HasBinding bool `json:"hasBinding"`
}

// QueryRequest is the API request for executing a query.
type QueryRequest struct {
	SQL string `json:"sql" validate:"required"`
}

// RowWriteRequest is the body of the row editor's insert, update and delete.
type RowWriteRequest struct {
	Data  *result.Row `json:"data,omitempty"`
	Where string      `json:"where,omitempty"`
}

// TableSchema is the describe-table response.
type TableSchema struct {
	TableName string        `json:"tableName"`
	Columns   []*result.Row `json:"columns"`
}

// RowPage is one page of a table, in canonical form.
type RowPage struct {
	result.CanonicalQueryResult
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// HealthResponse is the gateway health response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Profile is a saved connection the CLI can activate.
// APIToken is kept in the keyring, never in the state store.
type Profile struct {
	ID          string    `json:"id" yaml:"id" validate:"required,max=64,excludesall=/"`
	Name        string    `json:"name" yaml:"name" validate:"required,max=255"`
	Mode        string    `json:"mode" yaml:"mode" validate:"required,oneof=local remote"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	AccountID   string    `json:"accountId,omitempty" yaml:"accountId,omitempty" validate:"required_if=Mode remote"`
	APIToken    string    `json:"apiToken,omitempty" yaml:"apiToken,omitempty"`
	DatabaseID  string    `json:"databaseId,omitempty" yaml:"databaseId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// IsRemote reports whether the profile targets the remote service.
func (p *Profile) IsRemote() bool {
	return p.Mode == ModeRemote
}

// DefaultProfile returns the built-in local profile.
func DefaultProfile() *Profile {
	return &Profile{
		ID:          DefaultProfileID,
		Name:        "Local development database",
		Mode:        ModeLocal,
		Description: "Database bound to the gateway",
	}
}

// ProfileExport is the profile file written by export and read by import.
type ProfileExport struct {
	Version         string     `json:"version" yaml:"version" validate:"required"`
	ActiveProfileID string     `json:"activeProfileId" yaml:"activeProfileId"`
	Profiles        []*Profile `json:"profiles" yaml:"profiles" validate:"required,dive"`
}
