// Package store persists user-entered client overrides.
package store

import (
	"context"

	"github.com/sells-group/account-intel/internal/model"
)

// Store defines the persistence interface for overrides.
type Store interface {
	// AddOverride records a new override. A later override for the same
	// client and field supersedes earlier ones.
	AddOverride(ctx context.Context, clientName, field, value string) (*model.Override, error)
	// ListOverrides returns all overrides, oldest first.
	ListOverrides(ctx context.Context) ([]model.Override, error)
	DeleteOverride(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
