package catalog

import (
	"context"

	"github.com/shoplink/backend/internal/domain/shared"
)

// SectionRepository defines the interface for section persistence
type SectionRepository interface {
	shared.Repository[Section]

	// FindByExternalID finds a section by its external identifier
	FindByExternalID(ctx context.Context, externalID string) (*Section, error)

	// FindActive returns all active sections ordered by name
	FindActive(ctx context.Context) ([]Section, error)

	// FindChildren returns the active child sections of a parent
	FindChildren(ctx context.Context, parentExternalID string) ([]Section, error)

	// DeactivateNotIn deactivates every active section whose external ID is
	// not in the given set and returns the number of affected rows
	DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error)
}
