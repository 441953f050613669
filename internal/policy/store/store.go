package store

import (
	"context"

	"checkpoint/internal/policy"
)

// PolicyStore reads site policies. This service never writes them; authoring
// happens in an external surface.
type PolicyStore interface {
	FindBySite(ctx context.Context, siteID string) (*policy.SitePolicy, error)
}
