package ports

import (
	"context"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

// APIKeyRepository stores API keys by token hash. Upsert returns the key as
// stored, with the timestamps the store assigned.
type APIKeyRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, bool, error)
	Upsert(ctx context.Context, key domain.APIKey) (domain.APIKey, error)
}
