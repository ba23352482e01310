package ports

import "context"

// Repository is the storage contract shared by every entity type. FindByID
// reports absence through its boolean result, never through the error.
type Repository[T any] interface {
	Save(ctx context.Context, entity T) (T, error)
	FindAll(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id int64) (T, bool, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
