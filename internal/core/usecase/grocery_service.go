package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

type GroceryService struct {
	repo ports.Repository[domain.Grocery]
}

func NewGroceryService(repo ports.Repository[domain.Grocery]) *GroceryService {
	return &GroceryService{repo: repo}
}

// Persist overwrites the grocery carrying a known ID, otherwise inserts it
// under a datastore-assigned ID, which the returned value holds.
func (s *GroceryService) Persist(ctx context.Context, grocery domain.Grocery) (domain.Grocery, error) {
	return s.repo.Save(ctx, grocery)
}

func (s *GroceryService) ListAll(ctx context.Context) ([]domain.Grocery, error) {
	return s.repo.FindAll(ctx)
}

func (s *GroceryService) GetByID(ctx context.Context, id int64) (domain.Grocery, bool, error) {
	return s.repo.FindByID(ctx, id)
}

// DeleteByID does not check for existence first; deleting an unknown ID
// reports false and leaves storage untouched.
func (s *GroceryService) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteByID(ctx, id)
}

// Update copies only the name of replacement onto the stored grocery.
func (s *GroceryService) Update(ctx context.Context, id int64, replacement domain.Grocery) (domain.Grocery, bool, error) {
	current, found, err := s.repo.FindByID(ctx, id)
	if err != nil || !found {
		return domain.Grocery{}, false, err
	}

	saved, err := s.repo.Save(ctx, current.ApplyReplacement(replacement))
	if err != nil {
		return domain.Grocery{}, false, err
	}
	return saved, true, nil
}
