package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

type StoreService struct {
	repo ports.Repository[domain.Store]
}

func NewStoreService(repo ports.Repository[domain.Store]) *StoreService {
	return &StoreService{repo: repo}
}

func (s *StoreService) Persist(ctx context.Context, store domain.Store) (domain.Store, error) {
	return s.repo.Save(ctx, store)
}

func (s *StoreService) ListAll(ctx context.Context) ([]domain.Store, error) {
	return s.repo.FindAll(ctx)
}

func (s *StoreService) GetByID(ctx context.Context, id int64) (domain.Store, bool, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *StoreService) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteByID(ctx, id)
}

func (s *StoreService) Update(ctx context.Context, id int64, replacement domain.Store) (domain.Store, bool, error) {
	current, found, err := s.repo.FindByID(ctx, id)
	if err != nil || !found {
		return domain.Store{}, false, err
	}

	saved, err := s.repo.Save(ctx, current.ApplyReplacement(replacement))
	if err != nil {
		return domain.Store{}, false, err
	}
	return saved, true, nil
}
