package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

const (
	defaultAuditPageSize = 100
	maxAuditPageSize     = 1000
)

// AuditPage is one newest-first page of the grocery and store change history.
// NextAfterID is the cursor for the following page, zero on the last page.
type AuditPage struct {
	Items       []domain.AuditTrailEvent `json:"items"`
	NextAfterID int64                    `json:"next_after_id,omitempty"`
}

type AuditService struct {
	trail ports.AuditTrailRepository
}

func NewAuditService(trail ports.AuditTrailRepository) *AuditService {
	return &AuditService{trail: trail}
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) (AuditPage, error) {
	if err := filter.Validate(); err != nil {
		return AuditPage{}, err
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultAuditPageSize
	case filter.Limit > maxAuditPageSize:
		filter.Limit = maxAuditPageSize
	}

	items, err := s.trail.List(ctx, filter)
	if err != nil {
		return AuditPage{}, err
	}
	page := AuditPage{Items: items}
	if page.Items == nil {
		page.Items = []domain.AuditTrailEvent{}
	}
	if len(items) == filter.Limit {
		page.NextAfterID = items[len(items)-1].ID
	}
	return page, nil
}
