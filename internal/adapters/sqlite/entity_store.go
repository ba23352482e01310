package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"gorm.io/gorm"
)

// entityCodec maps a domain value to its gorm row and back. aggregate names
// the entity in change events ("grocery", "store").
type entityCodec[T any, M any] struct {
	aggregate  string
	toModel    func(T) M
	toDomain   func(M) T
	modelID    func(*M) int64
	setModelID func(*M, int64)
}

// entityStore implements the four repository primitives over a table with an
// AUTOINCREMENT integer key. Every mutation writes its audit and outbox rows
// in the same transaction as the row change.
type entityStore[T any, M any] struct {
	db    *gormsqlite.DB
	codec entityCodec[T, M]
}

// Save updates the row matching the entity's id, or inserts a new row with
// a datastore-assigned id when the entity is transient or its id matches no
// row. Callers never choose the id of an inserted row.
func (s *entityStore[T, M]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	model := s.codec.toModel(entity)
	id := s.codec.modelID(&model)
	if id < 0 {
		return zero, domain.ErrInvalidID
	}

	meta := domain.MutationMetadataFrom(ctx)
	var result T

	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before *M
		if id != 0 {
			var existing M
			err := tx.Where("id = ?", id).First(&existing).Error
			switch {
			case err == nil:
				before = &existing
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return fmt.Errorf("load existing %s: %w", s.codec.aggregate, err)
			}
		}

		action := domain.ActionUpdated
		if before == nil {
			action = domain.ActionCreated
			s.codec.setModelID(&model, 0)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("insert %s: %w", s.codec.aggregate, err)
			}
		} else if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("update %s: %w", s.codec.aggregate, err)
		}

		result = s.codec.toDomain(model)

		var beforeValue any
		if before != nil {
			beforeValue = s.codec.toDomain(*before)
		}
		return appendChangeEvents(tx.DB, changeEvent{
			aggregate: s.codec.aggregate,
			id:        s.codec.modelID(&model),
			action:    action,
			meta:      meta,
			before:    beforeValue,
			after:     result,
		})
	})
	if err != nil {
		return zero, err
	}

	return result, nil
}

func (s *entityStore[T, M]) FindAll(ctx context.Context) ([]T, error) {
	var models []M
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Order("id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.codec.aggregate, err)
	}

	result := make([]T, 0, len(models))
	for _, model := range models {
		result = append(result, s.codec.toDomain(model))
	}
	return result, nil
}

func (s *entityStore[T, M]) FindByID(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	var model M
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("get %s: %w", s.codec.aggregate, err)
	}

	return s.codec.toDomain(model), true, nil
}

// DeleteByID removes the row when present. A missing row is not an error;
// it reports false and writes no events.
func (s *entityStore[T, M]) DeleteByID(ctx context.Context, id int64) (bool, error) {
	meta := domain.MutationMetadataFrom(ctx)
	deleted := false

	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before M
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load %s before delete: %w", s.codec.aggregate, err)
		}

		res := tx.Where("id = ?", id).Delete(new(M))
		if res.Error != nil {
			return fmt.Errorf("delete %s: %w", s.codec.aggregate, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true

		return appendChangeEvents(tx.DB, changeEvent{
			aggregate: s.codec.aggregate,
			id:        id,
			action:    domain.ActionDeleted,
			meta:      meta,
			before:    s.codec.toDomain(before),
		})
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
