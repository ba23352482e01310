package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"gorm.io/gorm"
)

type apiKeyModel struct {
	TokenHash string    `gorm:"column:token_hash;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (apiKeyModel) TableName() string {
	return "api_keys"
}

func (m apiKeyModel) toDomain() domain.APIKey {
	return domain.APIKey{
		TokenHash: m.TokenHash,
		Name:      m.Name,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// APIKeyRepository keeps API keys in the api_keys table. It owns the key
// timestamps: created_at is set once on insert and updated_at on every write.
type APIKeyRepository struct {
	db  *gormsqlite.DB
	now func() time.Time
}

func NewAPIKeyRepository(db *gormsqlite.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *APIKeyRepository) FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, bool, error) {
	var model apiKeyModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("token_hash = ?", tokenHash).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.APIKey{}, false, nil
	}
	if err != nil {
		return domain.APIKey{}, false, fmt.Errorf("find api key: %w", err)
	}
	return model.toDomain(), true, nil
}

// Upsert inserts the key or, when the token hash is already known, renames
// and (de)activates it. Timestamps on key are ignored.
func (r *APIKeyRepository) Upsert(ctx context.Context, key domain.APIKey) (domain.APIKey, error) {
	now := r.now()
	var stored apiKeyModel

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		err := tx.Where("token_hash = ?", key.TokenHash).First(&stored).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			stored = apiKeyModel{
				TokenHash: key.TokenHash,
				Name:      key.Name,
				Active:    key.Active,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(&stored).Error
		case err != nil:
			return err
		}

		stored.Name = key.Name
		stored.Active = key.Active
		stored.UpdatedAt = now
		return tx.Model(&apiKeyModel{}).
			Where("token_hash = ?", key.TokenHash).
			Updates(map[string]any{"name": stored.Name, "active": stored.Active, "updated_at": now}).Error
	})
	if err != nil {
		return domain.APIKey{}, fmt.Errorf("upsert api key: %w", err)
	}
	return stored.toDomain(), nil
}
