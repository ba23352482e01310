package sqlite

import (
	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

type storeModel struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name    string `gorm:"column:name;not null"`
	Address string `gorm:"column:address;not null"`
}

func (storeModel) TableName() string {
	return "stores"
}

type StoreRepository struct {
	*entityStore[domain.Store, storeModel]
}

var _ ports.Repository[domain.Store] = (*StoreRepository)(nil)

func NewStoreRepository(db *gormsqlite.DB) *StoreRepository {
	return &StoreRepository{entityStore: &entityStore[domain.Store, storeModel]{
		db: db,
		codec: entityCodec[domain.Store, storeModel]{
			aggregate: domain.AggregateStore,
			toModel: func(s domain.Store) storeModel {
				return storeModel{ID: s.ID, Name: s.Name, Address: s.Address}
			},
			toDomain: func(m storeModel) domain.Store {
				return domain.Store{ID: m.ID, Name: m.Name, Address: m.Address}
			},
			modelID:    func(m *storeModel) int64 { return m.ID },
			setModelID: func(m *storeModel, id int64) { m.ID = id },
		},
	}}
}
