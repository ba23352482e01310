package sqlite

import (
	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

type groceryModel struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;not null"`
}

func (groceryModel) TableName() string {
	return "groceries"
}

type GroceryRepository struct {
	*entityStore[domain.Grocery, groceryModel]
}

var _ ports.Repository[domain.Grocery] = (*GroceryRepository)(nil)

func NewGroceryRepository(db *gormsqlite.DB) *GroceryRepository {
	return &GroceryRepository{entityStore: &entityStore[domain.Grocery, groceryModel]{
		db: db,
		codec: entityCodec[domain.Grocery, groceryModel]{
			aggregate: domain.AggregateGrocery,
			toModel: func(g domain.Grocery) groceryModel {
				return groceryModel{ID: g.ID, Name: g.Name}
			},
			toDomain: func(m groceryModel) domain.Grocery {
				return domain.Grocery{ID: m.ID, Name: m.Name}
			},
			modelID:    func(m *groceryModel) int64 { return m.ID },
			setModelID: func(m *groceryModel, id int64) { m.ID = id },
		},
	}}
}
