package specification

import "gorm.io/gorm"

// Specification narrows a chunk query. Implementations compose in the order
// they are applied.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// All applies specs in order.
func All(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}
