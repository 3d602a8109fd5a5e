package option

import (
	"time"

	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination offsets by page.Skip and fetches one extra row so callers
// can tell whether another page exists.
func ApplyPagination(page pagination.Page) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if page.Skip > 0 {
			db = db.Offset(page.Skip)
		}
		if page.Limit > 0 {
			db = db.Limit(page.Limit + 1)
		}
		return db
	})
}

// DateRange bounds column inclusively on both ends when set.
func DateRange(column string, from, to *time.Time) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where(column+" >= ?", *from)
		}
		if to != nil {
			db = db.Where(column+" <= ?", *to)
		}
		return db
	})
}
