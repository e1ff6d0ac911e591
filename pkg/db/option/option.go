package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it runs.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type SortBy struct {
	Column string
	Desc   bool
}

// WithQuerySortBy validates a caller-supplied sort column against allowed.
// Unknown columns yield an empty SortBy, which applies no ordering.
func WithQuerySortBy(column, order string, allowed map[string]bool) SortBy {
	column = strings.ToLower(strings.TrimSpace(column))
	if column == "" || !allowed[column] {
		return SortBy{}
	}
	return SortBy{
		Column: column,
		Desc:   strings.EqualFold(strings.TrimSpace(order), "desc"),
	}
}

func WithSortBy(sorts ...SortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, s := range sorts {
			if s.Column == "" {
				continue
			}
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			db = db.Order(s.Column + " " + dir)
		}
		return db
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
