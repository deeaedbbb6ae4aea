package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regenpgc/trialbase/internal/errors"
)

// Page sizes for listings.
const (
	DefaultPageSize = 1000
	MaxPageSize     = 1000
)

// Page selects a zero-based page of a listing.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to valid values.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return p.Number * p.Size }

// TotalPages returns how many pages of this size hold total rows.
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// createRow inserts v and classifies any failure.
func createRow[T any](ctx context.Context, db *gorm.DB, v *T, entity string) error {
	return classify(db.WithContext(ctx).Create(v).Error, "create", entity)
}

// getRow loads the row with the given primary key.
func getRow[T any](ctx context.Context, db *gorm.DB, id string, sentinel error, entity string) (*T, error) {
	var v T
	err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(sentinel, entity, id)
	}
	if err != nil {
		return nil, classify(err, "get", entity)
	}
	return &v, nil
}

// firstRow loads the first row matching the condition.
func firstRow[T any](ctx context.Context, db *gorm.DB, sentinel error, entity, query string, args ...any) (*T, error) {
	var v T
	err := db.WithContext(ctx).Where(query, args...).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(sentinel, entity, "")
	}
	if err != nil {
		return nil, classify(err, "get", entity)
	}
	return &v, nil
}

// listRows returns one page of rows matching scope, ordered by order, and the
// total number of matching rows.
func listRows[T any](ctx context.Context, db *gorm.DB, page Page, order, entity string, scope func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	page = page.Normalize()
	var model T
	q := db.WithContext(ctx).Model(&model)
	if scope != nil {
		q = scope(q)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err, "count", entity)
	}

	var rows []T
	if err := q.Order(order).Offset(page.Offset()).Limit(page.Size).Find(&rows).Error; err != nil {
		return nil, 0, classify(err, "list", entity)
	}
	return rows, total, nil
}

// deleteRow deletes the row with the given primary key. Dependent rows go
// with it through the foreign key cascade.
func deleteRow[T any](ctx context.Context, db *gorm.DB, id string, sentinel error, entity string) error {
	var model T
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&model)
	if result.Error != nil {
		return classify(result.Error, "delete", entity)
	}
	if result.RowsAffected == 0 {
		return notFound(sentinel, entity, id)
	}
	return nil
}

// countRows counts every row of T.
func countRows[T any](ctx context.Context, db *gorm.DB, entity string) (int64, error) {
	var model T
	var n int64
	if err := db.WithContext(ctx).Model(&model).Count(&n).Error; err != nil {
		return 0, classify(err, "count", entity)
	}
	return n, nil
}
