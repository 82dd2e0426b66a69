package repository

import (
	"context"

	"gorm.io/gorm"

	"taskstreak/internal/model"
)

// CategoryRepository reads the category labels in use.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Summaries lists every non-empty category with its task counts, ordered by
// name.
func (r *CategoryRepository) Summaries(ctx context.Context) ([]model.CategorySummary, error) {
	var out []model.CategorySummary
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category AS name, COUNT(*) AS tasks, SUM(CASE WHEN completed THEN 1 ELSE 0 END) AS completed").
		Where("category <> ''").
		Group("category").
		Order("category COLLATE NOCASE ASC").
		Scan(&out).Error
	if err != nil {
		return nil, model.Persistence("list categories", err)
	}
	return out, nil
}
