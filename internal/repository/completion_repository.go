package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskstreak/internal/model"
)

// CompletionRepository stores the append-only completion history.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Append(ctx context.Context, c *model.Completion) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return model.Persistence("append completion", err)
	}
	return nil
}

// CountCompletions counts entries completed in [from, to). taskID 0 counts
// every task.
func (r *CompletionRepository) CountCompletions(ctx context.Context, taskID uint, from, to time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Completion{}).
		Where("completed_at >= ? AND completed_at < ?", from.UTC(), to.UTC())
	if taskID != 0 {
		q = q.Where("task_id = ?", taskID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, model.Persistence("count completions", err)
	}
	return n, nil
}

// ListByTask returns a task's history, newest first. limit <= 0 returns all.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID uint, limit int) ([]model.Completion, error) {
	q := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("completed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Completion
	if err := q.Find(&out).Error; err != nil {
		return nil, model.Persistence(fmt.Sprintf("list completions for task %d", taskID), err)
	}
	return out, nil
}
