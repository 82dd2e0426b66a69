package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"taskstreak/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return model.Persistence("create task", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFound("find task", id)
		}
		return nil, model.Persistence("find task", err)
	}
	return &task, nil
}

// Save writes every column of an existing task. A task that no longer exists
// is reported as not found rather than re-inserted.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if task.ID == 0 {
		return model.Validationf("save task: missing id")
	}
	res := r.db.WithContext(ctx).Model(task).Select("*").Omit("ID", "CreatedAt").Updates(task)
	if res.Error != nil {
		return model.Persistence("save task", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFound("save task", task.ID)
	}
	return nil
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, model.Persistence("list tasks", err)
	}
	return tasks, nil
}

// List returns the tasks matching filter in the requested order. The filter
// must already be normalized.
func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{})

	switch filter.Status {
	case model.StatusActive:
		q = q.Where("completed = ?", false)
	case model.StatusCompleted:
		q = q.Where("completed = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("category = ? COLLATE NOCASE", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
	}

	var tasks []model.Task
	if err := q.Order(orderClause(filter.Sort)).Find(&tasks).Error; err != nil {
		return nil, model.Persistence("list tasks", err)
	}
	return tasks, nil
}

// Delete removes a task together with its completion history.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Completion{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.NotFound("delete task", id)
		}
		return nil
	})
	return model.Persistence("delete task", err)
}

func orderClause(sort model.SortOrder) string {
	switch sort {
	case model.SortDueDate:
		return "due_date ASC NULLS LAST, priority DESC, id ASC"
	case model.SortCreated:
		return "created_at DESC, id DESC"
	case model.SortTitle:
		return "title COLLATE NOCASE ASC, id ASC"
	case model.SortCategory:
		return "category = '' ASC, category COLLATE NOCASE ASC, priority DESC, id ASC"
	default:
		return "priority DESC, due_date ASC NULLS LAST, created_at DESC, id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
