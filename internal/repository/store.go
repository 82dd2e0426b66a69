package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one connection.
type Store struct {
	db          *gorm.DB
	Tasks       *TaskRepository
	Completions *CompletionRepository
	Categories  *CategoryRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Tasks:       NewTaskRepository(db),
		Completions: NewCompletionRepository(db),
		Categories:  NewCategoryRepository(db),
	}
}

// InTx runs fn against a Store bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
