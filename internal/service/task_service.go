package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
	"taskstreak/internal/repository"
	"taskstreak/internal/tracker"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// TaskInput represents the editable fields of a task. Nil priority means
// medium; nil recurrence means none.
type TaskInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Priority    *model.Priority   `json:"priority"`
	Recurrence  *model.Recurrence `json:"recurrence"`
	DueDate     *time.Time        `json:"dueDate"`
}

func (in TaskInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Validationf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return model.Validationf("title must be at most %d characters", maxTitleLength)
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return model.Validationf("description must be at most %d characters", maxDescriptionLength)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return model.Validationf("unknown priority %d", int(*in.Priority))
	}
	if in.Recurrence != nil {
		return in.Recurrence.Validate()
	}
	return nil
}

func (in TaskInput) apply(task *model.Task) {
	task.Title = strings.TrimSpace(in.Title)
	task.Description = strings.TrimSpace(in.Description)
	task.Category = strings.TrimSpace(in.Category)
	task.Priority = model.PriorityMedium
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	rec := model.NoRecurrence()
	if in.Recurrence != nil && !in.Recurrence.IsNone() {
		rec = *in.Recurrence
	}
	if rec != task.Recurrence {
		// A new schedule starts without period progress.
		task.CompletionsThisPeriod = 0
		task.CurrentPeriodStart = nil
	}
	task.Recurrence = rec
	task.DueDate = in.DueDate
}

type TaskServiceConfig struct {
	StreakPolicy tracker.StreakPolicy
	WeekStart    time.Weekday
}

// TaskService wraps task-related business logic. Every write to a task runs
// under that task's lock inside one transaction.
type TaskService struct {
	store  *repository.Store
	locks  *TaskLocks
	clock  clock.Clock
	stats  *tracker.StatisticsAggregator
	policy tracker.StreakPolicy
	log    *log.Logger
}

func NewTaskService(store *repository.Store, locks *TaskLocks, clk clock.Clock, logger *log.Logger, cfg TaskServiceConfig) *TaskService {
	if clk == nil {
		clk = clock.System()
	}
	if locks == nil {
		locks = NewTaskLocks()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TaskService{
		store:  store,
		locks:  locks,
		clock:  clk,
		stats:  tracker.NewStatisticsAggregator(clk, cfg.WeekStart),
		policy: cfg.StreakPolicy,
		log:    logger,
	}
}

func (s *TaskService) Create(ctx context.Context, input TaskInput) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	task := model.Task{Recurrence: model.NoRecurrence()}
	input.apply(&task)

	if err := s.store.Tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.log.Info("task created", "id", task.ID, "title", task.Title, "recurrence", task.Recurrence)
	return &task, nil
}

// Update replaces the editable fields of a task. Completion, streak and
// statistics fields are kept.
func (s *TaskService) Update(ctx context.Context, id uint, input TaskInput) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var updated model.Task
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		input.apply(task)
		if err := tx.Tasks.Save(ctx, task); err != nil {
			return err
		}
		updated = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task updated", "id", id)
	return &updated, nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	return s.store.Tasks.FindByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return s.store.Tasks.List(ctx, filter)
}

// Complete records a completion of task id. details is nil for a quick
// completion. A recurring task that is due again is reopened first, so a
// late sweep never blocks a completion. A task that is still completed after
// that, including a frequency task that met its goal for the current period,
// rejects the completion.
func (s *TaskService) Complete(ctx context.Context, id uint, details *model.Details) (tracker.Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var res tracker.Result
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		current := *task
		if reopened := tracker.SweepRecurring(s.clock.Now(), []model.Task{current}); len(reopened) == 1 {
			current = reopened[0]
		}
		if current.Completed {
			return model.Validationf("task %d is already completed", id)
		}

		rec := tracker.NewCompletionRecorder(s.clock, tx.Completions, tracker.WithStreakPolicy(s.policy))
		res, err = rec.Complete(ctx, current, details)
		if err != nil {
			return err
		}
		return tx.Tasks.Save(ctx, &res.Task)
	})
	if err != nil {
		return tracker.Result{}, err
	}
	s.log.Info("task completed", "id", id, "state", res.State, "streak", res.Task.CurrentStreak)
	return res, nil
}

// Uncomplete reopens task id. Streaks, history and period progress stay.
func (s *TaskService) Uncomplete(ctx context.Context, id uint) (*model.Task, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var reopened model.Task
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		reopened = tracker.NewCompletionRecorder(s.clock, nil).Uncomplete(*task)
		return tx.Tasks.Save(ctx, &reopened)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task reopened", "id", id)
	return &reopened, nil
}

// Delete removes a task and its completion history.
func (s *TaskService) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("task deleted", "id", id)
	return nil
}

func (s *TaskService) Stats(ctx context.Context) (tracker.Stats, error) {
	tasks, err := s.store.Tasks.ListAll(ctx)
	if err != nil {
		return tracker.Stats{}, err
	}
	return s.stats.Aggregate(ctx, tasks, s.store.Completions)
}

func (s *TaskService) Categories(ctx context.Context) ([]model.CategorySummary, error) {
	return s.store.Categories.Summaries(ctx)
}

// History returns up to limit completions of task id, newest first.
func (s *TaskService) History(ctx context.Context, id uint, limit int) ([]model.Completion, error) {
	if _, err := s.store.Tasks.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Completions.ListByTask(ctx, id, limit)
}

// RebuildStreaks recomputes streak fields of every streak-eligible task from
// its completion history. It returns how many tasks changed.
func (s *TaskService) RebuildStreaks(ctx context.Context) (int, error) {
	tasks, err := s.store.Tasks.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if s.policy != tracker.StreakAllTasks && t.Recurrence.IsNone() {
			continue
		}
		ok, err := s.rebuildStreak(ctx, t.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			continue
		case err != nil:
			return changed, fmt.Errorf("rebuild streak of task %d: %w", t.ID, err)
		case ok:
			changed++
		}
	}
	s.log.Info("streaks rebuilt", "tasks", len(tasks), "changed", changed)
	return changed, nil
}

func (s *TaskService) rebuildStreak(ctx context.Context, id uint) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	changed := false
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		history, err := tx.Completions.ListByTask(ctx, id, 0)
		if err != nil {
			return err
		}
		times := make([]time.Time, len(history))
		for i, c := range history {
			times[i] = c.CompletedAt
		}

		streak := tracker.StreakFromHistory(times)
		if streak.Current == task.CurrentStreak && streak.Longest == task.LongestStreak && sameInstant(streak.LastDate, task.LastStreakDate) {
			return nil
		}
		streak.Apply(task)
		changed = true
		return tx.Tasks.Save(ctx, task)
	})
	return changed, err
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
