package tracker

import (
	"context"
	"fmt"
	"strings"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
)

// CompletionAppender persists completion history.
type CompletionAppender interface {
	Append(ctx context.Context, c *model.Completion) error
}

// StreakPolicy decides which tasks take part in streaks.
type StreakPolicy int

const (
	StreakRecurringOnly StreakPolicy = iota
	StreakAllTasks
)

func (p StreakPolicy) String() string {
	if p == StreakAllTasks {
		return "all"
	}
	return "recurring"
}

func ParseStreakPolicy(raw string) (StreakPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "recurring":
		return StreakRecurringOnly, nil
	case "all":
		return StreakAllTasks, nil
	default:
		return StreakRecurringOnly, model.Validationf("streak policy must be recurring or all, got %q", raw)
	}
}

// Result is the outcome of one completion.
type Result struct {
	Task   model.Task        `json:"task"`
	State  State             `json:"state"`
	Record *model.Completion `json:"record,omitempty"`
}

// CompletionRecorder turns a completion into an updated task snapshot.
type CompletionRecorder struct {
	clock   clock.Clock
	history CompletionAppender
	policy  StreakPolicy
}

type RecorderOption func(*CompletionRecorder)

func WithStreakPolicy(p StreakPolicy) RecorderOption {
	return func(r *CompletionRecorder) { r.policy = p }
}

// NewCompletionRecorder builds a recorder. history may be nil, in which case
// no history record is written.
func NewCompletionRecorder(c clock.Clock, history CompletionAppender, opts ...RecorderOption) *CompletionRecorder {
	if c == nil {
		c = clock.System()
	}
	r := &CompletionRecorder{clock: c, history: history}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CompletionRecorder) Policy() StreakPolicy { return r.policy }

// Complete records a completion of task. details is nil for a quick
// completion: the history entry then carries the default difficulty and no
// time, and the running averages are left alone.
//
// All derived fields share one instant read from the clock at the start. On
// error the returned Result is empty and the caller must not save anything.
func (r *CompletionRecorder) Complete(ctx context.Context, task model.Task, details *model.Details) (Result, error) {
	at := r.clock.Now()

	record := &model.Completion{TaskID: task.ID, CompletedAt: at, Difficulty: model.DefaultDifficulty}
	if details != nil {
		if err := details.Validate(); err != nil {
			return Result{}, err
		}
		record.TimeSpentMinutes = details.Minutes()
		record.Difficulty = details.Difficulty
		record.Notes = strings.TrimSpace(details.Notes)
	}
	if r.history != nil {
		if err := r.history.Append(ctx, record); err != nil {
			return Result{}, model.Persistence(fmt.Sprintf("append completion for task %d", task.ID), err)
		}
	}

	task.CompletionCount++
	if details != nil {
		task.AverageMinutes = RunningAverage(task.AverageMinutes, float64(record.TimeSpentMinutes))
		task.AverageDifficulty = RunningAverage(task.AverageDifficulty, float64(record.Difficulty))
	}
	task.OverdueSince = nil

	outcome := Advance(task, at)
	task = outcome.Task
	if task.Completed {
		task.CompletedAt = ptr(at)
	}

	if r.streakEligible(task) {
		UpdateStreak(task, at).Apply(&task)
	}

	return Result{Task: task, State: outcome.State, Record: record}, nil
}

// Uncomplete reopens a task. Streak and period state are kept as they are.
func (r *CompletionRecorder) Uncomplete(task model.Task) model.Task {
	task.Completed = false
	task.CompletedAt = nil
	return task
}

func (r *CompletionRecorder) streakEligible(task model.Task) bool {
	return r.policy == StreakAllTasks || !task.Recurrence.IsNone()
}

// RunningAverage folds v into avg as (avg+v)/2, starting from v when avg is
// zero. Stored averages already follow this rule, so it must not become a
// true mean.
func RunningAverage(avg, v float64) float64 {
	if avg == 0 {
		return v
	}
	return (avg + v) / 2
}
