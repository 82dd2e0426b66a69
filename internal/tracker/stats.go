package tracker

import (
	"context"
	"fmt"
	"time"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
)

// HistoryQuery counts history entries completed in [from, to). A zero taskID
// counts across all tasks.
type HistoryQuery interface {
	CountCompletions(ctx context.Context, taskID uint, from, to time.Time) (int64, error)
}

// Stats summarises a task collection.
type Stats struct {
	Total               int     `json:"total"`
	Completed           int     `json:"completed"`
	Overdue             int     `json:"overdue"`
	CompletedPercentage int     `json:"completedPercentage"`
	CompletionsToday    int     `json:"completionsToday"`
	CompletionsThisWeek int     `json:"completionsThisWeek"`
	BestLongestStreak   int     `json:"bestLongestStreak"`
	ActiveStreaks       int     `json:"activeStreaks"`
	AverageMinutes      float64 `json:"averageMinutes"`
	AverageDifficulty   float64 `json:"averageDifficulty"`
}

// StatisticsAggregator derives Stats relative to its clock.
type StatisticsAggregator struct {
	clock     clock.Clock
	weekStart time.Weekday
}

func NewStatisticsAggregator(c clock.Clock, weekStart time.Weekday) *StatisticsAggregator {
	if c == nil {
		c = clock.System()
	}
	return &StatisticsAggregator{clock: c, weekStart: weekStart}
}

// Aggregate computes Stats over tasks. The only I/O is two range counts on
// history: today and the current week.
func (a *StatisticsAggregator) Aggregate(ctx context.Context, tasks []model.Task, history HistoryQuery) (Stats, error) {
	now := a.clock.Now()
	var (
		s                   Stats
		minutes, difficulty float64
		tracked             int
	)

	for _, task := range tasks {
		s.Total++
		if task.Completed {
			s.Completed++
		}
		if IsOverdue(task, now) {
			s.Overdue++
		}
		s.BestLongestStreak = max(s.BestLongestStreak, task.LongestStreak)
		if task.CurrentStreak > 0 {
			s.ActiveStreaks++
		}
		if task.AverageDifficulty > 0 {
			minutes += task.AverageMinutes
			difficulty += task.AverageDifficulty
			tracked++
		}
	}
	if s.Total > 0 {
		s.CompletedPercentage = s.Completed * 100 / s.Total
	}
	if tracked > 0 {
		s.AverageMinutes = minutes / float64(tracked)
		s.AverageDifficulty = difficulty / float64(tracked)
	}

	if history == nil {
		return s, nil
	}

	dayStart := clock.StartOfDay(now)
	today, err := history.CountCompletions(ctx, 0, dayStart, dayStart.Add(clock.Day))
	if err != nil {
		return Stats{}, fmt.Errorf("count completions today: %w", err)
	}
	weekStart := clock.StartOfWeek(now, a.weekStart)
	week, err := history.CountCompletions(ctx, 0, weekStart, weekStart.Add(7*clock.Day))
	if err != nil {
		return Stats{}, fmt.Errorf("count completions this week: %w", err)
	}
	s.CompletionsToday = int(today)
	s.CompletionsThisWeek = int(week)
	return s, nil
}
