package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
	"taskstreak/internal/tracker"
)

type OverdueItem struct {
	Task           model.Task `json:"task"`
	OverdueMinutes int64      `json:"overdueMinutes"`
}

// ProgressItem is a frequency task's progress in its current period.
type ProgressItem struct {
	Task model.Task `json:"task"`
	Done int        `json:"done"`
	Goal int        `json:"goal"`
}

// Digest is the daily summary sent to the owner.
type Digest struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Overdue     []OverdueItem  `json:"overdue"`
	DueToday    []model.Task   `json:"dueToday"`
	InProgress  []ProgressItem `json:"inProgress"`
	Stats       tracker.Stats  `json:"stats"`
}

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	tasks *TaskService
	clock clock.Clock
}

func NewReminderService(tasks *TaskService, clk clock.Clock) *ReminderService {
	if clk == nil {
		clk = clock.System()
	}
	return &ReminderService{tasks: tasks, clock: clk}
}

func (s *ReminderService) Digest(ctx context.Context) (Digest, error) {
	now := s.clock.Now()
	active, err := s.tasks.List(ctx, model.TaskFilter{Status: model.StatusActive, Sort: model.SortDueDate})
	if err != nil {
		return Digest{}, err
	}
	stats, err := s.tasks.Stats(ctx)
	if err != nil {
		return Digest{}, err
	}

	d := Digest{
		GeneratedAt: now,
		Overdue:     []OverdueItem{},
		DueToday:    []model.Task{},
		InProgress:  []ProgressItem{},
		Stats:       stats,
	}
	for _, task := range active {
		switch {
		case tracker.IsOverdue(task, now):
			d.Overdue = append(d.Overdue, OverdueItem{
				Task:           task,
				OverdueMinutes: int64(tracker.OverdueDuration(task, now) / time.Minute),
			})
		case tracker.IsDueToday(task, now):
			d.DueToday = append(d.DueToday, task)
		}
		if task.Recurrence.Kind == model.RecurFrequency {
			d.InProgress = append(d.InProgress, ProgressItem{
				Task: task,
				Done: periodProgress(task, now),
				Goal: task.Recurrence.Amount,
			})
		}
	}
	sort.SliceStable(d.Overdue, func(i, j int) bool {
		return d.Overdue[i].OverdueMinutes > d.Overdue[j].OverdueMinutes
	})
	return d, nil
}

// Summary renders the digest as Telegram HTML.
func (s *ReminderService) Summary(ctx context.Context) (string, error) {
	d, err := s.Digest(ctx)
	if err != nil {
		return "", err
	}
	return FormatDigest(d), nil
}

func periodProgress(task model.Task, now time.Time) int {
	end, ok := tracker.PeriodEnd(task)
	if !ok || now.After(end) {
		return 0
	}
	return task.CompletionsThisPeriod
}

func FormatDigest(d Digest) string {
	var b strings.Builder
	b.WriteString("📋 <b>Daily digest</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n\n", d.GeneratedAt.Format("Mon, 02 Jan 2006")))

	b.WriteString("⚠️ <b>Overdue</b>\n")
	if len(d.Overdue) == 0 {
		b.WriteString("nothing overdue\n")
	}
	for _, item := range d.Overdue {
		b.WriteString(fmt.Sprintf("• %s, overdue by %s\n", taskLabel(item.Task), FormatDuration(time.Duration(item.OverdueMinutes)*time.Minute)))
	}

	b.WriteString("\n⏳ <b>Due today</b>\n")
	if len(d.DueToday) == 0 {
		b.WriteString("nothing due today\n")
	}
	for _, task := range d.DueToday {
		b.WriteString(fmt.Sprintf("• %s at %s\n", taskLabel(task), task.DueDate.In(d.GeneratedAt.Location()).Format("15:04")))
	}

	if len(d.InProgress) > 0 {
		b.WriteString("\n♻️ <b>Goals this period</b>\n")
		for _, item := range d.InProgress {
			b.WriteString(fmt.Sprintf("• %s %d/%d %s\n", taskLabel(item.Task), item.Done, item.Goal, item.Task.Recurrence.Unit))
		}
	}

	b.WriteString("\n📊 ")
	b.WriteString(FormatStats(d.Stats))
	return strings.TrimSpace(b.String())
}

// FormatStats renders stats as a short HTML block.
func FormatStats(s tracker.Stats) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%d/%d done</b> (%d%%), %d overdue\n", s.Completed, s.Total, s.CompletedPercentage, s.Overdue))
	b.WriteString(fmt.Sprintf("Today: %d · This week: %d\n", s.CompletionsToday, s.CompletionsThisWeek))
	b.WriteString(fmt.Sprintf("Best streak: %d · Active streaks: %d", s.BestLongestStreak, s.ActiveStreaks))
	if s.AverageDifficulty > 0 {
		b.WriteString(fmt.Sprintf("\nAvg time: %.0f min · Avg difficulty: %.1f", s.AverageMinutes, s.AverageDifficulty))
	}
	return b.String()
}

func taskLabel(task model.Task) string {
	label := fmt.Sprintf("#%d %s", task.ID, html.EscapeString(task.Title))
	if task.Category != "" {
		label += fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(task.Category))
	}
	return label
}

// FormatDuration renders d as days and hours, or hours and minutes under a
// day. Zero parts are dropped.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	days := int(d / clock.Day)
	d -= time.Duration(days) * clock.Day
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}
