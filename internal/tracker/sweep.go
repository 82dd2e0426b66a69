package tracker

import (
	"time"

	"taskstreak/internal/model"
)

// SweepRecurring returns the recurring tasks that become actionable again at
// now, already updated and ready to save.
//
// A completed interval task whose due date has passed is reopened and its
// due date moves forward one interval. A frequency task whose period has
// lapsed has its period cleared, so the next completion opens a new one.
func SweepRecurring(now time.Time, tasks []model.Task) []model.Task {
	var changed []model.Task
	for _, task := range tasks {
		switch task.Recurrence.Kind {
		case model.RecurInterval:
			if !task.Completed || !task.HasDueDate() || task.DueDate.After(now) {
				continue
			}
			task.Completed = false
			task.CompletedAt = nil
			task.DueDate = ptr(task.DueDate.Add(intervalLength(task.Recurrence)))
		case model.RecurFrequency:
			if !periodLapsed(task, now) {
				continue
			}
			task.Completed = false
			task.CompletedAt = nil
			task.CompletionsThisPeriod = 0
			task.CurrentPeriodStart = nil
		default:
			continue
		}
		changed = append(changed, task)
	}
	return changed
}
