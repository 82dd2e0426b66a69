package tracker

import (
	"time"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
)

// IsOverdue reports whether task has a due date before now and is still open.
func IsOverdue(task model.Task, now time.Time) bool {
	return task.HasDueDate() && !task.Completed && task.DueDate.Before(now)
}

// OverdueDuration is how long task has been overdue, or zero when it is not.
func OverdueDuration(task model.Task, now time.Time) time.Duration {
	if !IsOverdue(task, now) {
		return 0
	}
	return now.Sub(*task.DueDate)
}

// IsDueToday reports whether the due date falls within now's calendar day.
func IsDueToday(task model.Task, now time.Time) bool {
	if !task.HasDueDate() {
		return false
	}
	start := clock.StartOfDay(now)
	return !task.DueDate.Before(start) && task.DueDate.Before(start.Add(clock.Day))
}

// StampOverdue marks tasks that are overdue for the first time and returns
// the ones that changed. The stamp stays until the task is completed.
func StampOverdue(now time.Time, tasks []model.Task) []model.Task {
	var changed []model.Task
	for _, task := range tasks {
		if task.OverdueSince != nil || !IsOverdue(task, now) {
			continue
		}
		task.OverdueSince = ptr(now)
		changed = append(changed, task)
	}
	return changed
}
