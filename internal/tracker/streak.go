package tracker

import (
	"sort"
	"time"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
)

// Streak holds the three streak fields of a task.
type Streak struct {
	Current  int
	Longest  int
	LastDate *time.Time
}

// Apply copies the streak fields onto task.
func (s Streak) Apply(task *model.Task) {
	task.CurrentStreak = s.Current
	task.LongestStreak = s.Longest
	task.LastStreakDate = s.LastDate
}

// UpdateStreak credits a completion at the given instant. Days are whole
// 24h spans since the last credited completion: zero leaves the streak alone,
// one extends it, more than one restarts it at 1.
func UpdateStreak(task model.Task, at time.Time) Streak {
	s := Streak{Current: task.CurrentStreak, Longest: task.LongestStreak, LastDate: task.LastStreakDate}

	if task.LastStreakDate == nil || task.LastStreakDate.IsZero() {
		s.Current = 1
		s.Longest = max(s.Longest, 1)
		s.LastDate = ptr(at)
		return s
	}

	switch days := elapsedDays(*task.LastStreakDate, at); {
	case days <= 0:
		// Same day, or a completion older than the last credited one.
		return s
	case days == 1:
		s.Current++
	default:
		s.Current = 1
	}
	s.Longest = max(s.Longest, s.Current)
	s.LastDate = ptr(at)
	return s
}

func elapsedDays(from, to time.Time) int64 {
	d := to.Sub(from)
	days := int64(d / clock.Day)
	if d < 0 && d%clock.Day != 0 {
		days--
	}
	return days
}

// StreakFromHistory rebuilds streak fields by replaying completion instants
// in order through UpdateStreak, so the result matches what live completions
// would have produced. LastDate is the last credited completion.
func StreakFromHistory(completions []time.Time) Streak {
	sorted := append([]time.Time(nil), completions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var task model.Task
	for _, at := range sorted {
		UpdateStreak(task, at).Apply(&task)
	}
	return Streak{Current: task.CurrentStreak, Longest: task.LongestStreak, LastDate: task.LastStreakDate}
}
