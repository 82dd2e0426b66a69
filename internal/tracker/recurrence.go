package tracker

import (
	"time"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
)

// State is where a task ends up after a completion.
type State int

const (
	// StateDone is terminal for non-recurring tasks until un-completed.
	StateDone State = iota
	// StateWaiting is a completed interval task waiting for the reset sweep.
	StateWaiting
	// StateInProgress is a frequency task below its goal for the period.
	StateInProgress
	// StateGoalMet is a frequency task that reached its goal for the period.
	StateGoalMet
)

func (s State) String() string {
	switch s {
	case StateDone:
		return "done"
	case StateWaiting:
		return "waiting"
	case StateInProgress:
		return "in_progress"
	case StateGoalMet:
		return "goal_met"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome is the task snapshot produced by Advance.
type Outcome struct {
	Task  model.Task
	State State
	// PeriodStarted is set when a frequency completion opened a new period.
	PeriodStarted bool
}

// UnitLength is the fixed length of one recurrence unit. A month is always
// 30 days; the arithmetic is deliberately not calendar aware.
func UnitLength(u model.Unit) time.Duration {
	switch u {
	case model.UnitWeek:
		return 7 * clock.Day
	case model.UnitMonth:
		return 30 * clock.Day
	default:
		return clock.Day
	}
}

func intervalLength(r model.Recurrence) time.Duration {
	return time.Duration(r.Amount) * UnitLength(r.Unit)
}

// Advance applies one completion at the given instant to the task's
// recurrence state. It assumes the recurrence was validated at edit time.
func Advance(task model.Task, at time.Time) Outcome {
	task.LastCompletedDate = ptr(at)

	switch task.Recurrence.Kind {
	case model.RecurInterval:
		task.Completed = true
		task.DueDate = ptr(at.Add(intervalLength(task.Recurrence)))
		return Outcome{Task: task, State: StateWaiting}
	case model.RecurFrequency:
		return advanceFrequency(task, at)
	default:
		task.Completed = true
		return Outcome{Task: task, State: StateDone}
	}
}

func advanceFrequency(task model.Task, at time.Time) Outcome {
	started := task.CurrentPeriodStart == nil || periodLapsed(task, at)
	if started {
		task.CurrentPeriodStart = ptr(at)
		task.CompletionsThisPeriod = 1
	} else {
		task.CompletionsThisPeriod++
	}

	task.Completed = task.CompletionsThisPeriod >= max(task.Recurrence.Amount, 1)
	state := StateInProgress
	if task.Completed {
		state = StateGoalMet
	}
	return Outcome{Task: task, State: state, PeriodStarted: started}
}

// PeriodEnd returns the end of a frequency task's current period.
func PeriodEnd(task model.Task) (time.Time, bool) {
	if task.CurrentPeriodStart == nil {
		return time.Time{}, false
	}
	return task.CurrentPeriodStart.Add(UnitLength(task.Recurrence.Unit)), true
}

func periodLapsed(task model.Task, at time.Time) bool {
	end, ok := PeriodEnd(task)
	return ok && at.After(end)
}

func ptr(t time.Time) *time.Time { return &t }
