package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Priority orders tasks in listings. Stored as an integer so it sorts in SQL.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority accepts the lowercase names; an empty string means medium.
func ParsePriority(raw string) (Priority, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return PriorityMedium, nil
	}
	for p, name := range priorityNames {
		if name == value {
			return p, nil
		}
	}
	return 0, Validationf("unknown priority %q", raw)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, Validationf("unknown priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a single tracked item. Optional instants are nil when unset.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `gorm:"index" json:"category,omitempty"`
	Priority    Priority   `json:"priority"`
	Recurrence  Recurrence `gorm:"embedded;embeddedPrefix:recur_" json:"recurrence"`
	DueDate     *time.Time `gorm:"index" json:"dueDate,omitempty"`
	Completed   bool       `gorm:"index;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	LastCompletedDate     *time.Time `json:"lastCompletedDate,omitempty"`
	CompletionsThisPeriod int        `json:"completionsThisPeriod"`
	CurrentPeriodStart    *time.Time `json:"currentPeriodStart,omitempty"`

	CurrentStreak  int        `json:"currentStreak"`
	LongestStreak  int        `json:"longestStreak"`
	LastStreakDate *time.Time `json:"lastStreakDate,omitempty"`
	OverdueSince   *time.Time `json:"overdueSince,omitempty"`

	CompletionCount   int     `json:"completionCount"`
	AverageMinutes    float64 `json:"averageMinutes"`
	AverageDifficulty float64 `json:"averageDifficulty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasDueDate reports whether a due date is set. The zero instant and the
// Unix epoch both count as unset.
func (t Task) HasDueDate() bool {
	return t.DueDate != nil && !t.DueDate.IsZero() && t.DueDate.UnixMilli() != 0
}

// BeforeSave stores every instant in UTC so range comparisons in SQLite stay
// lexically ordered.
func (t *Task) BeforeSave(*gorm.DB) error {
	for _, ts := range []**time.Time{
		&t.DueDate, &t.CompletedAt, &t.LastCompletedDate,
		&t.CurrentPeriodStart, &t.LastStreakDate, &t.OverdueSince,
	} {
		*ts = utc(*ts)
	}
	return nil
}

func utc(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := ts.UTC()
	return &v
}
