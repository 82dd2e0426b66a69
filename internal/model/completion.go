package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Difficulty is rated on a 1..5 scale across every entry point.
const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 3
)

// Completion is one append-only history entry. It is never updated and is
// removed together with its task.
type Completion struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TaskID           uint      `gorm:"index;not null" json:"taskId"`
	CompletedAt      time.Time `gorm:"index" json:"completedAt"`
	TimeSpentMinutes int       `json:"timeSpentMinutes"`
	Difficulty       int       `json:"difficulty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (c *Completion) BeforeCreate(*gorm.DB) error {
	c.CompletedAt = c.CompletedAt.UTC()
	return nil
}

// Details is the optional tracking data supplied with a completion.
type Details struct {
	TimeSpent  time.Duration
	Difficulty int
	Notes      string
}

func (d Details) Minutes() int {
	return int(d.TimeSpent / time.Minute)
}

func (d Details) Validate() error {
	if d.TimeSpent < 0 {
		return Validationf("time spent must not be negative")
	}
	if d.Difficulty < MinDifficulty || d.Difficulty > MaxDifficulty {
		return Validationf("difficulty must be between %d and %d, got %d", MinDifficulty, MaxDifficulty, d.Difficulty)
	}
	if len(strings.TrimSpace(d.Notes)) > 2000 {
		return Validationf("notes are too long")
	}
	return nil
}
