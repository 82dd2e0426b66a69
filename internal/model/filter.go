package model

import "strings"

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type SortOrder string

const (
	SortPriority SortOrder = "priority"
	SortDueDate  SortOrder = "due"
	SortCreated  SortOrder = "created"
	SortTitle    SortOrder = "title"
	SortCategory SortOrder = "category"
)

// TaskFilter narrows a task listing. Zero values mean "no restriction" and
// priority order.
type TaskFilter struct {
	Status   Status
	Category string
	Search   string
	Sort     SortOrder
}

func (f TaskFilter) Normalize() (TaskFilter, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)
	switch f.Status {
	case "":
		f.Status = StatusAll
	case "done":
		f.Status = StatusCompleted
	case StatusAll, StatusActive, StatusCompleted:
	default:
		return f, Validationf("unknown status filter %q", f.Status)
	}
	switch f.Sort {
	case "":
		f.Sort = SortPriority
	case SortPriority, SortDueDate, SortCreated, SortTitle, SortCategory:
	default:
		return f, Validationf("unknown sort order %q", f.Sort)
	}
	return f, nil
}
