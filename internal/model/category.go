package model

// CategorySummary groups tasks by their free-form category label.
type CategorySummary struct {
	Name      string `json:"name"`
	Tasks     int    `json:"tasks"`
	Completed int    `json:"completed"`
}
