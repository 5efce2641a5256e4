package model

import "time"

type TaskStatus string

const (
	TaskCompleted  TaskStatus = "completed"
	TaskIncomplete TaskStatus = "incomplete"
)

// DateLayout is the storage format of Task.StartDate.
const DateLayout = "2006-01-02"

type Task struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Status          TaskStatus `json:"status"`
	StartDate       string     `json:"start_date"`
	PlannedDuration int        `json:"planned_duration"`
	ActualDuration  *int       `json:"actual_duration"`
	Points          int        `json:"points"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (t Task) Completed() bool {
	return t.Status == TaskCompleted
}

// Actual returns the recorded duration in minutes, or 0 when none was recorded.
func (t Task) Actual() int {
	if t.ActualDuration == nil {
		return 0
	}
	return *t.ActualDuration
}

// TaskFilter narrows a task query. Zero fields are ignored. Date takes
// precedence over From/To. Dates use DateLayout.
type TaskFilter struct {
	Date     string
	From     string
	To       string
	Category string
	Status   TaskStatus
}
