package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHighest Priority = "HIGHEST"
	PriorityHigh    Priority = "HIGH"
	PriorityMedium  Priority = "MEDIUM"
	PriorityLow     Priority = "LOW"
	PriorityLowest  Priority = "LOWEST"
)

// PriorityRank orders priorities from most to least urgent. Lower is more urgent.
var PriorityRank = map[Priority]int{
	PriorityHighest: 0,
	PriorityHigh:    1,
	PriorityMedium:  2,
	PriorityLow:     3,
	PriorityLowest:  4,
}

// Rank returns the sort position of p. Unknown priorities sort after LOWEST.
func (p Priority) Rank() int {
	if r, ok := PriorityRank[Priority(strings.ToUpper(string(p)))]; ok {
		return r
	}
	return len(PriorityRank)
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "BACKLOG"
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
)

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// ActivityType classifies an entry in a task's history.
type ActivityType string

const (
	ActivityCreated       ActivityType = "CREATED"
	ActivityStatusChanged ActivityType = "STATUS_CHANGED"
	ActivityAssigned      ActivityType = "ASSIGNED"
	ActivityCommented     ActivityType = "COMMENTED"
)

// User is a project member who can be assigned tasks.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `gorm:"uniqueIndex" json:"email"`
	Role      string `json:"role"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Project is the top-level container for sprints and tasks.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"projectId"`
	Name        string    `json:"name"`
	Key         string    `gorm:"uniqueIndex" json:"key"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Sprint is a time-boxed iteration of a project.
type Sprint struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProjectID uint         `gorm:"index" json:"projectId"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Status    SprintStatus `json:"status"`
	Capacity  int          `json:"capacity"` // hours
}

// Task is a unit of work. A nil SprintID means the task sits in the backlog.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"index" json:"projectId"`
	SprintID    *uint      `gorm:"index" json:"sprintId,omitempty"`
	AssigneeID  *uint      `json:"-"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Key         string     `gorm:"uniqueIndex" json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	StoryPoints int        `json:"storyPoints"`
	Estimate    int        `json:"estimate"` // hours
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeSave stores every timestamp in UTC. SQLite keeps times as text, so
// range filters only work when all rows share one offset.
func (t *Task) BeforeSave(*gorm.DB) error {
	t.DueDate = utcPtr(t.DueDate)
	t.CompletedAt = utcPtr(t.CompletedAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return nil
}

// BeforeSave stores the sprint window in UTC.
func (s *Sprint) BeforeSave(*gorm.DB) error {
	s.StartDate = s.StartDate.UTC()
	s.EndDate = s.EndDate.UTC()
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Done reports whether the task is finished.
func (t Task) Done() bool {
	return t.Status == StatusDone
}

// Activity is one entry in a task's change log.
type Activity struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	TaskID    uint         `gorm:"index" json:"taskId"`
	Type      ActivityType `gorm:"index" json:"type"`
	OldValue  string       `json:"oldValue"`
	NewValue  string       `json:"newValue"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SprintTasks pairs a sprint with the tasks assigned to it.
type SprintTasks struct {
	Sprint Sprint `json:"sprint"`
	Tasks  []Task `json:"tasks"`
}

// ProjectNarrative is the full structured picture of a project that gets
// turned into prose for indexing.
type ProjectNarrative struct {
	Project Project       `json:"project"`
	Sprints []SprintTasks `json:"sprints"`
	Backlog []Task        `json:"backlog"`
}

// TaskCounts summarises open work in a project.
type TaskCounts struct {
	ProjectID  uint  `json:"projectId"`
	Total      int64 `json:"total"`
	Done       int64 `json:"done"`
	InProgress int64 `json:"inProgress"`
	InReview   int64 `json:"inReview"`
	Todo       int64 `json:"todo"`
	DueIssue   int64 `json:"dueIssue"` // open tasks with a due date still ahead
	Overdue    int64 `json:"overdue"`  // open tasks past their due date
}
