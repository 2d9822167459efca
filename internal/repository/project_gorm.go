package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"gorm.io/gorm"
)

// ProjectGorm is the read side of the project/sprint/task tables that feeds
// the AI pipeline.
type ProjectGorm struct {
	db *gorm.DB
}

// NewProjectRepository wraps an already migrated database.
func NewProjectRepository(db *gorm.DB) *ProjectGorm {
	return &ProjectGorm{db: db}
}

// Migrate creates or updates the project tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Sprint{},
		&models.Task{},
		&models.Activity{},
	)
}

// GetProjectSprintsAndTasks assembles the whole project: sprints ordered by
// start date, each with its tasks, plus the tasks that belong to no sprint.
func (r *ProjectGorm) GetProjectSprintsAndTasks(ctx context.Context, projectID uint) (models.ProjectNarrative, error) {
	db := r.db.WithContext(ctx)

	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		return models.ProjectNarrative{}, notFound(err, "project %d", projectID)
	}

	var sprints []models.Sprint
	if err := db.Where("project_id = ?", projectID).Order("start_date, id").Find(&sprints).Error; err != nil {
		return models.ProjectNarrative{}, fmt.Errorf("load sprints of project %d: %w", projectID, err)
	}

	var tasks []models.Task
	if err := db.Preload("Assignee").Where("project_id = ?", projectID).Order("id").Find(&tasks).Error; err != nil {
		return models.ProjectNarrative{}, fmt.Errorf("load tasks of project %d: %w", projectID, err)
	}

	bySprint := make(map[uint][]models.Task, len(sprints))
	var backlog []models.Task
	for _, t := range tasks {
		if t.SprintID == nil {
			backlog = append(backlog, t)
			continue
		}
		bySprint[*t.SprintID] = append(bySprint[*t.SprintID], t)
	}

	out := models.ProjectNarrative{Project: project, Backlog: backlog}
	for _, s := range sprints {
		out.Sprints = append(out.Sprints, models.SprintTasks{Sprint: s, Tasks: bySprint[s.ID]})
	}
	return out, nil
}

// FindSprint loads one sprint.
func (r *ProjectGorm) FindSprint(ctx context.Context, sprintID uint) (models.Sprint, error) {
	var sprint models.Sprint
	if err := r.db.WithContext(ctx).First(&sprint, sprintID).Error; err != nil {
		return models.Sprint{}, notFound(err, "sprint %d", sprintID)
	}
	return sprint, nil
}

// TasksBySprint lists the tasks of a sprint with their assignees.
func (r *ProjectGorm) TasksBySprint(ctx context.Context, sprintID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("sprint_id = ?", sprintID).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load tasks of sprint %d: %w", sprintID, err)
	}
	return tasks, nil
}

// UnassignedOpenTasks lists tasks of the project that sit in no sprint and
// are not done.
func (r *ProjectGorm) UnassignedOpenTasks(ctx context.Context, projectID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND sprint_id IS NULL AND status <> ?", projectID, models.StatusDone).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load backlog of project %d: %w", projectID, err)
	}
	return tasks, nil
}

// StatusChangeCounts returns how many STATUS_CHANGED activities each task has.
// Tasks without any are absent from the map.
func (r *ProjectGorm) StatusChangeCounts(ctx context.Context, taskIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int)
	if len(taskIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		TaskID uint
		N      int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Select("task_id, COUNT(*) AS n").
		Where("type = ? AND task_id IN ?", models.ActivityStatusChanged, taskIDs).
		Group("task_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count status changes: %w", err)
	}
	for _, row := range rows {
		counts[row.TaskID] = row.N
	}
	return counts, nil
}

// TaskCounts aggregates the project's tasks by status and due date relative
// to now.
func (r *ProjectGorm) TaskCounts(ctx context.Context, projectID uint, now time.Time) (models.TaskCounts, error) {
	db := r.db.WithContext(ctx)
	now = now.UTC()
	if err := db.First(&models.Project{}, projectID).Error; err != nil {
		return models.TaskCounts{}, notFound(err, "project %d", projectID)
	}

	out := models.TaskCounts{ProjectID: projectID}
	count := func(dst *int64, query string, args ...interface{}) error {
		q := db.Model(&models.Task{}).Where("project_id = ?", projectID)
		if query != "" {
			q = q.Where(query, args...)
		}
		return q.Count(dst).Error
	}

	steps := []struct {
		dst   *int64
		query string
		args  []interface{}
	}{
		{&out.Total, "", nil},
		{&out.Done, "status = ?", []interface{}{models.StatusDone}},
		{&out.InProgress, "status = ?", []interface{}{models.StatusInProgress}},
		{&out.InReview, "status = ?", []interface{}{models.StatusInReview}},
		{&out.Todo, "status = ?", []interface{}{models.StatusTodo}},
		{&out.DueIssue, "status <> ? AND due_date IS NOT NULL AND due_date > ?", []interface{}{models.StatusDone, now}},
		{&out.Overdue, "status <> ? AND due_date IS NOT NULL AND due_date < ?", []interface{}{models.StatusDone, now}},
	}
	for _, s := range steps {
		if err := count(s.dst, s.query, s.args...); err != nil {
			return models.TaskCounts{}, fmt.Errorf("count tasks of project %d: %w", projectID, err)
		}
	}
	return out, nil
}

func notFound(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
