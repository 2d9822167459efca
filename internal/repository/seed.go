package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"gorm.io/gorm"
)

// DemoProjectKey identifies the project written by Seed.
const DemoProjectKey = "APL"

// Seed writes a small demo project with three sprints, a backlog and some
// history, dated relative to now. It is a no-op when the demo project
// already exists and returns its id either way.
func Seed(ctx context.Context, db *gorm.DB, now time.Time) (uint, error) {
	var existing models.Project
	err := db.WithContext(ctx).Where(&models.Project{Key: DemoProjectKey}).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("look up demo project: %w", err)
	}

	now = now.UTC().Truncate(time.Second)
	day := 24 * time.Hour
	at := func(d int) time.Time { return now.Add(time.Duration(d) * day) }
	ptr := func(t time.Time) *time.Time { return &t }

	var projectID uint
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := []models.User{
			{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Role: "DEVELOPER"},
			{FirstName: "Omar", LastName: "Haddad", Email: "omar@example.com", Role: "DEVELOPER"},
			{FirstName: "Lea", LastName: "Kim", Email: "lea@example.com", Role: "QA"},
		}
		if err := tx.Create(&users).Error; err != nil {
			return err
		}
		jane, omar, lea := &users[0].ID, &users[1].ID, &users[2].ID

		project := models.Project{
			Name:        "Apollo Mobile",
			Key:         DemoProjectKey,
			Description: "Customer mobile app for booking trips and paying for them.",
			CreatedAt:   at(-40),
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		projectID = project.ID

		sprints := []models.Sprint{
			{ProjectID: project.ID, Name: "Sprint 1", Goal: "Ship authentication", StartDate: at(-28), EndDate: at(-14), Status: models.SprintCompleted, Capacity: 40},
			{ProjectID: project.ID, Name: "Sprint 2", Goal: "Payments MVP", StartDate: at(-7), EndDate: at(7), Status: models.SprintActive, Capacity: 40},
			{ProjectID: project.ID, Name: "Sprint 3", Goal: "Notifications", StartDate: at(7), EndDate: at(21), Status: models.SprintPlanned, Capacity: 20},
		}
		if err := tx.Create(&sprints).Error; err != nil {
			return err
		}
		s1, s2 := &sprints[0].ID, &sprints[1].ID

		tasks := []models.Task{
			{SprintID: s1, AssigneeID: jane, Key: "APL-1", Title: "Login screen", Description: "Email and password sign in.", Priority: models.PriorityHigh, Status: models.StatusDone, StoryPoints: 3, Estimate: 8, DueDate: ptr(at(-20)), CompletedAt: ptr(at(-21)), CreatedAt: at(-30)},
			{SprintID: s1, AssigneeID: omar, Key: "APL-2", Title: "Password reset", Description: "Reset link sent by email.", Priority: models.PriorityMedium, Status: models.StatusDone, StoryPoints: 2, Estimate: 5, DueDate: ptr(at(-18)), CompletedAt: ptr(at(-14)), CreatedAt: at(-30)},
			{SprintID: s1, AssigneeID: lea, Key: "APL-3", Title: "Session refresh", Description: "Refresh tokens before expiry.", Priority: models.PriorityMedium, Status: models.StatusInProgress, StoryPoints: 3, Estimate: 6, DueDate: ptr(at(-15)), CreatedAt: at(-29)},
			{SprintID: s2, AssigneeID: jane, Key: "APL-4", Title: "Card payment flow", Description: "Pay for a booking with a saved card.", Priority: models.PriorityHighest, Status: models.StatusInProgress, StoryPoints: 8, Estimate: 16, DueDate: ptr(at(5)), CreatedAt: at(-9)},
			{SprintID: s2, AssigneeID: omar, Key: "APL-5", Title: "Receipt email", Description: "Send a receipt after payment.", Priority: models.PriorityMedium, Status: models.StatusTodo, StoryPoints: 3, Estimate: 6, DueDate: ptr(at(-1)), CreatedAt: at(-9)},
			{SprintID: s2, AssigneeID: lea, Key: "APL-6", Title: "Refund API", Description: "Partial and full refunds.", Priority: models.PriorityHigh, Status: models.StatusTodo, StoryPoints: 5, Estimate: 10, DueDate: ptr(at(6)), CreatedAt: at(-3)},
			{Key: "APL-7", Title: "Dark mode", Description: "Follow the system theme.", Priority: models.PriorityLow, Status: models.StatusBacklog, StoryPoints: 2, Estimate: 5, CreatedAt: at(-20)},
			{Key: "APL-8", Title: "Push notifications", Description: "Trip reminders on the device.", Priority: models.PriorityHigh, Status: models.StatusTodo, StoryPoints: 5, Estimate: 8, CreatedAt: at(-12)},
			{Key: "APL-9", Title: "Analytics dashboard", Description: "Bookings per day for the ops team.", Priority: models.PriorityMedium, Status: models.StatusBacklog, StoryPoints: 3, Estimate: 10, CreatedAt: at(-10)},
			{Key: "APL-10", Title: "Remove legacy API client", Priority: models.PriorityLowest, Status: models.StatusDone, StoryPoints: 1, Estimate: 2, CompletedAt: ptr(at(-25)), CreatedAt: at(-35)},
		}
		for i := range tasks {
			tasks[i].ProjectID = project.ID
		}
		if err := tx.Create(&tasks).Error; err != nil {
			return err
		}

		change := func(t models.Task, from, to models.TaskStatus, d int) models.Activity {
			return models.Activity{TaskID: t.ID, Type: models.ActivityStatusChanged, OldValue: string(from), NewValue: string(to), CreatedAt: at(d)}
		}
		activities := []models.Activity{
			change(tasks[0], models.StatusTodo, models.StatusInProgress, -26),
			change(tasks[0], models.StatusInProgress, models.StatusDone, -21),
			change(tasks[2], models.StatusTodo, models.StatusInProgress, -25),
			change(tasks[2], models.StatusInProgress, models.StatusInReview, -20),
			change(tasks[2], models.StatusInReview, models.StatusInProgress, -18),
			change(tasks[2], models.StatusInProgress, models.StatusInReview, -16),
			change(tasks[2], models.StatusInReview, models.StatusInProgress, -15),
			change(tasks[3], models.StatusTodo, models.StatusInProgress, -6),
		}
		return tx.Create(&activities).Error
	})
	if err != nil {
		return 0, fmt.Errorf("seed demo project: %w", err)
	}
	return projectID, nil
}
