package service

import (
	"context"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// ProjectProvider supplies the structured project data the pipeline reads.
type ProjectProvider interface {
	GetProjectSprintsAndTasks(ctx context.Context, projectID uint) (models.ProjectNarrative, error)
	FindSprint(ctx context.Context, sprintID uint) (models.Sprint, error)
	TasksBySprint(ctx context.Context, sprintID uint) ([]models.Task, error)
	UnassignedOpenTasks(ctx context.Context, projectID uint) ([]models.Task, error)
	StatusChangeCounts(ctx context.Context, taskIDs []uint) (map[uint]int, error)
}

// ChatService indexes projects and answers free-form questions about them.
type ChatService interface {
	Ingest(ctx context.Context, caller models.Caller, projectID uint) (models.IngestResult, error)
	Query(ctx context.Context, caller models.Caller, projectID uint, question string) (models.ChatAnswer, error)
}

// AIService runs the structured planning use cases.
type AIService interface {
	SuggestSprint(ctx context.Context, caller models.Caller, req models.SuggestSprintRequest) (models.SuggestSprintResult, error)
	DetectScopeCreep(ctx context.Context, caller models.Caller, req models.SprintRequest) (models.ScopeCreepResult, error)
	GenerateRiskHeatmap(ctx context.Context, caller models.Caller, req models.SprintRequest) (models.RiskHeatmapResult, error)
	GenerateRetrospective(ctx context.Context, caller models.Caller, req models.SprintRequest) ([]models.RetrospectiveEntry, error)
}
