package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoNarrative(t *testing.T) models.ProjectNarrative {
	t.Helper()
	n, err := demoProvider().GetProjectSprintsAndTasks(context.Background(), 1)
	require.NoError(t, err)
	return n
}

func TestTemplateSummarizerCoversEverything(t *testing.T) {
	n := demoNarrative(t)
	text, err := TemplateSummarizer{}.Summarize(context.Background(), n)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Project Orion has the key ORN. It is described as: Internal billing platform."))
	assert.Contains(t, text, "The project has 1 sprint and 4 backlog tasks.")
	assert.Contains(t, text, "Sprint Sprint 2 has the goal Invoices. It runs from January 1, 2024 to January 14, 2024 and its status is ACTIVE.")
	assert.Contains(t, text, "Its capacity is 20 hours. It contains 2 tasks.")
	assert.Contains(t, text, "It is assigned to Ada Lovelace (user 7, ada@example.com, role DEVELOPER).")
	assert.Contains(t, text, "It is due on January 3, 2024.")
	assert.Contains(t, text, "Backlog tasks that are not in any sprint:")
	assert.Contains(t, text, "It is not assigned to anyone.")
	assert.Contains(t, text, "It has no due date.")

	for _, key := range []string{"ORN-1", "ORN-2", "ORN-3", "ORN-4", "ORN-5", "ORN-6"} {
		assert.Contains(t, text, "Task "+key+" ")
	}
	assert.Less(t, strings.Index(text, "ORN-1"), strings.Index(text, "Backlog tasks"))
	assert.Greater(t, strings.Index(text, "ORN-3"), strings.Index(text, "Backlog tasks"))

	for _, marker := range []string{"**", "#", "```", "|"} {
		assert.NotContains(t, text, marker)
	}

	again, _ := TemplateSummarizer{}.Summarize(context.Background(), n)
	assert.Equal(t, text, again)
}

func TestTemplateSummarizerEmptyProject(t *testing.T) {
	text, err := TemplateSummarizer{}.Summarize(context.Background(), models.ProjectNarrative{
		Project: models.Project{Name: "Blank", Key: "BLK"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Project Blank has the key BLK. It has no description. The project has 0 sprints and 0 backlog tasks.\n\nThere are no backlog tasks.", text)
}

func TestLLMSummarizer(t *testing.T) {
	n := demoNarrative(t)
	ctx := context.Background()
	base, _ := TemplateSummarizer{}.Summarize(ctx, n)

	t.Run("uses complete rewrite", func(t *testing.T) {
		llm := &fakeLLM{reply: "**Orion** tracks ORN-1, ORN-2, ORN-3, ORN-4, ORN-5 and ORN-6 in plain words."}
		s := NewLLMSummarizer(NewGateway(llm, time.Second, 0))
		text, err := s.Summarize(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, "Orion tracks ORN-1, ORN-2, ORN-3, ORN-4, ORN-5 and ORN-6 in plain words.", text)
		assert.Contains(t, llm.lastPrompt(), base)
	})

	t.Run("falls back when a task is dropped", func(t *testing.T) {
		llm := &fakeLLM{reply: "Orion tracks ORN-1 only."}
		text, err := NewLLMSummarizer(NewGateway(llm, time.Second, 0)).Summarize(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, base, text)
	})

	t.Run("falls back when the model is down", func(t *testing.T) {
		llm := &fakeLLM{err: errProviderDown}
		text, err := NewLLMSummarizer(NewGateway(llm, time.Second, 0)).Summarize(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, base, text)
	})
}
