package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var caller = models.Caller{Email: "pm@example.com"}

func demoProvider() *fakeProvider {
	dev := &models.User{ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: "DEVELOPER"}
	qa := &models.User{ID: 8, FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Role: "QA"}
	return &fakeProvider{
		project: models.Project{ID: 1, Name: "Orion", Key: "ORN", Description: "Internal billing platform."},
		sprints: []models.Sprint{
			{ID: 10, ProjectID: 1, Name: "Sprint 2", Goal: "Invoices", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 14), Status: models.SprintActive, Capacity: 20},
		},
		tasks: []models.Task{
			{ID: 1, ProjectID: 1, SprintID: uintPtr(10), Key: "ORN-1", Title: "Invoice PDF", Priority: models.PriorityHigh, Status: models.StatusInProgress, Estimate: 40, CreatedAt: date(2023, 12, 30), DueDate: timePtr(date(2024, 1, 3)), Assignee: dev},
			{ID: 2, ProjectID: 1, SprintID: uintPtr(10), Key: "ORN-2", Title: "Tax rules", Priority: models.PriorityMedium, Status: models.StatusTodo, Estimate: 10, CreatedAt: date(2024, 1, 5), DueDate: timePtr(date(2024, 1, 12)), Assignee: qa},
			{ID: 3, ProjectID: 1, Key: "ORN-3", Title: "Dunning emails", Priority: models.PriorityLow, Status: models.StatusBacklog, Estimate: 10},
			{ID: 4, ProjectID: 1, Key: "ORN-4", Title: "Currency support", Priority: models.PriorityHigh, Status: models.StatusTodo, Estimate: 5},
			{ID: 5, ProjectID: 1, Key: "ORN-5", Title: "Export CSV", Priority: models.PriorityMedium, Status: models.StatusTodo, Estimate: 8},
			{ID: 6, ProjectID: 1, Key: "ORN-6", Title: "Old report", Priority: models.PriorityHighest, Status: models.StatusDone, Estimate: 3},
		},
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	h := newHarness(demoProvider(), RAGOptions{ChunkWords: 40})
	ctx := context.Background()

	first, err := h.svc.Ingest(ctx, caller, 1)
	require.NoError(t, err)
	require.Greater(t, first.Chunks, 1)
	before, err := h.store.ListBySource(ctx, "1")
	require.NoError(t, err)

	second, err := h.svc.Ingest(ctx, caller, 1)
	require.NoError(t, err)
	after, err := h.store.ListBySource(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Text, after[i].Text)
		assert.Equal(t, before[i].Vector, after[i].Vector)
	}
	for _, c := range after {
		assert.LessOrEqual(t, len(strings.Fields(c.Text)), 40)
	}
}

func TestIngestReplacesPreviousChunks(t *testing.T) {
	p := demoProvider()
	h := newHarness(p, RAGOptions{})
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, caller, 1)
	require.NoError(t, err)

	p.narrative = &models.ProjectNarrative{Project: models.Project{ID: 1, Name: "Renamed", Key: "NEW"}}
	_, err = h.svc.Ingest(ctx, caller, 1)
	require.NoError(t, err)

	got, err := h.store.FindSimilar(ctx, make([]float32, testDim), "1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Renamed")
	assert.NotContains(t, got[0], "ORN-1")
}

func TestIngestFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown project", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		_, err := h.svc.Ingest(ctx, caller, 99)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		_, err := h.svc.Ingest(ctx, caller, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("embedding provider down keeps old chunks", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		_, err := h.svc.Ingest(ctx, caller, 1)
		require.NoError(t, err)
		before, _ := h.store.ListBySource(ctx, "1")

		h.embedder.err = errProviderDown
		_, err = h.svc.Ingest(ctx, caller, 1)
		assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)

		after, _ := h.store.ListBySource(ctx, "1")
		assert.Equal(t, before, after)
	})
}

func TestConcurrentIngestsSucceed(t *testing.T) {
	h := newHarness(demoProvider(), RAGOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Ingest(ctx, caller, 1)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	chunks, err := h.store.ListBySource(ctx, "1")
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestIngestSurvivesCancelledCaller(t *testing.T) {
	h := newHarness(demoProvider(), RAGOptions{})
	gate := make(chan struct{})
	h.embedder.gate = gate

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.svc.Ingest(first, caller, 1)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return h.embedder.callCount() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	secondErr := make(chan error, 1)
	go func() {
		_, err := h.svc.Ingest(context.Background(), caller, 1)
		secondErr <- err
	}()
	close(gate)
	require.NoError(t, <-secondErr)

	require.Eventually(t, func() bool {
		chunks, err := h.store.ListBySource(context.Background(), "1")
		return err == nil && len(chunks) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestQuery(t *testing.T) {
	h := newHarness(demoProvider(), RAGOptions{ChunkWords: 30})
	ctx := context.Background()
	_, err := h.svc.Ingest(ctx, caller, 1)
	require.NoError(t, err)

	h.llm.reply = "  ORN-2 is assigned to Alan Turing.  "
	answer, err := h.svc.Query(ctx, caller, 1, "Who works on tax rules?")
	require.NoError(t, err)
	assert.Equal(t, "ORN-2 is assigned to Alan Turing.", answer.Answer)

	prompt := h.llm.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, "Context:\n1. "))
	assert.Contains(t, prompt, "\n3. ")
	assert.NotContains(t, prompt, "\n4. ")
	assert.True(t, strings.HasSuffix(prompt, "User Question: Who works on tax rules?"))
}

func TestQueryFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("blank question", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		_, err := h.svc.Query(ctx, caller, 1, "   ")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("embedding failure is returned", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.embedder.err = errProviderDown
		_, err := h.svc.Query(ctx, caller, 1, "status?")
		assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)
		assert.Empty(t, h.llm.prompts)
	})

	t.Run("generation failure degrades", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.err = errProviderDown
		answer, err := h.svc.Query(ctx, caller, 1, "status?")
		require.NoError(t, err)
		assert.Equal(t, ChatUnavailableAnswer, answer.Answer)
	})

	t.Run("project without chunks still answers", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.reply = "No data yet."
		answer, err := h.svc.Query(ctx, caller, 42, "status?")
		require.NoError(t, err)
		assert.Equal(t, "No data yet.", answer.Answer)
		assert.Contains(t, h.llm.lastPrompt(), "(no stored project context)")
	})
}

func suggestProvider() *fakeProvider {
	return &fakeProvider{
		project: models.Project{ID: 1, Name: "P"},
		sprints: []models.Sprint{{ID: 1, ProjectID: 1, Name: "S1", Capacity: 20}},
		tasks: []models.Task{
			{ID: 3, ProjectID: 1, Key: "T-3", Estimate: 10, Priority: models.PriorityLow, Status: models.StatusTodo},
			{ID: 1, ProjectID: 1, Key: "T-1", Estimate: 5, Priority: models.PriorityHigh, Status: models.StatusTodo},
			{ID: 2, ProjectID: 1, Key: "T-2", Estimate: 8, Priority: models.PriorityMedium, Status: models.StatusBacklog},
		},
	}
}

func TestSuggestSprintPrompt(t *testing.T) {
	h := newHarness(suggestProvider(), RAGOptions{})
	h.llm.reply = "```\nT-1, T-2,  \n```"

	got, err := h.svc.SuggestSprint(context.Background(), caller, models.SuggestSprintRequest{ProjectID: 1, SprintID: uintPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"T-1", "T-2"}, got.TaskKeys)
	assert.Equal(t, 20, got.Capacity)

	prompt := h.llm.lastPrompt()
	assert.Contains(t, prompt, "Here are 3 upcoming tasks:")
	assert.Contains(t, prompt, "capacity of 20 hours")
	i1 := strings.Index(prompt, "- Task: T-1, Estimate: 5h, Priority: HIGH\n")
	i2 := strings.Index(prompt, "- Task: T-2, Estimate: 8h, Priority: MEDIUM\n")
	i3 := strings.Index(prompt, "- Task: T-3, Estimate: 10h, Priority: LOW\n")
	require.True(t, i1 >= 0 && i2 >= 0 && i3 >= 0, prompt)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func TestSuggestSprintCapacity(t *testing.T) {
	ctx := context.Background()
	p := suggestProvider()
	p.sprints = append(p.sprints,
		models.Sprint{ID: 2, ProjectID: 1, Capacity: 35},
		models.Sprint{ID: 3, ProjectID: 2, Capacity: 50},
		models.Sprint{ID: 4, ProjectID: 1, Capacity: 0},
	)
	h := newHarness(p, RAGOptions{DefaultCapacity: 20})
	h.llm.reply = "T-1"

	cases := []struct {
		name     string
		sprintID *uint
		want     int
	}{
		{"no sprint", nil, 20},
		{"configured sprint", uintPtr(2), 35},
		{"sprint of another project", uintPtr(3), 20},
		{"unknown sprint", uintPtr(99), 20},
		{"sprint without capacity", uintPtr(4), 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.svc.SuggestSprint(ctx, caller, models.SuggestSprintRequest{ProjectID: 1, SprintID: tc.sprintID})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Capacity)
			assert.Contains(t, h.llm.lastPrompt(), fmt.Sprintf("capacity of %d hours", tc.want))
		})
	}
}

func TestSuggestSprintKeepsOfferedKeys(t *testing.T) {
	h := newHarness(suggestProvider(), RAGOptions{})
	h.llm.reply = "Selected tasks: T-1, T-9, T-2.\nT-1"

	got, err := h.svc.SuggestSprint(context.Background(), caller, models.SuggestSprintRequest{ProjectID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"T-1", "T-2"}, got.TaskKeys)
}

func TestSuggestSprintDegrades(t *testing.T) {
	h := newHarness(suggestProvider(), RAGOptions{})
	h.llm.err = errProviderDown

	got, err := h.svc.SuggestSprint(context.Background(), caller, models.SuggestSprintRequest{ProjectID: 1})
	require.NoError(t, err)
	assert.NotNil(t, got.TaskKeys)
	assert.Empty(t, got.TaskKeys)
}

func TestSuggestSprintWithoutCandidates(t *testing.T) {
	h := newHarness(&fakeProvider{project: models.Project{ID: 1}}, RAGOptions{})
	got, err := h.svc.SuggestSprint(context.Background(), caller, models.SuggestSprintRequest{ProjectID: 1})
	require.NoError(t, err)
	assert.Empty(t, got.TaskKeys)
	assert.Empty(t, h.llm.prompts)
}

func TestComputeScopeCreep(t *testing.T) {
	sprint := models.Sprint{StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tasks := []models.Task{
		{Key: "A", Estimate: 10, CreatedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{Key: "B", Estimate: 40, CreatedAt: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)},
	}
	st := ComputeScopeCreep(sprint, tasks)
	assert.Equal(t, 10, st.AddedEstimate)
	assert.Equal(t, 40, st.OriginalEstimate)
	// 10h added against 40h planned is 25%, above the 20% line.
	assert.True(t, st.Flag())

	tasks[0].Estimate = 8
	st = ComputeScopeCreep(sprint, tasks)
	assert.Equal(t, 8, st.AddedEstimate)
	assert.False(t, st.Flag())

	// later on the start day still counts as planned
	sameDay := append(tasks, models.Task{Key: "C", Estimate: 5, CreatedAt: time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)})
	st = ComputeScopeCreep(sprint, sameDay)
	assert.Equal(t, 45, st.OriginalEstimate)

	assert.True(t, ScopeCreepStats{OriginalEstimate: 40, AddedEstimate: 9}.Flag())
	assert.False(t, ScopeCreepStats{OriginalEstimate: 40, AddedEstimate: 8}.Flag())
	assert.False(t, ScopeCreepStats{OriginalEstimate: 0, AddedEstimate: 8}.Flag())
}

func TestDetectScopeCreep(t *testing.T) {
	ctx := context.Background()
	req := models.SprintRequest{ProjectID: 1, SprintID: 10}

	// 8h added against 40h planned stays under the heuristic threshold.
	calmSprint := func() *fakeProvider {
		p := demoProvider()
		p.tasks[1].Estimate = 8
		return p
	}

	t.Run("model verdict", func(t *testing.T) {
		h := newHarness(calmSprint(), RAGOptions{})
		h.llm.reply = "```json\n{\"sprintName\": \"Sprint 2\", \"reason\": \"**Only** minor additions.\", \"scopeCreepDetected\": false}\n```"

		got, err := h.svc.DetectScopeCreep(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, "Sprint 2", got.SprintName)
		assert.Equal(t, "Only minor additions.", got.Reason)
		assert.False(t, got.ScopeCreepDetected)
		assert.False(t, got.HeuristicFlag)
		assert.Equal(t, 8, got.AddedEstimate)
		assert.Equal(t, 40, got.OriginalEstimate)
		assert.Empty(t, got.WarningMessage)

		prompt := h.llm.lastPrompt()
		assert.Contains(t, prompt, "Original estimate (tasks created on or before the start date): 40 hours.")
		assert.Contains(t, prompt, "ORN-2 (8h, created 2024-01-05)")
		assert.Contains(t, prompt, scopeCreepInstructions)
		assert.Contains(t, h.embedder.calls, scopeCreepInstructions)
	})

	t.Run("model can raise the flag", func(t *testing.T) {
		h := newHarness(calmSprint(), RAGOptions{})
		h.llm.reply = `{"sprintName": "Sprint 2", "reason": "Tax rules arrived late.", "scopeCreepDetected": true}`
		got, err := h.svc.DetectScopeCreep(ctx, caller, req)
		require.NoError(t, err)
		assert.True(t, got.ScopeCreepDetected)
		assert.False(t, got.HeuristicFlag)
	})

	t.Run("heuristic raises the flag over the model", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.reply = `{"sprintName": "Sprint 2", "reason": "Looks stable.", "scopeCreepDetected": false}`
		got, err := h.svc.DetectScopeCreep(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, 10, got.AddedEstimate)
		assert.True(t, got.HeuristicFlag)
		assert.True(t, got.ScopeCreepDetected)
	})

	t.Run("gateway failure keeps heuristic", func(t *testing.T) {
		p := demoProvider()
		p.tasks[1].Estimate = 20
		h := newHarness(p, RAGOptions{})
		h.llm.err = errProviderDown

		got, err := h.svc.DetectScopeCreep(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, ScopeCreepUnavailable, got.WarningMessage)
		assert.True(t, got.ScopeCreepDetected)
		assert.True(t, got.HeuristicFlag)
		assert.Equal(t, "Sprint 2", got.SprintName)
	})

	t.Run("unparseable reply fails", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.reply = "Scope looks fine to me."
		_, err := h.svc.DetectScopeCreep(ctx, caller, req)
		assert.ErrorIs(t, err, models.ErrResponseParse)
	})

	t.Run("unknown sprint is empty", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		got, err := h.svc.DetectScopeCreep(ctx, caller, models.SprintRequest{ProjectID: 1, SprintID: 99})
		require.NoError(t, err)
		assert.Equal(t, models.ScopeCreepResult{}, got)
		assert.Empty(t, h.llm.prompts)
	})

	t.Run("sprint of another project is empty", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		got, err := h.svc.DetectScopeCreep(ctx, caller, models.SprintRequest{ProjectID: 2, SprintID: 10})
		require.NoError(t, err)
		assert.Equal(t, models.ScopeCreepResult{}, got)
	})
}

func TestComputeMemberLoads(t *testing.T) {
	now := date(2024, 1, 8)
	tasks := demoProvider().tasks[:2]
	tasks = append(tasks, models.Task{Key: "X", Status: models.StatusTodo, Estimate: 2})

	loads := ComputeMemberLoads(tasks, now)
	require.Len(t, loads, 3)
	assert.Equal(t, MemberLoad{Name: "Ada Lovelace", Tasks: 1, Hours: 40, InProgress: 1, Overdue: 1}, loads[0])
	assert.Equal(t, MemberLoad{Name: "Alan Turing", Tasks: 1, Hours: 10, Todo: 1}, loads[1])
	assert.Equal(t, MemberLoad{Name: unassignedMember, Tasks: 1, Hours: 2, Todo: 1}, loads[2])

	risk := LocalRiskMap(loads, 30)
	assert.Equal(t, "at risk (1 overdue, 40h load)", risk["Ada Lovelace"])
	assert.Equal(t, "balanced", risk["Alan Turing"])
	assert.Equal(t, "balanced", risk[unassignedMember])
}

func TestGenerateRiskHeatmap(t *testing.T) {
	ctx := context.Background()
	req := models.SprintRequest{ProjectID: 1, SprintID: 10}
	now := func() time.Time { return date(2024, 1, 8) }

	t.Run("model reply", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{Now: now})
		h.llm.reply = `Here you go:
{"riskType": "high", "details": "Invoice PDF is overdue.", "sprint": "Sprint 2", "userRiskMap": {"Ada Lovelace": "high", "Alan Turing": "low"}}`

		got, err := h.svc.GenerateRiskHeatmap(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, "high", got.RiskType)
		assert.Equal(t, "Invoice PDF is overdue.", got.Details)
		assert.Equal(t, map[string]string{"Ada Lovelace": "high", "Alan Turing": "low"}, got.UserRiskMap)
		assert.Contains(t, h.llm.lastPrompt(), "- Ada Lovelace: 1 tasks, 40 open hours, 1 in progress, 0 not started, 1 overdue")
	})

	t.Run("model omits member map", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{Now: now})
		h.llm.reply = `{"riskType": "medium", "details": "Watch the PDF work.", "sprint": ""}`
		got, err := h.svc.GenerateRiskHeatmap(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, "Sprint 2", got.Sprint)
		assert.Equal(t, "at risk (1 overdue, 40h load)", got.UserRiskMap["Ada Lovelace"])
	})

	t.Run("gateway failure uses local map", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{Now: now})
		h.llm.err = errProviderDown
		got, err := h.svc.GenerateRiskHeatmap(ctx, caller, req)
		require.NoError(t, err)
		assert.Equal(t, "unknown", got.RiskType)
		assert.Equal(t, RiskHeatmapUnavailable, got.Details)
		assert.Equal(t, "Sprint 2", got.Sprint)
		assert.Equal(t, map[string]string{
			"Ada Lovelace": "at risk (1 overdue, 40h load)",
			"Alan Turing":  "balanced",
		}, got.UserRiskMap)
	})

	t.Run("missing fields fail", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{Now: now})
		h.llm.reply = `{"details": "no type"}`
		_, err := h.svc.GenerateRiskHeatmap(ctx, caller, req)
		assert.ErrorIs(t, err, models.ErrResponseParse)
	})

	t.Run("missing sprint id", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{Now: now})
		_, err := h.svc.GenerateRiskHeatmap(ctx, caller, models.SprintRequest{ProjectID: 1})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestComputeRetroStats(t *testing.T) {
	due := date(2024, 1, 10)
	tasks := []models.Task{
		{ID: 1, Key: "A", Status: models.StatusDone, DueDate: &due, CompletedAt: timePtr(due.Add(72 * time.Hour))},
		{ID: 2, Key: "B", Status: models.StatusDone, DueDate: &due, CompletedAt: timePtr(due.Add(24 * time.Hour))},
		{ID: 3, Key: "C", Status: models.StatusInProgress},
		{ID: 4, Key: "D", Status: models.StatusDone},
	}
	st := ComputeRetroStats(tasks, map[uint]int{1: 1, 3: 3, 4: 2})
	assert.Equal(t, RetroStats{Total: 4, Completed: 3, CarriedOver: 1, Late: []string{"A"}, Churned: []string{"C"}}, st)
}

func TestGenerateRetrospective(t *testing.T) {
	ctx := context.Background()
	req := models.SprintRequest{ProjectID: 1, SprintID: 10}

	t.Run("parses every block", func(t *testing.T) {
		p := demoProvider()
		p.changes = map[uint]int{1: 4}
		h := newHarness(p, RAGOptions{})
		h.llm.reply = "**Sprint Name:** Sprint 2\n**Sprint ID:** 10\n**What went well:** PDF layout landed.\n**What did not go well:** Tax rules slipped.\n**Suggestions:** Split large tasks.\n---\nSprint Name: Sprint 2 (team B)\nWhat went well: Pairing.\nWhat did not go well: Reviews were slow.\nSuggestions: Review daily."

		got, err := h.svc.GenerateRetrospective(ctx, caller, req)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Sprint 2", got[0].SprintName)
		assert.Equal(t, "10", got[0].SprintID)
		assert.Equal(t, "Split large tasks.", got[0].Suggestions)
		assert.Equal(t, "Review daily.", got[1].Suggestions)

		prompt := h.llm.lastPrompt()
		assert.Contains(t, prompt, "Tasks: 2 total, 0 completed, 2 carried over.")
		assert.Contains(t, prompt, "Changed status more than twice: ORN-1.")
	})

	t.Run("gateway failure", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.err = errProviderDown
		got, err := h.svc.GenerateRetrospective(ctx, caller, req)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Sprint 2", got[0].SprintName)
		assert.Equal(t, RetrospectiveUnavailable, got[0].WhatWentWell)
		assert.Equal(t, RetrospectiveUnavailable, got[0].WhatDidNotGoWell)
		assert.Equal(t, RetrospectiveUnavailable, got[0].Suggestions)
	})

	t.Run("unmatched reply is an empty list", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		h.llm.reply = "The sprint was fine."
		got, err := h.svc.GenerateRetrospective(ctx, caller, req)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unknown sprint", func(t *testing.T) {
		h := newHarness(demoProvider(), RAGOptions{})
		got, err := h.svc.GenerateRetrospective(ctx, caller, models.SprintRequest{ProjectID: 1, SprintID: 77})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSortByPriority(t *testing.T) {
	tasks := []models.Task{
		{Key: "a", Priority: "UNKNOWN"},
		{Key: "b", Priority: models.PriorityLowest},
		{Key: "c", Priority: models.PriorityHigh},
		{Key: "d", Priority: models.PriorityHighest},
		{Key: "e", Priority: models.PriorityHigh},
		{Key: "f", Priority: "medium"},
	}
	SortByPriority(tasks)
	got := make([]string, len(tasks))
	for i, t := range tasks {
		got[i] = t.Key
	}
	assert.Equal(t, []string{"d", "c", "e", "f", "b", "a"}, got)
}
