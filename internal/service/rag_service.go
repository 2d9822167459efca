package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"golang.org/x/sync/singleflight"
)

// Fallback texts used when the model cannot be reached.
const (
	ChatUnavailableAnswer      = "The assistant is unavailable right now. Please try again later."
	ScopeCreepUnavailable      = "Could not analyze scope creep."
	RiskHeatmapUnavailable     = "Could not generate risk heatmap."
	RetrospectiveUnavailable   = "Could not generate retrospective."
	DefaultSprintCapacityHours = 20
	scopeCreepThreshold        = 0.2
)

// RAGOptions tunes the pipeline. Zero values fall back to defaults.
type RAGOptions struct {
	ChunkWords      int
	DefaultCapacity int
	Now             func() time.Time
}

// RAGService composes summarizing, chunking, embedding, retrieval and
// generation into the ingest, chat and planning operations.
type RAGService struct {
	provider   ProjectProvider
	summarizer Summarizer
	embedder   *EmbeddingClient
	store      ChunkStore
	assembler  *ContextAssembler
	gateway    *Gateway
	opts       RAGOptions

	taskKeys   ResponseParser[[]string]
	scopeCreep ResponseParser[models.ScopeCreepReply]
	risk       ResponseParser[models.RiskHeatmapResult]
	retro      ResponseParser[[]models.RetrospectiveEntry]

	ingests singleflight.Group
}

var (
	_ ChatService = (*RAGService)(nil)
	_ AIService   = (*RAGService)(nil)
)

// NewRAGService wires the pipeline with the tolerant reply parsers.
func NewRAGService(
	provider ProjectProvider,
	summarizer Summarizer,
	embedder *EmbeddingClient,
	store ChunkStore,
	assembler *ContextAssembler,
	gateway *Gateway,
	opts RAGOptions,
) *RAGService {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = DefaultSprintCapacityHours
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RAGService{
		provider:   provider,
		summarizer: summarizer,
		embedder:   embedder,
		store:      store,
		assembler:  assembler,
		gateway:    gateway,
		opts:       opts,
		taskKeys:   TaskKeyParser{},
		scopeCreep: ScopeCreepParser{},
		risk:       RiskHeatmapParser{},
		retro:      RetrospectiveParser{},
	}
}

func sourceID(projectID uint) string {
	return strconv.FormatUint(uint64(projectID), 10)
}

// Ingest rebuilds the chunk index of a project: summarize, chunk, embed every
// chunk, then replace the project's stored chunks. Concurrent ingests of one
// project share a single run, which is not cancelled with the caller's ctx.
func (s *RAGService) Ingest(ctx context.Context, caller models.Caller, projectID uint) (models.IngestResult, error) {
	if projectID == 0 {
		return models.IngestResult{}, fmt.Errorf("%w: projectId is required", models.ErrInvalidInput)
	}
	src := sourceID(projectID)

	// The shared run outlives any single caller; a caller that gives up only
	// stops waiting.
	runCtx := context.WithoutCancel(ctx)
	ch := s.ingests.DoChan(src, func() (interface{}, error) {
		return s.ingest(runCtx, caller, projectID)
	})
	select {
	case <-ctx.Done():
		return models.IngestResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return models.IngestResult{}, r.Err
		}
		if r.Shared {
			log.Printf("[RAG] ingest of project %d by %s joined a running ingest", projectID, caller)
		}
		return r.Val.(models.IngestResult), nil
	}
}

func (s *RAGService) ingest(ctx context.Context, caller models.Caller, projectID uint) (models.IngestResult, error) {
	start := time.Now()
	narrative, err := s.provider.GetProjectSprintsAndTasks(ctx, projectID)
	if err != nil {
		return models.IngestResult{}, err
	}

	text, err := s.summarizer.Summarize(ctx, narrative)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("summarize project %d: %w", projectID, err)
	}

	chunks := ChunkText(text, s.opts.ChunkWords)
	inputs := make([]models.ChunkInput, 0, len(chunks))
	for i, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c)
		if err != nil {
			return models.IngestResult{}, fmt.Errorf("embed chunk %d of project %d: %w", i, projectID, err)
		}
		inputs = append(inputs, models.ChunkInput{Text: c, Vector: vec})
	}

	if err := s.store.ReplaceChunks(ctx, sourceID(projectID), inputs); err != nil {
		return models.IngestResult{}, fmt.Errorf("store chunks of project %d: %w", projectID, err)
	}
	log.Printf("[RAG] ingested project %d for %s: %d chunks from %d words in %s",
		projectID, caller, len(inputs), len(strings.Fields(text)), time.Since(start).Round(time.Millisecond))
	return models.IngestResult{ProjectID: projectID, Chunks: len(inputs)}, nil
}

// Query answers a free-form question grounded in the project's chunks. The
// model's text is returned as is.
func (s *RAGService) Query(ctx context.Context, caller models.Caller, projectID uint, question string) (models.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatAnswer{}, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}

	chunks, err := s.assembler.Retrieve(ctx, sourceID(projectID), question)
	if err != nil {
		return models.ChatAnswer{}, err
	}
	prompt := s.assembler.Prompt(chunks, "User Question: "+question)

	answer, err := s.gateway.Ask(ctx, prompt)
	if err != nil {
		log.Printf("[RAG] chat for %s on project %d degraded: %v", caller, projectID, err)
		return models.ChatAnswer{ProjectID: projectID, Answer: ChatUnavailableAnswer}, nil
	}
	log.Printf("[RAG] chat for %s on project %d used %d chunks", caller, projectID, len(chunks))
	return models.ChatAnswer{ProjectID: projectID, Answer: strings.TrimSpace(answer)}, nil
}

// sprintOf loads the sprint and checks it belongs to projectID.
func (s *RAGService) sprintOf(ctx context.Context, projectID, sprintID uint) (models.Sprint, error) {
	sprint, err := s.provider.FindSprint(ctx, sprintID)
	if err != nil {
		return models.Sprint{}, err
	}
	if projectID != 0 && sprint.ProjectID != projectID {
		return models.Sprint{}, fmt.Errorf("sprint %d in project %d: %w", sprintID, projectID, models.ErrNotFound)
	}
	return sprint, nil
}

// SortByPriority orders tasks from most to least urgent, keeping the input
// order between equal priorities.
func SortByPriority(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
	})
}

// SuggestSprint asks the model which open backlog tasks fit the sprint's
// capacity. Without a model reply the selection is empty.
func (s *RAGService) SuggestSprint(ctx context.Context, caller models.Caller, req models.SuggestSprintRequest) (models.SuggestSprintResult, error) {
	capacity := s.opts.DefaultCapacity
	if req.SprintID != nil {
		sprint, err := s.sprintOf(ctx, req.ProjectID, *req.SprintID)
		switch {
		case err == nil && sprint.Capacity > 0:
			capacity = sprint.Capacity
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return models.SuggestSprintResult{}, err
		}
	}
	result := models.SuggestSprintResult{TaskKeys: []string{}, Capacity: capacity}

	tasks, err := s.provider.UnassignedOpenTasks(ctx, req.ProjectID)
	if err != nil {
		return models.SuggestSprintResult{}, err
	}
	if len(tasks) == 0 {
		return result, nil
	}
	SortByPriority(tasks)

	reply, err := s.gateway.Ask(ctx, SuggestSprintPrompt(tasks, capacity))
	if err != nil {
		log.Printf("[RAG] sprint suggestion for %s on project %d degraded: %v", caller, req.ProjectID, err)
		return result, nil
	}
	keys, err := s.taskKeys.Parse(reply)
	if err != nil {
		return models.SuggestSprintResult{}, err
	}
	result.TaskKeys = candidateKeys(keys, tasks)
	log.Printf("[RAG] suggested %d of %d tasks for %s on project %d", len(keys), len(tasks), caller, req.ProjectID)
	return result, nil
}

// candidateKeys keeps the parsed entries that name one of the offered tasks,
// in reply order and without duplicates. An entry such as "Selected: APL-1"
// resolves to its last word.
func candidateKeys(parsed []string, tasks []models.Task) []string {
	offered := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		offered[t.Key] = true
	}
	seen := make(map[string]bool, len(parsed))
	keys := make([]string, 0, len(parsed))
	for _, p := range parsed {
		k := p
		if !offered[k] {
			words := strings.Fields(p)
			if len(words) == 0 {
				continue
			}
			k = strings.Trim(words[len(words)-1], taskKeyTrim+".:;")
		}
		if offered[k] && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// SuggestSprintPrompt lists the candidate tasks in the given order with the
// sprint capacity.
func SuggestSprintPrompt(tasks []models.Task, capacity int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a sprint planner. Here are %d upcoming tasks:\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- Task: %s, Estimate: %dh, Priority: %s\n", t.Key, t.Estimate, t.Priority)
	}
	fmt.Fprintf(&sb, "The current sprint has a capacity of %d hours.\n", capacity)
	sb.WriteString("Select the tasks that fit into this capacity, preferring higher priority work.\n")
	sb.WriteString("Return only a comma-separated list of task keys to assign to this sprint.")
	return sb.String()
}

// ScopeCreepStats splits a sprint's estimate into work planned before the
// start date and work added afterwards.
type ScopeCreepStats struct {
	OriginalEstimate int
	AddedEstimate    int
	Added            []models.Task
}

// Flag reports whether added work exceeds 20% of the original estimate.
func (st ScopeCreepStats) Flag() bool {
	return st.OriginalEstimate > 0 && st.AddedEstimate > 0 &&
		float64(st.AddedEstimate) > scopeCreepThreshold*float64(st.OriginalEstimate)
}

// ComputeScopeCreep counts a task as added when its creation date is after
// the sprint's start date. Only calendar days are compared.
func ComputeScopeCreep(sprint models.Sprint, tasks []models.Task) ScopeCreepStats {
	startDay := dayOf(sprint.StartDate)
	var st ScopeCreepStats
	for _, t := range tasks {
		if dayOf(t.CreatedAt).After(startDay) {
			st.AddedEstimate += t.Estimate
			st.Added = append(st.Added, t)
		} else {
			st.OriginalEstimate += t.Estimate
		}
	}
	return st
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const scopeCreepInstructions = `Assess scope creep in this sprint: work added after the sprint started, growth of the estimated hours against the original plan, and whether the sprint goal is still achievable.`

// DetectScopeCreep combines the local estimate-growth heuristic with the
// model's judgement. The sprint is flagged when either says so.
func (s *RAGService) DetectScopeCreep(ctx context.Context, caller models.Caller, req models.SprintRequest) (models.ScopeCreepResult, error) {
	sprint, tasks, ok, err := s.loadSprint(ctx, req)
	if err != nil || !ok {
		return models.ScopeCreepResult{}, err
	}

	st := ComputeScopeCreep(sprint, tasks)
	result := models.ScopeCreepResult{
		SprintName:         sprint.Name,
		ScopeCreepDetected: st.Flag(),
		HeuristicFlag:      st.Flag(),
		OriginalEstimate:   st.OriginalEstimate,
		AddedEstimate:      st.AddedEstimate,
	}

	chunks, err := s.assembler.Retrieve(ctx, sourceID(req.ProjectID), scopeCreepInstructions)
	if err != nil {
		return models.ScopeCreepResult{}, err
	}

	var facts strings.Builder
	writeSprintFacts(&facts, sprint)
	fmt.Fprintf(&facts, "Original estimate (tasks created on or before the start date): %d hours.\n", st.OriginalEstimate)
	fmt.Fprintf(&facts, "Added estimate (tasks created after the start date): %d hours", st.AddedEstimate)
	if len(st.Added) > 0 {
		added := make([]string, len(st.Added))
		for i, t := range st.Added {
			added[i] = fmt.Sprintf("%s (%dh, created %s)", t.Key, t.Estimate, t.CreatedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(&facts, " from %s", strings.Join(added, ", "))
	}
	facts.WriteString(".\n")
	if st.Flag() {
		facts.WriteString("Added work exceeds 20% of the original estimate.\n")
	} else {
		facts.WriteString("Added work does not exceed 20% of the original estimate.\n")
	}

	tail := facts.String() + "\nInstructions:\n" + scopeCreepInstructions + "\n" +
		fmt.Sprintf(`Respond with only a JSON object: {"sprintName": %q, "reason": "<one or two sentences>", "scopeCreepDetected": true or false}`, sprint.Name)

	reply, err := s.gateway.Ask(ctx, s.assembler.Prompt(chunks, tail))
	if err != nil {
		log.Printf("[RAG] scope creep for %s on sprint %d degraded: %v", caller, sprint.ID, err)
		result.WarningMessage = ScopeCreepUnavailable
		return result, nil
	}

	parsed, err := s.scopeCreep.Parse(reply)
	if err != nil {
		return models.ScopeCreepResult{}, err
	}
	if parsed.SprintName != "" {
		result.SprintName = parsed.SprintName
	}
	result.Reason = parsed.Reason
	result.ScopeCreepDetected = result.HeuristicFlag || parsed.ScopeCreepDetected
	log.Printf("[RAG] scope creep for %s on sprint %d: heuristic=%t detected=%t",
		caller, sprint.ID, result.HeuristicFlag, result.ScopeCreepDetected)
	return result, nil
}

// loadSprint returns ok=false when the sprint or project does not exist.
func (s *RAGService) loadSprint(ctx context.Context, req models.SprintRequest) (models.Sprint, []models.Task, bool, error) {
	if req.SprintID == 0 {
		return models.Sprint{}, nil, false, fmt.Errorf("%w: sprintId is required", models.ErrInvalidInput)
	}
	sprint, err := s.sprintOf(ctx, req.ProjectID, req.SprintID)
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("[RAG] %v; nothing to analyze", err)
		return models.Sprint{}, nil, false, nil
	}
	if err != nil {
		return models.Sprint{}, nil, false, err
	}
	tasks, err := s.provider.TasksBySprint(ctx, sprint.ID)
	if err != nil {
		return models.Sprint{}, nil, false, err
	}
	return sprint, tasks, true, nil
}

func writeSprintFacts(sb *strings.Builder, sprint models.Sprint) {
	fmt.Fprintf(sb, "Sprint: %s (id %d), goal: %s, from %s to %s, status %s, capacity %d hours.\n",
		sprint.Name, sprint.ID, orNone(sprint.Goal),
		sprint.StartDate.Format("2006-01-02"), sprint.EndDate.Format("2006-01-02"),
		sprint.Status, sprint.Capacity)
}

// MemberLoad is the per-assignee workload inside one sprint.
type MemberLoad struct {
	Name       string
	Tasks      int
	Hours      int
	InProgress int
	Todo       int
	Overdue    int
}

// Status is the local risk label for the member.
func (m MemberLoad) Status(share float64) string {
	if m.Overdue > 0 || (share > 0 && float64(m.Hours) > share) {
		return fmt.Sprintf("at risk (%d overdue, %dh load)", m.Overdue, m.Hours)
	}
	return "balanced"
}

const unassignedMember = "Unassigned"

// ComputeMemberLoads groups sprint tasks by assignee, sorted by name.
func ComputeMemberLoads(tasks []models.Task, now time.Time) []MemberLoad {
	byName := map[string]*MemberLoad{}
	for _, t := range tasks {
		name := unassignedMember
		if t.Assignee != nil {
			name = t.Assignee.FullName()
			if name == "" {
				name = t.Assignee.Email
			}
		}
		m, ok := byName[name]
		if !ok {
			m = &MemberLoad{Name: name}
			byName[name] = m
		}
		m.Tasks++
		if t.Done() {
			continue
		}
		m.Hours += t.Estimate
		switch t.Status {
		case models.StatusInProgress, models.StatusInReview:
			m.InProgress++
		default:
			m.Todo++
		}
		if t.DueDate != nil && t.DueDate.Before(now) {
			m.Overdue++
		}
	}

	out := make([]MemberLoad, 0, len(byName))
	for _, m := range byName {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LocalRiskMap labels each member as balanced or at risk. A member is at risk
// with overdue work or more open hours than an even share of the capacity.
func LocalRiskMap(loads []MemberLoad, capacity int) map[string]string {
	var share float64
	if capacity > 0 && len(loads) > 0 {
		share = float64(capacity) / float64(len(loads))
	}
	out := make(map[string]string, len(loads))
	for _, m := range loads {
		out[m.Name] = m.Status(share)
	}
	return out
}

const riskHeatmapInstructions = `Assess delivery risk for this sprint and for each team member: workload against capacity, overdue tasks, and work still in progress or not started.`

// GenerateRiskHeatmap rates the sprint's delivery risk overall and per member.
func (s *RAGService) GenerateRiskHeatmap(ctx context.Context, caller models.Caller, req models.SprintRequest) (models.RiskHeatmapResult, error) {
	sprint, tasks, ok, err := s.loadSprint(ctx, req)
	if err != nil || !ok {
		return models.RiskHeatmapResult{UserRiskMap: map[string]string{}}, err
	}

	loads := ComputeMemberLoads(tasks, s.opts.Now())
	local := LocalRiskMap(loads, sprint.Capacity)

	chunks, err := s.assembler.Retrieve(ctx, sourceID(req.ProjectID), riskHeatmapInstructions)
	if err != nil {
		return models.RiskHeatmapResult{}, err
	}

	var facts strings.Builder
	writeSprintFacts(&facts, sprint)
	facts.WriteString("Team workload (open work only):\n")
	for _, m := range loads {
		fmt.Fprintf(&facts, "- %s: %d tasks, %d open hours, %d in progress, %d not started, %d overdue\n",
			m.Name, m.Tasks, m.Hours, m.InProgress, m.Todo, m.Overdue)
	}
	tail := facts.String() + "\nInstructions:\n" + riskHeatmapInstructions + "\n" +
		fmt.Sprintf(`Respond with only a JSON object: {"riskType": "low" or "medium" or "high", "details": "<short explanation>", "sprint": %q, "userRiskMap": {"<member name>": "<risk status>"}}`, sprint.Name)

	reply, err := s.gateway.Ask(ctx, s.assembler.Prompt(chunks, tail))
	if err != nil {
		log.Printf("[RAG] risk heatmap for %s on sprint %d degraded: %v", caller, sprint.ID, err)
		return models.RiskHeatmapResult{
			RiskType:    "unknown",
			Details:     RiskHeatmapUnavailable,
			Sprint:      sprint.Name,
			UserRiskMap: local,
		}, nil
	}

	result, err := s.risk.Parse(reply)
	if err != nil {
		return models.RiskHeatmapResult{}, err
	}
	if result.Sprint == "" {
		result.Sprint = sprint.Name
	}
	if len(result.UserRiskMap) == 0 {
		result.UserRiskMap = local
	}
	log.Printf("[RAG] risk heatmap for %s on sprint %d: %s", caller, sprint.ID, result.RiskType)
	return result, nil
}

// RetroStats summarises how a sprint went.
type RetroStats struct {
	Total       int
	Completed   int
	CarriedOver int
	Late        []string
	Churned     []string
}

// ComputeRetroStats counts finished and carried-over tasks, tasks finished
// more than two days after their due date, and tasks whose status changed
// more than twice.
func ComputeRetroStats(tasks []models.Task, statusChanges map[uint]int) RetroStats {
	const lateAfter = 2 * 24 * time.Hour
	st := RetroStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Done() {
			st.Completed++
			if t.DueDate != nil && t.CompletedAt != nil && t.CompletedAt.Sub(*t.DueDate) > lateAfter {
				st.Late = append(st.Late, t.Key)
			}
		} else {
			st.CarriedOver++
		}
		if statusChanges[t.ID] > 2 {
			st.Churned = append(st.Churned, t.Key)
		}
	}
	return st
}

const retrospectiveInstructions = `Write a sprint retrospective: what went well, what did not go well, and concrete suggestions for the next sprint.`

// GenerateRetrospective writes a retrospective for the sprint. Reply blocks
// that cannot be read are skipped.
func (s *RAGService) GenerateRetrospective(ctx context.Context, caller models.Caller, req models.SprintRequest) ([]models.RetrospectiveEntry, error) {
	sprint, tasks, ok, err := s.loadSprint(ctx, req)
	if err != nil || !ok {
		return []models.RetrospectiveEntry{}, err
	}

	ids := make([]uint, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	changes, err := s.provider.StatusChangeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	st := ComputeRetroStats(tasks, changes)

	chunks, err := s.assembler.Retrieve(ctx, sourceID(req.ProjectID), retrospectiveInstructions)
	if err != nil {
		return nil, err
	}

	var facts strings.Builder
	writeSprintFacts(&facts, sprint)
	fmt.Fprintf(&facts, "Tasks: %d total, %d completed, %d carried over.\n", st.Total, st.Completed, st.CarriedOver)
	fmt.Fprintf(&facts, "Finished more than 2 days late: %s.\n", listOrNone(st.Late))
	fmt.Fprintf(&facts, "Changed status more than twice: %s.\n", listOrNone(st.Churned))

	tail := facts.String() + "\nInstructions:\n" + retrospectiveInstructions + "\n" +
		"Use exactly this plain-text format without markdown:\n" +
		fmt.Sprintf("Sprint Name: %s\nSprint ID: %d\nWhat went well: ...\nWhat did not go well: ...\nSuggestions: ...", sprint.Name, sprint.ID)

	reply, err := s.gateway.Ask(ctx, s.assembler.Prompt(chunks, tail))
	if err != nil {
		log.Printf("[RAG] retrospective for %s on sprint %d degraded: %v", caller, sprint.ID, err)
		return []models.RetrospectiveEntry{{
			SprintName:       sprint.Name,
			SprintID:         strconv.FormatUint(uint64(sprint.ID), 10),
			WhatWentWell:     RetrospectiveUnavailable,
			WhatDidNotGoWell: RetrospectiveUnavailable,
			Suggestions:      RetrospectiveUnavailable,
		}}, nil
	}

	entries, err := s.retro.Parse(reply)
	if err != nil {
		log.Printf("[RAG] retrospective for %s on sprint %d: %v", caller, sprint.ID, err)
		return []models.RetrospectiveEntry{}, nil
	}
	log.Printf("[RAG] retrospective for %s on sprint %d: %d entries", caller, sprint.ID, len(entries))
	return entries, nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
