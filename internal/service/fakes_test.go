package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/ahmednasr/sprint-ai/internal/repository"
)

var errProviderDown = errors.New("connection refused")

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	gate  chan struct{} // when set, Embed waits for it to close
	calls []string
	inner *HashEmbedder
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{inner: NewHashEmbedder(testDim)}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	err, gate := f.err, f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.inner.Embed(ctx, text)
}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) GenerateResponse(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeProvider struct {
	project   models.Project
	sprints   []models.Sprint
	tasks     []models.Task
	changes   map[uint]int
	narrative *models.ProjectNarrative
}

func (p *fakeProvider) GetProjectSprintsAndTasks(_ context.Context, projectID uint) (models.ProjectNarrative, error) {
	if projectID != p.project.ID {
		return models.ProjectNarrative{}, models.ErrNotFound
	}
	if p.narrative != nil {
		return *p.narrative, nil
	}
	n := models.ProjectNarrative{Project: p.project}
	for _, s := range p.sprints {
		st := models.SprintTasks{Sprint: s}
		for _, t := range p.tasks {
			if t.SprintID != nil && *t.SprintID == s.ID {
				st.Tasks = append(st.Tasks, t)
			}
		}
		n.Sprints = append(n.Sprints, st)
	}
	for _, t := range p.tasks {
		if t.SprintID == nil {
			n.Backlog = append(n.Backlog, t)
		}
	}
	return n, nil
}

func (p *fakeProvider) FindSprint(_ context.Context, sprintID uint) (models.Sprint, error) {
	for _, s := range p.sprints {
		if s.ID == sprintID {
			return s, nil
		}
	}
	return models.Sprint{}, models.ErrNotFound
}

func (p *fakeProvider) TasksBySprint(_ context.Context, sprintID uint) ([]models.Task, error) {
	var out []models.Task
	for _, t := range p.tasks {
		if t.SprintID != nil && *t.SprintID == sprintID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *fakeProvider) UnassignedOpenTasks(_ context.Context, projectID uint) ([]models.Task, error) {
	var out []models.Task
	for _, t := range p.tasks {
		if t.ProjectID == projectID && t.SprintID == nil && !t.Done() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *fakeProvider) StatusChangeCounts(_ context.Context, taskIDs []uint) (map[uint]int, error) {
	out := map[uint]int{}
	for _, id := range taskIDs {
		if n, ok := p.changes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

const testDim = 32

type harness struct {
	svc      *RAGService
	provider *fakeProvider
	embedder *fakeEmbedder
	llm      *fakeLLM
	store    *repository.ChunkMemory
}

func newHarness(p *fakeProvider, opts RAGOptions) *harness {
	h := &harness{
		provider: p,
		embedder: newFakeEmbedder(),
		llm:      &fakeLLM{},
		store:    repository.NewChunkMemory(testDim),
	}
	ec := NewEmbeddingClient(h.embedder, testDim, time.Second)
	gw := NewGateway(h.llm, time.Second, 0)
	h.svc = NewRAGService(p, TemplateSummarizer{}, ec, h.store, NewContextAssembler(ec, h.store, 3, 200), gw, opts)
	return h
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }
