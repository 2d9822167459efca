package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// Summarizer turns a project into prose for indexing.
type Summarizer interface {
	Summarize(ctx context.Context, n models.ProjectNarrative) (string, error)
}

const narrativeDate = "January 2, 2006"

// TemplateSummarizer renders the narrative deterministically: a project
// paragraph, one paragraph per sprint followed by its tasks, then the
// backlog. The output is plain sentences without markup.
type TemplateSummarizer struct{}

// Summarize never fails.
func (TemplateSummarizer) Summarize(_ context.Context, n models.ProjectNarrative) (string, error) {
	var sb strings.Builder
	p := n.Project

	fmt.Fprintf(&sb, "Project %s has the key %s.", orNone(p.Name), orNone(p.Key))
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(&sb, " It is described as: %s", sentence(d))
	} else {
		sb.WriteString(" It has no description.")
	}
	fmt.Fprintf(&sb, " The project has %s and %s.\n\n",
		plural(len(n.Sprints), "sprint"), plural(len(n.Backlog), "backlog task"))

	for _, st := range n.Sprints {
		s := st.Sprint
		fmt.Fprintf(&sb, "Sprint %s", orNone(s.Name))
		if g := strings.TrimSpace(s.Goal); g != "" {
			fmt.Fprintf(&sb, " has the goal %s", sentence(g))
		} else {
			sb.WriteString(" has no stated goal.")
		}
		fmt.Fprintf(&sb, " It runs from %s to %s and its status is %s.",
			formatDate(s.StartDate), formatDate(s.EndDate), orNone(string(s.Status)))
		if s.Capacity > 0 {
			fmt.Fprintf(&sb, " Its capacity is %d hours.", s.Capacity)
		}
		fmt.Fprintf(&sb, " It contains %s.\n", plural(len(st.Tasks), "task"))
		for _, t := range st.Tasks {
			writeTask(&sb, t)
		}
		sb.WriteString("\n")
	}

	if len(n.Backlog) == 0 {
		sb.WriteString("There are no backlog tasks.")
		return sb.String(), nil
	}
	sb.WriteString("Backlog tasks that are not in any sprint:\n")
	for _, t := range n.Backlog {
		writeTask(&sb, t)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func writeTask(sb *strings.Builder, t models.Task) {
	fmt.Fprintf(sb, "Task %s is titled %s", orNone(t.Key), sentence(orNone(t.Title)))
	if d := strings.TrimSpace(t.Description); d != "" {
		fmt.Fprintf(sb, " Description: %s", sentence(d))
	} else {
		sb.WriteString(" It has no description.")
	}
	fmt.Fprintf(sb, " Its status is %s and its priority is %s.", orNone(string(t.Status)), orNone(string(t.Priority)))
	fmt.Fprintf(sb, " It is worth %s with an estimate of %s.", plural(t.StoryPoints, "story point"), plural(t.Estimate, "hour"))
	if t.DueDate != nil {
		fmt.Fprintf(sb, " It is due on %s.", formatDate(*t.DueDate))
	} else {
		sb.WriteString(" It has no due date.")
	}
	if a := t.Assignee; a != nil {
		fmt.Fprintf(sb, " It is assigned to %s (user %d, %s, role %s).", orNone(a.FullName()), a.ID, orNone(a.Email), orNone(a.Role))
	} else {
		sb.WriteString(" It is not assigned to anyone.")
	}
	sb.WriteString("\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "an unknown date"
	}
	return t.Format(narrativeDate)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return strings.TrimSpace(s)
}

// sentence makes s end with terminal punctuation.
func sentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

// LLMSummarizer asks the model to rewrite the template narrative as fluent
// prose. A reply that fails or drops any task key falls back to the template
// text so the output always covers every task.
type LLMSummarizer struct {
	gateway  *Gateway
	template TemplateSummarizer
}

// NewLLMSummarizer returns a summarizer backed by gateway.
func NewLLMSummarizer(gateway *Gateway) *LLMSummarizer {
	return &LLMSummarizer{gateway: gateway}
}

const summarizePrompt = `Rewrite the following project report as clear, plain prose paragraphs.
Keep every sprint and every task. For each task keep its key exactly as written, with its title, description, status, priority, story points, estimate, due date and assignee.
Do not use markdown, bullet points, headings or tables.

Report:
%s`

// Summarize returns the model's rewrite or the template narrative.
func (s *LLMSummarizer) Summarize(ctx context.Context, n models.ProjectNarrative) (string, error) {
	base, _ := s.template.Summarize(ctx, n)

	reply, err := s.gateway.Ask(ctx, fmt.Sprintf(summarizePrompt, base))
	if err != nil {
		log.Printf("[Summarizer] using template for project %d: %v", n.Project.ID, err)
		return base, nil
	}
	reply = CleanReply(reply)
	if missing := missingKeys(reply, n); len(missing) > 0 {
		log.Printf("[Summarizer] model dropped tasks %v for project %d; using template", missing, n.Project.ID)
		return base, nil
	}
	return reply, nil
}

func missingKeys(text string, n models.ProjectNarrative) []string {
	var missing []string
	check := func(tasks []models.Task) {
		for _, t := range tasks {
			if t.Key != "" && !strings.Contains(text, t.Key) {
				missing = append(missing, t.Key)
			}
		}
	}
	for _, st := range n.Sprints {
		check(st.Tasks)
	}
	check(n.Backlog)
	return missing
}
