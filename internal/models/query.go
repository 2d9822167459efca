package models

// Caller identifies who issued a request. It is taken from the X-User-Email
// header and passed explicitly into every orchestrator operation.
type Caller struct {
	Email string
}

// String returns the email or "anonymous".
func (c Caller) String() string {
	if c.Email == "" {
		return "anonymous"
	}
	return c.Email
}

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	ProjectID uint   `json:"projectId"`
	Question  string `json:"question"`
}

// SuggestSprintRequest is the payload for POST /api/ai/suggest-sprint.
// SprintID is optional; without it the default capacity applies.
type SuggestSprintRequest struct {
	ProjectID uint  `json:"projectId"`
	SprintID  *uint `json:"sprintId,omitempty"`
}

// SprintRequest targets one sprint of a project.
type SprintRequest struct {
	ProjectID uint `json:"projectId"`
	SprintID  uint `json:"sprintId"`
}
