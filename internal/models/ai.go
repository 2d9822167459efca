package models

// IngestResult reports how a project narrative was indexed.
type IngestResult struct {
	ProjectID uint `json:"projectId"`
	Chunks    int  `json:"chunks"`
}

// ChatAnswer is the reply to a free-form question.
type ChatAnswer struct {
	ProjectID uint   `json:"projectId"`
	Answer    string `json:"answer"`
}

// SuggestSprintResult lists the task keys proposed for a sprint.
type SuggestSprintResult struct {
	TaskKeys []string `json:"taskKeys"`
	Capacity int      `json:"capacity"`
}

// ScopeCreepResult is the outcome of a scope-creep analysis.
type ScopeCreepResult struct {
	SprintName         string `json:"sprintName"`
	Reason             string `json:"reason"`
	ScopeCreepDetected bool   `json:"scopeCreepDetected"`
	WarningMessage     string `json:"warningMessage,omitempty"`
	OriginalEstimate   int    `json:"originalEstimate"`
	AddedEstimate      int    `json:"addedEstimate"`
	HeuristicFlag      bool   `json:"heuristicFlag"`
}

// RiskHeatmapResult describes delivery risk for a sprint and per member.
type RiskHeatmapResult struct {
	RiskType    string            `json:"riskType"`
	Details     string            `json:"details"`
	Sprint      string            `json:"sprint"`
	UserRiskMap map[string]string `json:"userRiskMap"`
}

// RetrospectiveEntry is one sprint's retrospective.
type RetrospectiveEntry struct {
	SprintName       string `json:"sprintName"`
	SprintID         string `json:"sprintId,omitempty"`
	WhatWentWell     string `json:"whatWentWell"`
	WhatDidNotGoWell string `json:"whatDidNotGoWell"`
	Suggestions      string `json:"suggestions"`
}

// ScopeCreepReply is the structured part of a model's scope-creep answer.
type ScopeCreepReply struct {
	SprintName         string `json:"sprintName"`
	Reason             string `json:"reason"`
	ScopeCreepDetected bool   `json:"scopeCreepDetected"`
}
