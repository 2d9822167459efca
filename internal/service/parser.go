package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// ResponseParser turns a model reply into a typed result. Each use case has
// its own implementation so a stricter format can replace a tolerant one
// without touching the orchestrator.
type ResponseParser[T any] interface {
	Parse(reply string) (T, error)
}

var (
	fenceWrapRe = regexp.MustCompile("(?s)^```[\\w+-]*[ \\t]*\\n?(.*?)\\n?[ \\t]*```$")
	fenceLineRe = regexp.MustCompile("(?m)^[ \\t]*```[\\w+-]*[ \\t]*(?:\\n|$)")
	ruleLineRe  = regexp.MustCompile(`(?m)^[ \t]*(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,}|={3,})[ \t]*(?:\n|$)`)
	headingRe   = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	boldRe      = regexp.MustCompile(`\*\*|__`)
	bulletStar  = regexp.MustCompile(`(?m)^([ \t]*)\*[ \t]+`)
	italicRe    = regexp.MustCompile(`\*([^*\n]+)\*`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)

	// Emphasis only counts when the markers hug the text, so "5 * 3" survives.
	strongStarRe  = regexp.MustCompile(`\*\*(\S(?:[^*\n]*\S)?)\*\*`)
	strongUnderRe = regexp.MustCompile(`__(\S(?:[^_\n]*\S)?)__`)
	emStarRe      = regexp.MustCompile(`\*(\S(?:[^*\n]*\S)?)\*`)
)

// CleanReply strips the formatting models like to add: surrounding
// whitespace, a wrapping code fence, stray fence lines, horizontal rules,
// heading markers and bold or italic markers. Star bullets become dashes.
func CleanReply(reply string) string {
	s := fenceLineRe.ReplaceAllString(unfence(reply), "")
	s = ruleLineRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "")
	s = bulletStar.ReplaceAllString(s, "$1- ")
	s = italicRe.ReplaceAllString(s, "$1")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// unfence trims reply and removes a code fence wrapping all of it.
func unfence(reply string) string {
	s := strings.TrimSpace(strings.ReplaceAll(reply, "\r\n", "\n"))
	if m := fenceWrapRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(s)
}

// plainText drops emphasis markers from one decoded JSON string.
func plainText(s string) string {
	s = strongStarRe.ReplaceAllString(s, "$1")
	s = strongUnderRe.ReplaceAllString(s, "$1")
	s = emStarRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// extractJSON returns the outermost {...} span of s.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid reply schema: %v", err))
	}
	return schema
}

// decodeJSONReply validates the JSON object in reply against schema and
// decodes it into dst. The document itself is never rewritten; markdown is
// stripped from decoded strings by the caller.
func decodeJSONReply(reply string, schema *gojsonschema.Schema, dst interface{}) error {
	doc, ok := extractJSON(unfence(reply))
	if !ok {
		return fmt.Errorf("%w: no JSON object in reply", models.ErrResponseParse)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrResponseParse, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", models.ErrResponseParse, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		return fmt.Errorf("%w: %w", models.ErrResponseParse, err)
	}
	return nil
}

var scopeCreepSchema = mustSchema(`{
  "type": "object",
  "required": ["sprintName", "reason"],
  "properties": {
    "sprintName": {"type": "string"},
    "reason": {"type": "string", "minLength": 1},
    "scopeCreepDetected": {"type": "boolean"}
  }
}`)

// ScopeCreepParser reads {"sprintName","reason","scopeCreepDetected"}.
type ScopeCreepParser struct{}

func (ScopeCreepParser) Parse(reply string) (models.ScopeCreepReply, error) {
	var out models.ScopeCreepReply
	if err := decodeJSONReply(reply, scopeCreepSchema, &out); err != nil {
		return models.ScopeCreepReply{}, err
	}
	out.SprintName = plainText(out.SprintName)
	out.Reason = plainText(out.Reason)
	return out, nil
}

var riskHeatmapSchema = mustSchema(`{
  "type": "object",
  "required": ["riskType", "details", "sprint"],
  "properties": {
    "riskType": {"type": "string", "minLength": 1},
    "details": {"type": "string"},
    "sprint": {"type": "string"},
    "userRiskMap": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`)

// RiskHeatmapParser reads {"riskType","details","sprint","userRiskMap"}.
type RiskHeatmapParser struct{}

func (RiskHeatmapParser) Parse(reply string) (models.RiskHeatmapResult, error) {
	var out models.RiskHeatmapResult
	if err := decodeJSONReply(reply, riskHeatmapSchema, &out); err != nil {
		return models.RiskHeatmapResult{}, err
	}
	out.RiskType = plainText(out.RiskType)
	out.Details = plainText(out.Details)
	out.Sprint = plainText(out.Sprint)
	if out.UserRiskMap == nil {
		out.UserRiskMap = map[string]string{}
	}
	for name, status := range out.UserRiskMap {
		out.UserRiskMap[name] = plainText(status)
	}
	return out, nil
}

var (
	retroBlockStartRe = regexp.MustCompile(`(?im)^[ \t]*(?:-[ \t]*)?sprint name[ \t]*:`)
	retroFieldsRe     = regexp.MustCompile(`(?is)^\s*(?:-\s*)?sprint name[ \t]*:[ \t]*([^\n]*?)[ \t]*\n` +
		`(?:\s*(?:-\s*)?sprint id[ \t]*:[ \t]*([^\n]*?)[ \t]*\n)?` +
		`\s*(?:-\s*)?what went well[ \t]*:\s*(.*?)\s*\n` +
		`\s*(?:-\s*)?(?:what (?:did not|didn't|didn’t) go well|what went poorly|what could be improved)[ \t]*:\s*(.*?)\s*\n` +
		`\s*(?:-\s*)?(?:suggestions|action items)[ \t]*:\s*(.*?)\s*\z`)
)

// RetrospectiveParser reads one or more labelled blocks:
//
//	Sprint Name: ...
//	Sprint ID: ...          (optional)
//	What went well: ...
//	What did not go well: ...
//	Suggestions: ...
//
// A block ends where the next "Sprint Name:" starts or at the end of the
// reply. Blocks missing a field are skipped; if none match the parser
// returns models.ErrResponseParse.
type RetrospectiveParser struct{}

func (RetrospectiveParser) Parse(reply string) ([]models.RetrospectiveEntry, error) {
	text := CleanReply(reply)
	starts := retroBlockStartRe.FindAllStringIndex(text, -1)

	entries := make([]models.RetrospectiveEntry, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		m := retroFieldsRe.FindStringSubmatch(text[loc[0]:end])
		if m == nil {
			continue
		}
		e := models.RetrospectiveEntry{
			SprintName:       tidy(m[1]),
			SprintID:         tidy(m[2]),
			WhatWentWell:     tidy(m[3]),
			WhatDidNotGoWell: tidy(m[4]),
			Suggestions:      tidy(m[5]),
		}
		if e.SprintName == "" || e.WhatWentWell == "" || e.WhatDidNotGoWell == "" || e.Suggestions == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return entries, fmt.Errorf("%w: no retrospective block matched", models.ErrResponseParse)
	}
	return entries, nil
}

// tidy trims every line and drops blank ones.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

var taskKeyTrim = "`\"'[]- \t"

// TaskKeyParser reads a comma or newline separated list of task keys.
type TaskKeyParser struct{}

func (TaskKeyParser) Parse(reply string) ([]string, error) {
	text := CleanReply(reply)
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' })

	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		if k := strings.Trim(strings.TrimSpace(f), taskKeyTrim); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
