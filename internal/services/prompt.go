package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSummaryPrompt asks for a short recruiter-facing profile summary.
func (pb *PromptBuilder) BuildSummaryPrompt(meta CVMetadata, cvText string) string {
	skills := "not listed"
	if len(meta.Skills) > 0 {
		skills = strings.Join(meta.Skills, ", ")
	}

	return fmt.Sprintf(`LISTED SKILLS:
%s

CANDIDATE CV (contact details removed):
%s

Write 2-3 sentences describing the candidate's seniority, main areas of expertise and most relevant experience.`,
		skills, strings.TrimSpace(cvText))
}

// BuildSearchQuery is the text embedded for a search. Filters are folded in
// so that skill terms pull the vector toward matching CVs.
func (pb *PromptBuilder) BuildSearchQuery(q string, filter SearchFilter) string {
	parts := []string{strings.TrimSpace(q)}
	if len(filter.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(filter.Skills, ", "))
	}
	if filter.Sector != "" {
		parts = append(parts, "Sector: "+filter.Sector)
	}
	if filter.Location != "" {
		parts = append(parts, "Location: "+filter.Location)
	}

	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// CleanSummary strips markdown fences and surrounding quotes models tend to add.
func CleanSummary(text string) string {
	text = strings.ReplaceAll(text, "```text", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"`)
	return strings.TrimSpace(text)
}
