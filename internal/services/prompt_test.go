package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchQuery(t *testing.T) {
	pb := NewPromptBuilder()

	assert.Equal(t, "", pb.BuildSearchQuery("  ", SearchFilter{}))
	assert.Equal(t, "react", pb.BuildSearchQuery(" react ", SearchFilter{}))
	assert.Equal(t,
		"Skills: Go, SQL\nSector: Fintech\nLocation: Berlin",
		pb.BuildSearchQuery("", SearchFilter{Skills: []string{"Go", "SQL"}, Sector: "Fintech", Location: "Berlin"}),
	)
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := NewPromptBuilder().BuildSummaryPrompt(CVMetadata{Skills: []string{"Go", "Kafka"}}, "  Backend engineer.  ")
	assert.Contains(t, prompt, "Go, Kafka")
	assert.Contains(t, prompt, "Backend engineer.")

	prompt = NewPromptBuilder().BuildSummaryPrompt(CVMetadata{}, "text")
	assert.Contains(t, prompt, "not listed")
}

func TestCleanSummary(t *testing.T) {
	assert.Equal(t, "Senior engineer.", CleanSummary("```text\n\"Senior engineer.\"\n```"))
	assert.Equal(t, "", CleanSummary("```"))
}
