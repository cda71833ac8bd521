package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSystemPrompt(t *testing.T) {
	p := GetSystemPrompt("Security", []string{"Sequence Diagram", "Threat Model"})
	assert.Contains(t, p, "Focus area: Security")
	assert.Contains(t, p, "- A Mermaid sequenceDiagram showing key request/response flows\n- A Mermaid diagram for: Threat Model")

	d := GetSystemPrompt("", nil)
	assert.Contains(t, d, "Focus area: Full Architecture")
	assert.Contains(t, d, "component diagram")
}

func TestGetUserPrompt_Truncates(t *testing.T) {
	p := GetUserPrompt(strings.Repeat("é", 12), 10)
	assert.Equal(t, "Analyze this codebase:\n\n"+strings.Repeat("é", 10), p)
	assert.Equal(t, "Analyze this codebase:\n\nabc", GetUserPrompt("abc", 0))
}
