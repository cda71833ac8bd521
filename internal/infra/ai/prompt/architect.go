package prompt

import (
	"fmt"
	"strings"
)

// DefaultMaxContentChars bounds the codebase text sent to the model.
const DefaultMaxContentChars = 80000

// DiagramInstruction describes what a requested diagram kind should contain.
func DiagramInstruction(kind string) string {
	switch kind {
	case "Component Diagram":
		return "A Mermaid graph TD component diagram showing major components and their relationships"
	case "Sequence Diagram":
		return "A Mermaid sequenceDiagram showing key request/response flows"
	case "Data Flow":
		return "A Mermaid flowchart showing data flow between systems"
	case "Class Diagram":
		return "A Mermaid classDiagram showing key classes/models and relationships"
	case "Deployment Diagram":
		return "A Mermaid graph showing deployment architecture (servers, services, databases)"
	default:
		return "A Mermaid diagram for: " + kind
	}
}

// GetSystemPrompt tells the model which diagrams to draw and how to fence them.
func GetSystemPrompt(focus string, diagramTypes []string) string {
	if focus == "" {
		focus = "Full Architecture"
	}
	if len(diagramTypes) == 0 {
		diagramTypes = []string{"Component Diagram"}
	}
	instructions := make([]string, 0, len(diagramTypes))
	for _, d := range diagramTypes {
		instructions = append(instructions, DiagramInstruction(d))
	}

	return fmt.Sprintf(`You are an expert software architect. Analyze the provided codebase and documentation to understand the architecture.

Focus area: %s

Generate the following diagrams as valid Mermaid code blocks (each wrapped in `+"```mermaid ... ```"+`), in this order:
- %s

Also provide a structured summary including:
- Detected architectural patterns (MVC, microservices, monolith, event-driven, layered, etc.)
- Key components and their responsibilities
- Technology stack
- Dependencies and integrations
- Data flow overview

IMPORTANT:
- Use VALID Mermaid syntax. Test each diagram mentally before outputting.
- Keep node labels short (no special characters that break Mermaid).
- Use simple alphanumeric IDs for nodes (e.g., A, B, C or api, db, auth).
- Wrap labels in square brackets for graph diagrams: A[Label Text]
- Do NOT use parentheses or quotes inside node labels.
- Each diagram must be in its own `+"```mermaid"+` code block.
- Provide the summary text AFTER the diagrams.`, focus, strings.Join(instructions, "\n- "))
}

// GetUserPrompt wraps the codebase text, cut to maxChars characters.
func GetUserPrompt(content string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	if r := []rune(content); len(r) > maxChars {
		content = string(r[:maxChars])
	}
	return "Analyze this codebase:\n\n" + content
}
