package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// mermaidBlock matches one fenced mermaid block. The body is non-greedy so
// adjacent blocks never merge and an unclosed fence matches nothing.
var mermaidBlock = regexp.MustCompile("(?s)```mermaid[ \t]*\r?\n(.*?)```")

// Draft is one diagram extracted from the model output, not yet persisted.
type Draft struct {
	DiagramType string
	Code        string
	Summary     string
}

// Extract splits the accumulated model output into diagram drafts.
//
// Block i gets labels[i]; blocks beyond the label list are named "Diagram N".
// Labels without a block produce nothing. The text left after removing every
// block becomes the summary of the first draft, if there is one.
func Extract(fullText string, labels []string) []Draft {
	matches := mermaidBlock.FindAllStringSubmatch(fullText, -1)
	if len(matches) == 0 {
		return nil
	}

	drafts := make([]Draft, 0, len(matches))
	for i, m := range matches {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		if label == "" {
			label = fmt.Sprintf("Diagram %d", i+1)
		}
		drafts = append(drafts, Draft{
			DiagramType: label,
			Code:        strings.TrimSpace(m[1]),
		})
	}

	drafts[0].Summary = Residual(fullText)
	return drafts
}

// Residual returns the text with all diagram blocks removed, trimmed.
func Residual(fullText string) string {
	return strings.TrimSpace(mermaidBlock.ReplaceAllString(fullText, ""))
}

// HasOpenFence reports whether the text already contains a mermaid fence.
// Used to detect when streaming output has reached the diagram part.
func HasOpenFence(text string) bool {
	return strings.Contains(text, "```mermaid")
}
