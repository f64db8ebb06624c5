// Package generation holds the backend-independent parts of answer
// generation: context truncation, the prompt template and the error text
// returned in place of an answer.
package generation

import (
	"fmt"
	"strings"
)

// MaxContextRunes bounds the context passed to a generation backend.
const MaxContextRunes = 1000

const truncationMarker = "..."

// TruncateContext cuts contextText to max runes and appends a marker when
// anything was dropped. A non-positive max disables truncation.
func TruncateContext(contextText string, max int) string {
	if max <= 0 {
		return contextText
	}
	runes := []rune(contextText)
	if len(runes) <= max {
		return contextText
	}
	return string(runes[:max]) + truncationMarker
}

// Prompt renders the instruction sent to the generation backend.
func Prompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Answer briefly based on context.\n\nContext:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// StatusError is the answer text for a non-success backend status.
func StatusError(code int) string {
	return fmt.Sprintf("Error: Could not generate answer (Status %d)", code)
}

// RequestError is the answer text for a transport failure.
func RequestError(err error) string {
	return "Error: " + err.Error()
}
