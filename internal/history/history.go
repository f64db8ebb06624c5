// Package history persists and exports conversation transcripts.
package history

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"notesrag/internal/domain"
)

// DefaultFile is where the running transcript is saved.
const DefaultFile = "chat_history.json"

const (
	exportTitle = "Chat with Your Notes - Conversation History"
	ruleWidth   = 50
)

type record struct {
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// Save writes turns to path as an indented JSON array. An empty transcript
// leaves the file untouched.
func Save(path string, turns []domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	recs := make([]record, len(turns))
	for i, t := range turns {
		recs[i] = record{Content: t.Content, IsUser: t.User, Timestamp: t.Time}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a transcript written by Save.
func Load(path string) ([]domain.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	turns := make([]domain.Turn, len(recs))
	for i, r := range recs {
		turns[i] = domain.Turn{Content: r.Content, User: r.IsUser, Time: r.Timestamp}
	}
	return turns, nil
}

// ExportText renders turns as a plain-text Q/A log.
func ExportText(turns []domain.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(exportTitle + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")
	for _, t := range turns {
		if t.User {
			b.WriteString("Q: " + t.Content + "\n\n")
			continue
		}
		b.WriteString("A: " + t.Content + "\n\n")
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n\n")
	}
	return b.String()
}

// ExportFileName is the timestamped name used for text exports.
func ExportFileName(now time.Time) string {
	return "chat_history_" + now.Format("20060102_150405") + ".txt"
}
