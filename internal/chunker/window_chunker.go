package chunker

import (
	"strconv"

	"notesrag/internal/domain"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

// WindowChunker splits text into fixed-size windows that overlap their
// predecessor by a fixed number of runes.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker validates the window geometry. The step size-overlap
// must be positive or chunking would never advance.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, &domain.ConfigurationError{Field: "chunker.size", Reason: "must be positive, got " + strconv.Itoa(size)}
	}
	if overlap < 0 {
		return nil, &domain.ConfigurationError{Field: "chunker.overlap", Reason: "must not be negative, got " + strconv.Itoa(overlap)}
	}
	if size-overlap <= 0 {
		return nil, &domain.ConfigurationError{
			Field:  "chunker.overlap",
			Reason: "overlap " + strconv.Itoa(overlap) + " must be smaller than size " + strconv.Itoa(size),
		}
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk emits windows [start, start+size) stepping by size-overlap until
// start reaches the end of text. The last window may be shorter.
func (c *WindowChunker) Chunk(text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := c.size - c.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
