package chunker

import (
	"fmt"
	"strings"

	"clm-paralegal/internal/domain"
)

// WindowChunker splits text into fixed-size rune windows. Consecutive chunks
// share exactly overlap runes, so dropping the first overlap runes of every
// chunk after the first and concatenating reproduces the trimmed input.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidInput)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0,%d): %w", overlap, size, domain.ErrInvalidInput)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Split returns nil for empty or whitespace-only text.
func (c *WindowChunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := min(start+c.size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Join is the inverse of Split for the same configuration.
func (c *WindowChunker) Join(chunks []string) string {
	var sb strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			sb.WriteString(ch)
			continue
		}
		r := []rune(ch)
		sb.WriteString(string(r[min(c.overlap, len(r)):]))
	}
	return sb.String()
}
