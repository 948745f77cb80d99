package textutil

import (
	"errors"
	"strings"
)

// ErrInvalidChunking is returned when chunk size / overlap values cannot
// produce forward progress. Values are never clamped silently.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// mojibake repairs for text extracted from PDFs that were decoded with the
// wrong charset. Applied in order; no replacement output is itself a prefix
// of a later pattern, so a single pass is stable.
var replacements = []struct {
	bad  string
	good string
}{
	{"â¢", "•"},
	{"â€“", "-"},
	{"â€”", "-"},
	{"â€œ", `"`},
	{"â€�", `"`},
	{"â€™", "'"},
	{"â€˜", "'"},
	{"â€¦", "..."},
}

// Normalize repairs common PDF encoding damage, strips NUL bytes and
// collapses all whitespace runs to single spaces. Idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	for _, r := range replacements {
		raw = strings.ReplaceAll(raw, r.bad, r.good)
	}
	raw = strings.ReplaceAll(raw, "\x00", " ")
	return strings.Join(strings.Fields(raw), " ")
}

// Chunk splits text into overlapping word windows. Window i starts at word
// i*(chunkSize-overlap) and holds up to chunkSize words, re-joined with
// single spaces; the last window may be shorter. Empty input yields no
// chunks. Pure function.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunking
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunking
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}
