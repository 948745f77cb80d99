package app

import (
	"strings"

	"ragdesk/internal/model"
)

// AssembleContext packs match contents into a single prompt context without
// exceeding charBudget characters of content (separators are not counted).
// Matches are taken strictly in the given rank order; a match whose content
// would overflow the remaining budget is skipped whole rather than truncated,
// and packing stops there so used sources stay a prefix of the input.
// Deterministic and side-effect free.
func AssembleContext(matches []model.RetrievedMatch, charBudget int) (string, []model.RetrievedMatch) {
	var sb strings.Builder
	var used []model.RetrievedMatch
	total := 0

	for _, m := range matches {
		content := m.Chunk.Content
		if content == "" {
			continue
		}
		if total+len(content) > charBudget {
			break
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
		total += len(content)
		used = append(used, m)
	}
	return sb.String(), used
}
