package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/model"
)

func match(content string, score float64) model.RetrievedMatch {
	return model.RetrievedMatch{
		Chunk: model.DocumentChunk{ID: content, Content: content},
		Score: score,
	}
}

func TestAssembleContextPacksInRankOrder(t *testing.T) {
	matches := []model.RetrievedMatch{
		match("aaaa", 0.9),
		match("bbbb", 0.8),
		match("cccc", 0.7),
	}

	ctx, used := AssembleContext(matches, 100)

	assert.Equal(t, "aaaa\n\nbbbb\n\ncccc\n\n", ctx)
	require.Len(t, used, 3)
	assert.Equal(t, 0.9, used[0].Score)
}

func TestAssembleContextStopsAtBudget(t *testing.T) {
	matches := []model.RetrievedMatch{
		match(strings.Repeat("a", 10), 0.9),
		match(strings.Repeat("b", 10), 0.8),
		match(strings.Repeat("c", 10), 0.7),
	}

	// budget fits only the first two contents; separators are not counted
	ctx, used := AssembleContext(matches, 25)

	require.Len(t, used, 2)
	assert.NotContains(t, ctx, "c")
}

func TestAssembleContextUsedIsPrefix(t *testing.T) {
	matches := []model.RetrievedMatch{
		match(strings.Repeat("a", 10), 0.9),
		match(strings.Repeat("b", 30), 0.8),
		match(strings.Repeat("c", 5), 0.7),
	}

	// the second match overflows, so packing stops even though the
	// third would fit on its own
	_, used := AssembleContext(matches, 20)

	require.Len(t, used, 1)
	assert.Equal(t, strings.Repeat("a", 10), used[0].Chunk.Content)
}

func TestAssembleContextEmptyInput(t *testing.T) {
	ctx, used := AssembleContext(nil, 100)

	assert.Equal(t, "", ctx)
	assert.Empty(t, used)
}

func TestAssembleContextSkipsEmptyContent(t *testing.T) {
	matches := []model.RetrievedMatch{
		match("", 0.9),
		match("real", 0.8),
	}

	ctx, used := AssembleContext(matches, 100)

	assert.Equal(t, "real\n\n", ctx)
	require.Len(t, used, 1)
}
