package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrecisionAtK(t *testing.T) {
	relevant := map[string]bool{"doc1": true}
	retrieved := []string{"doc2", "doc1", "doc3"}

	assert.Equal(t, 0.0, PrecisionAtK(retrieved, relevant, 1))
	assert.InDelta(t, 1.0/3.0, PrecisionAtK(retrieved, relevant, 3), 1e-9)
	// k larger than the list still divides by k
	assert.InDelta(t, 0.2, PrecisionAtK(retrieved, relevant, 5), 1e-9)
	assert.Equal(t, 0.0, PrecisionAtK(retrieved, relevant, 0))
}

func TestPrecisionAtKDeduplicates(t *testing.T) {
	relevant := map[string]bool{"doc1": true}
	retrieved := []string{"doc1", "doc1", "doc1"}

	// a document retrieved twice counts once
	assert.InDelta(t, 1.0/3.0, PrecisionAtK(retrieved, relevant, 3), 1e-9)
}

func TestRecallAtK(t *testing.T) {
	relevant := map[string]bool{"doc1": true}
	retrieved := []string{"doc2", "doc1", "doc3"}

	assert.Equal(t, 0.0, RecallAtK(retrieved, relevant, 1))
	assert.Equal(t, 1.0, RecallAtK(retrieved, relevant, 3))
	assert.Equal(t, 0.0, RecallAtK(retrieved, map[string]bool{}, 3))
}

func TestRecallAtKMultipleRelevant(t *testing.T) {
	relevant := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	retrieved := []string{"a", "x", "b"}

	assert.InDelta(t, 0.25, RecallAtK(retrieved, relevant, 1), 1e-9)
	assert.InDelta(t, 0.5, RecallAtK(retrieved, relevant, 3), 1e-9)
}

func TestMeanReciprocalRank(t *testing.T) {
	relevant := map[string]bool{"doc1": true}

	assert.Equal(t, 0.5, MeanReciprocalRank([]string{"doc2", "doc1", "doc3"}, relevant))
	assert.Equal(t, 1.0, MeanReciprocalRank([]string{"doc1"}, relevant))
	assert.Equal(t, 0.0, MeanReciprocalRank([]string{"doc2", "doc3"}, relevant))
	assert.Equal(t, 0.0, MeanReciprocalRank(nil, relevant))
}

func TestAveragePrecision(t *testing.T) {
	relevant := map[string]bool{"doc1": true}

	assert.Equal(t, 0.5, AveragePrecision([]string{"doc2", "doc1", "doc3"}, relevant))
	assert.Equal(t, 0.0, AveragePrecision([]string{"doc2"}, relevant))
	assert.Equal(t, 0.0, AveragePrecision([]string{"doc1"}, map[string]bool{}))
}

func TestAveragePrecisionMultipleRelevant(t *testing.T) {
	relevant := map[string]bool{"a": true, "b": true}
	retrieved := []string{"a", "x", "b"}

	// (1/1 + 2/3) / 2
	assert.InDelta(t, (1.0+2.0/3.0)/2.0, AveragePrecision(retrieved, relevant), 1e-9)
}
