// Package eval measures retrieval quality against labeled relevance sets
// using standard ranking metrics.
package eval

// PrecisionAtK is the fraction of the first k retrieved ids that are
// relevant. Zero when k is zero.
func PrecisionAtK(retrieved []string, relevant map[string]bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	if len(retrieved) > k {
		retrieved = retrieved[:k]
	}
	hits := 0
	seen := make(map[string]bool, len(retrieved))
	for _, id := range retrieved {
		if relevant[id] && !seen[id] {
			hits++
			seen[id] = true
		}
	}
	return float64(hits) / float64(k)
}

// RecallAtK is the fraction of relevant ids found in the first k retrieved.
// Zero when the relevant set is empty.
func RecallAtK(retrieved []string, relevant map[string]bool, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k < len(retrieved) {
		retrieved = retrieved[:k]
	}
	seen := make(map[string]bool, len(retrieved))
	hits := 0
	for _, id := range retrieved {
		if relevant[id] && !seen[id] {
			hits++
			seen[id] = true
		}
	}
	return float64(hits) / float64(len(relevant))
}

// MeanReciprocalRank is 1/rank of the first relevant hit, zero if none.
func MeanReciprocalRank(retrieved []string, relevant map[string]bool) float64 {
	for i, id := range retrieved {
		if relevant[id] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecision sums precision@(i+1) over every position i holding a
// relevant id, divided by the size of the relevant set. Zero when the
// relevant set is empty.
func AveragePrecision(retrieved []string, relevant map[string]bool) float64 {
	if len(relevant) == 0 {
		return 0
	}
	found := 0
	sum := 0.0
	for i, id := range retrieved {
		if relevant[id] {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}
