package eval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"ragdesk/internal/app"
)

var ErrNoResults = errors.New("no evaluation results to export")

// Sample is one labeled evaluation query: the question, the ground-truth
// relevant document names, and the caller role the query is asked as.
type Sample struct {
	Query        string   `json:"query"`
	RelevantDocs []string `json:"relevant_docs"`
	Role         string   `json:"role"`
}

// Result is the per-sample metrics snapshot. Immutable once computed.
type Result struct {
	Query               string   `json:"query"`
	Role                string   `json:"role"`
	RetrievedDocs       []string `json:"retrieved_docs"`
	RelevantDocs        []string `json:"relevant_docs"`
	Response            string   `json:"response"`
	LatencySeconds      float64  `json:"end_to_end_latency"`
	PrecisionAt1        float64  `json:"precision@1"`
	PrecisionAt3        float64  `json:"precision@3"`
	PrecisionAt5        float64  `json:"precision@5"`
	RecallAt1           float64  `json:"recall@1"`
	RecallAt3           float64  `json:"recall@3"`
	RecallAt5           float64  `json:"recall@5"`
	MRR                 float64  `json:"mrr"`
	MAP                 float64  `json:"map"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
}

// QueryRunner is the slice of the orchestrator the evaluator drives.
type QueryRunner interface {
	ProcessQuery(ctx context.Context, input app.QueryInput) (*app.QueryResult, error)
}

// Evaluator replays labeled queries through the full RAG path and scores the
// retrieved sources against ground truth. Samples run sequentially for
// reproducible metrics; each sample uses a fresh session so no state leaks
// between them. The results buffer is shared across runs and guarded by a
// mutex since handlers call one Evaluator from concurrent requests.
type Evaluator struct {
	runner QueryRunner
	log    *zap.Logger

	mu      sync.Mutex
	results []Result
}

func NewEvaluator(runner QueryRunner, log *zap.Logger) *Evaluator {
	return &Evaluator{runner: runner, log: log}
}

// EvaluateSample runs one sample end to end, records its result, and returns
// it.
func (e *Evaluator) EvaluateSample(ctx context.Context, sample Sample, topK int, similarityThreshold float64) (*Result, error) {
	relevant := make(map[string]bool, len(sample.RelevantDocs))
	for _, id := range sample.RelevantDocs {
		relevant[id] = true
	}

	started := time.Now()
	resp, err := e.runner.ProcessQuery(ctx, app.QueryInput{
		Message:             sample.Query,
		TopK:                topK,
		SimilarityThreshold: similarityThreshold,
		Role:                sample.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate query failed: %w", err)
	}
	latency := time.Since(started).Seconds()

	retrieved := make([]string, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		retrieved = append(retrieved, src.DocumentName)
	}

	result := Result{
		Query:               sample.Query,
		Role:                sample.Role,
		RetrievedDocs:       retrieved,
		RelevantDocs:        sample.RelevantDocs,
		Response:            resp.Response,
		LatencySeconds:      round3(latency),
		PrecisionAt1:        round3(PrecisionAtK(retrieved, relevant, 1)),
		PrecisionAt3:        round3(PrecisionAtK(retrieved, relevant, 3)),
		PrecisionAt5:        round3(PrecisionAtK(retrieved, relevant, 5)),
		RecallAt1:           round3(RecallAtK(retrieved, relevant, 1)),
		RecallAt3:           round3(RecallAtK(retrieved, relevant, 3)),
		RecallAt5:           round3(RecallAtK(retrieved, relevant, 5)),
		MRR:                 round3(MeanReciprocalRank(retrieved, relevant)),
		MAP:                 round3(AveragePrecision(retrieved, relevant)),
		TopK:                topK,
		SimilarityThreshold: similarityThreshold,
	}
	e.mu.Lock()
	e.results = append(e.results, result)
	e.mu.Unlock()

	e.log.Info("sample evaluated",
		zap.String("query", truncate(sample.Query, 50)),
		zap.Float64("mrr", result.MRR),
		zap.Float64("latency_sec", result.LatencySeconds),
	)
	return &result, nil
}

// EvaluateDataset evaluates every sample in order and returns the arithmetic
// mean of each metric, keyed "avg_<metric>". An empty sample list yields an
// empty map.
func (e *Evaluator) EvaluateDataset(ctx context.Context, samples []Sample, topK int, similarityThreshold float64) (map[string]float64, error) {
	e.mu.Lock()
	e.results = nil
	e.mu.Unlock()

	for _, sample := range samples {
		if _, err := e.EvaluateSample(ctx, sample, topK, similarityThreshold); err != nil {
			return nil, err
		}
	}
	results := e.Results()
	if len(results) == 0 {
		return map[string]float64{}, nil
	}

	sums := make(map[string]float64)
	for _, r := range results {
		for key, value := range r.metricValues() {
			sums[key] += value
		}
	}
	averages := make(map[string]float64, len(sums))
	for key, sum := range sums {
		averages["avg_"+key] = round3(sum / float64(len(results)))
	}

	e.log.Info("dataset evaluated",
		zap.Int("samples", len(results)),
		zap.Float64("avg_map", averages["avg_map"]),
	)
	return averages, nil
}

// Results returns the per-sample records of the last run, in order.
func (e *Evaluator) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// ExportCSV writes one row per result. Exporting with no results logs a
// warning and returns ErrNoResults rather than writing an empty file.
func (e *Evaluator) ExportCSV(path string) error {
	results := e.Results()
	if len(results) == 0 {
		e.log.Warn("no results to export", zap.String("path", path))
		return ErrNoResults
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory failed: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file failed: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header failed: %w", err)
	}
	for _, r := range results {
		if err := w.Write(r.csvRow()); err != nil {
			return fmt.Errorf("write csv row failed: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv failed: %w", err)
	}

	e.log.Info("results exported", zap.String("path", path), zap.Int("rows", len(results)))
	return nil
}

var csvHeader = []string{
	"query", "role", "retrieved_docs", "relevant_docs", "response",
	"end_to_end_latency",
	"precision@1", "precision@3", "precision@5",
	"recall@1", "recall@3", "recall@5",
	"mrr", "map", "top_k", "similarity_threshold",
}

func (r Result) csvRow() []string {
	return []string{
		r.Query,
		r.Role,
		strings.Join(r.RetrievedDocs, ";"),
		strings.Join(r.RelevantDocs, ";"),
		r.Response,
		formatFloat(r.LatencySeconds),
		formatFloat(r.PrecisionAt1),
		formatFloat(r.PrecisionAt3),
		formatFloat(r.PrecisionAt5),
		formatFloat(r.RecallAt1),
		formatFloat(r.RecallAt3),
		formatFloat(r.RecallAt5),
		formatFloat(r.MRR),
		formatFloat(r.MAP),
		strconv.Itoa(r.TopK),
		formatFloat(r.SimilarityThreshold),
	}
}

func (r Result) metricValues() map[string]float64 {
	return map[string]float64{
		"end_to_end_latency": r.LatencySeconds,
		"precision@1":        r.PrecisionAt1,
		"precision@3":        r.PrecisionAt3,
		"precision@5":        r.PrecisionAt5,
		"recall@1":           r.RecallAt1,
		"recall@3":           r.RecallAt3,
		"recall@5":           r.RecallAt5,
		"mrr":                r.MRR,
		"map":                r.MAP,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncate cuts s to at most n bytes, backing off to a rune boundary so the
// result is always valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
