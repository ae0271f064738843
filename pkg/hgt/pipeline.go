package hgt

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/hits"
	"github.com/yumyai/hgtdetect/pkg/taxonomy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner fans classification and scoring out over the gene list with a
// bounded worker pool. Index, Table and Params must be fully built before
// Run starts; they are shared read-only across workers.
type Runner struct {
	Index  *taxonomy.Index
	Table  *hits.Table
	Params *Params

	// Workers bounds the pool; 0 means one worker per CPU.
	Workers int
}

// RunStats counts per-gene outcomes across one run.
type RunStats struct {
	mu        sync.RWMutex
	processed int
	skipped   int
	events    int
}

func (s *RunStats) geneProcessed(isEvent bool) {
	s.mu.Lock()
	s.processed++
	if isEvent {
		s.events++
	}
	s.mu.Unlock()
}

func (s *RunStats) geneSkipped() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// Processed is the number of genes that produced a result.
func (s *RunStats) Processed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed
}

// Skipped is the number of genes dropped for missing or unclassifiable data.
func (s *RunStats) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// Events is the number of genes called as HGT events.
func (s *RunStats) Events() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// Run processes every gene and returns the non-nil results in gene order.
// Each gene fills its own slot, so no ordering depends on scheduling;
// callers still must not attach meaning to row order.
func (r *Runner) Run(genes []string) ([]*GeneResult, *RunStats) {
	runID := "run-" + uuid.New().String()
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("detection run starting",
		zap.String("run_id", runID),
		zap.Int("genes", len(genes)),
		zap.Int("workers", workers))

	stats := &RunStats{}
	results := make([]*GeneResult, len(genes))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, gene := range genes {
		i, gene := i, gene
		g.Go(func() error {
			results[i] = r.processGene(gene, stats)
			return nil
		})
	}
	// Workers never return errors; failures degrade to nil results.
	_ = g.Wait()

	out := make([]*GeneResult, 0, len(genes))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}

	logger.Info("detection run complete",
		zap.String("run_id", runID),
		zap.Int("processed", stats.Processed()),
		zap.Int("skipped", stats.Skipped()),
		zap.Int("hgt_events", stats.Events()))

	return out, stats
}

// processGene runs one gene through the classifier and scorer. A panic in
// either stage is confined to this gene: logged, counted, nil result.
func (r *Runner) processGene(gene string, stats *RunStats) (result *GeneResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("gene processing panicked",
				zap.String("gene", gene),
				zap.Any("panic", rec),
				zap.String("stack", string(debug.Stack())))
			stats.geneSkipped()
			result = nil
		}
	}()

	classification, err := Classify(gene, r.Table.Gene(gene), r.Index, r.Params)
	if err != nil {
		logger.Warn("gene unclassifiable, skipping",
			zap.String("gene", gene), zap.Error(err))
		stats.geneSkipped()
		return nil
	}

	res, err := Score(classification, r.Params)
	if err != nil {
		logger.Warn("gene not scored, skipping",
			zap.String("gene", gene), zap.Error(err))
		stats.geneSkipped()
		return nil
	}

	stats.geneProcessed(res.IsEvent())
	return res
}
