package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yumyai/hgtdetect/internal/util"
	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/config"
	"github.com/yumyai/hgtdetect/pkg/fasta"
	"github.com/yumyai/hgtdetect/pkg/hgt"
	"github.com/yumyai/hgtdetect/pkg/hits"
	"github.com/yumyai/hgtdetect/pkg/report"
	"github.com/yumyai/hgtdetect/pkg/search"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
	"github.com/yumyai/hgtdetect/pkg/taxonomy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {

	VERSION := "0.1.0"

	// Try load env before the logger so HGT_LOG_LEVEL can come from .env
	dotenvErr := godotenv.Load()

	LOG_LEVEL := zapcore.InfoLevel
	if lvl := os.Getenv("HGT_LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			LOG_LEVEL = parsed
		}
	}

	// Establish logger
	if err := logger.InitLogger(LOG_LEVEL); err != nil {
		panic(err)
	}

	defer logger.Sync() // Make sure that the buffered is flushed.

	if dotenvErr != nil {
		logger.Warn("No .env found, using local environment")
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = report.DefaultOutputPath(cfg.TaxLevel)
	}

	logger.Info("Start:", zap.String("Version", VERSION))
	report.WriteParams(os.Stdout, cfg)

	start := time.Now()
	if err := run(cfg); err != nil {
		logger.Fatal("Run failed:", zap.Error(err))
	}
	logger.Info("Done", zap.Duration("elapsed", time.Since(start)))
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if !util.FileExists(cfg.TaxonomyDB) {
		return fmt.Errorf("taxonomy database not found: %s", cfg.TaxonomyDB)
	}
	if !util.FileExists(cfg.Database) {
		return fmt.Errorf("search database not found: %s", cfg.Database)
	}

	store, err := taxdb.Open(cfg.TaxonomyDB)
	if err != nil {
		return err
	}
	defer store.Close()
	authority := taxdb.NewCache(store)

	// Fail before the expensive search when the query taxid is unusable.
	if _, err := authority.Lineage(ctx, cfg.QueryTaxon); err != nil {
		return fmt.Errorf("query taxid %d not in taxonomy database: %w", cfg.QueryTaxon, err)
	}
	check := taxonomy.Build(ctx, authority, nil, cfg.QueryTaxon)
	if _, ok := check.Alignments[cfg.QueryTaxon][cfg.TaxLevel]; !ok {
		return fmt.Errorf("query taxid %d has no %s rank in its lineage", cfg.QueryTaxon, cfg.TaxLevel)
	}

	records, err := fasta.Load(cfg.InputFile)
	if err != nil {
		return err
	}
	genes := fasta.IDs(records)
	logger.Info("Query sequences loaded", zap.Int("count", len(genes)))

	resultsPath := search.ResultsPath(cfg.InputFile)
	searchOpts := search.Options{
		Tool:     cfg.Tool(),
		Query:    cfg.InputFile,
		Database: cfg.Database,
		Output:   resultsPath,
	}
	if err := search.Run(ctx, searchOpts); err != nil {
		return err
	}

	table, err := hits.Load(resultsPath)
	if err != nil {
		return err
	}
	if table.Len() == 0 {
		return fmt.Errorf("no hits parsed from %s", resultsPath)
	}

	index := taxonomy.Build(ctx, authority, table.UniqueTaxIDs(), cfg.QueryTaxon)

	runner := &hgt.Runner{
		Index:   index,
		Table:   table,
		Params:  cfg.Params(),
		Workers: cfg.Workers,
	}
	results, stats := runner.Run(genes)

	if err := report.WriteResultsFile(cfg.OutputFile, results); err != nil {
		return err
	}
	logger.Info("Classification complete",
		zap.Int("genes", stats.Processed()),
		zap.Int("skipped", stats.Skipped()),
		zap.Int("events", stats.Events()))
	return nil
}
