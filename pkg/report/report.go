// Package report renders classification results as the tab-separated
// output table and prints the run settings.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/config"
	"github.com/yumyai/hgtdetect/pkg/hgt"
	"go.uber.org/zap"
)

var resultHeader = []string{"Gene/Protein", "Bitscore", "Out_pct", "HGT index", "Donor taxonomy"}

// DefaultOutputPath names the output table after the taxonomic level,
// e.g. output_family_HGT.tsv.
func DefaultOutputPath(taxLevel string) string {
	return fmt.Sprintf("output_%s_HGT.tsv", taxLevel)
}

// WriteResults writes the header and one row per scored gene.
func WriteResults(w io.Writer, results []*hgt.GeneResult) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Gene,
			strconv.FormatFloat(r.Bitscore, 'f', -1, 64),
			r.OutPct,
			r.HGTIndex,
			r.Donor,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteResultsFile(path string, results []*hgt.GeneResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := WriteResults(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	logger.Info("report written", zap.String("path", path), zap.Int("rows", len(results)))
	return nil
}

// WriteParams prints the effective run settings as an aligned table
// before the pipeline starts.
func WriteParams(w io.Writer, cfg *config.Config) {
	rows := []struct {
		label string
		value string
	}{
		{"Input File", cfg.InputFile},
		{"Search Database", cfg.Database},
		{"Taxonomy Database", cfg.TaxonomyDB},
		{"Query Taxid", strconv.FormatInt(int64(cfg.QueryTaxon), 10)},
		{"Bitscore Parameter", strconv.FormatFloat(cfg.BitscoreThreshold, 'f', -1, 64)},
		{"HGT Index", strconv.FormatFloat(cfg.HGTIndexThreshold, 'f', -1, 64)},
		{"Outgroup Percentage", strconv.FormatFloat(cfg.OutPctThreshold, 'f', -1, 64)},
		{"Taxonomic Level", cfg.TaxLevel},
		{"Search Method", cfg.Search},
		{"Workers", strconv.Itoa(cfg.Workers)},
		{"Output File", cfg.OutputFile},
	}

	fmt.Fprintln(w, "Input Parameters:")
	fmt.Fprintln(w, "-----------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s | %s\n", r.label, r.value)
	}
	fmt.Fprintln(w, "-----------------")
}
