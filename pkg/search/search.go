package search

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yumyai/hgtdetect/internal/util"
	"github.com/yumyai/hgtdetect/logger"
	"go.uber.org/zap"
)

// Tool selects the homology search backend.
type Tool int

const (
	ToolDiamond Tool = iota
	ToolMMseqs
	ToolUnknown
)

func (t Tool) String() string {
	switch t {
	case ToolDiamond:
		return "diamond"
	case ToolMMseqs:
		return "mmseqs"
	default:
		return "unknown"
	}
}

func ParseTool(name string) Tool {
	switch strings.ToLower(name) {
	case "diamond":
		return ToolDiamond
	case "mmseqs":
		return ToolMMseqs
	default:
		return ToolUnknown
	}
}

// Options describes one homology search invocation.
type Options struct {
	Tool     Tool
	Query    string // protein FASTA with the query sequences
	Database string
	Output   string // tab-separated results file
}

// ResultsPath derives the search-result file path next to the query FASTA.
func ResultsPath(query string) string {
	return strings.TrimSuffix(query, filepath.Ext(query)) + ".tsv"
}

// CheckBinary verifies the tool is installed and on PATH.
func CheckBinary(t Tool) error {
	if _, err := exec.LookPath(t.String()); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", t, err)
	}
	return nil
}

// BuildArgs returns the argument vector (binary excluded) for one search.
// Both tools are asked for 250 targets per query and the same 7-column
// output: query, target, evalue, bitscore, length, pident, taxids.
func BuildArgs(opts Options) ([]string, error) {
	switch opts.Tool {
	case ToolDiamond:
		return []string{
			"blastp",
			"-d", opts.Database,
			"-q", opts.Query,
			"--max-target-seqs", "250",
			"--outfmt", "6", "qseqid", "sseqid", "evalue", "bitscore", "length", "pident", "staxids",
			"-o", opts.Output,
		}, nil
	case ToolMMseqs:
		return []string{
			"easy-search",
			opts.Query,
			opts.Database,
			opts.Output,
			filepath.Join(filepath.Dir(opts.Output), "tmp"),
			"--max-seqs", "250",
			"--format-output", "query,target,evalue,bits,alnlen,pident,taxid",
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized search tool %q", opts.Tool)
	}
}

// Run executes the homology search. When the output file already exists
// with content the search is skipped, so re-runs against the same input
// reuse earlier results.
func Run(ctx context.Context, opts Options) error {
	if util.FileNonEmpty(opts.Output) {
		logger.Info("search results found, skipping search",
			zap.String("output", opts.Output))
		return nil
	}

	if err := CheckBinary(opts.Tool); err != nil {
		return err
	}
	args, err := BuildArgs(opts)
	if err != nil {
		return err
	}

	logger.Info("running homology search",
		zap.String("tool", opts.Tool.String()),
		zap.String("query", opts.Query),
		zap.String("database", opts.Database))

	cmd := exec.CommandContext(ctx, opts.Tool.String(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s search failed: %w: %s", opts.Tool, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
