package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yumyai/hgtdetect/pkg/hgt"
	"github.com/yumyai/hgtdetect/pkg/search"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
	"gopkg.in/yaml.v3"
)

// TaxLevels are the ranks accepted for -tax-level.
var TaxLevels = []string{
	"superkingdom", "kingdom", "phylum", "subphylum",
	"class", "order", "family", "genus", "species",
}

// Config is the run configuration, assembled once at startup from
// defaults, environment, an optional YAML file and command-line flags
// (later sources win), then treated as immutable.
type Config struct {
	InputFile  string      `yaml:"input_file"`
	Database   string      `yaml:"database"`
	TaxonomyDB string      `yaml:"taxonomy_db"`
	QueryTaxon taxdb.TaxID `yaml:"query_taxon"`
	TaxLevel   string      `yaml:"tax_level"`
	Search     string      `yaml:"search"`

	BitscoreThreshold float64 `yaml:"bitscore_parameter"`
	HGTIndexThreshold float64 `yaml:"hgt_index"`
	OutPctThreshold   float64 `yaml:"out_pct"`

	Workers    int    `yaml:"workers"`
	OutputFile string `yaml:"output_file"`
}

func Default() *Config {
	return &Config{
		TaxonomyDB:        DefaultTaxonomyDBPath(),
		TaxLevel:          "family",
		Search:            "diamond",
		BitscoreThreshold: hgt.DefaultBitscoreThreshold,
		HGTIndexThreshold: hgt.DefaultHGTIndexThreshold,
		OutPctThreshold:   hgt.DefaultOutPctThreshold,
		Workers:           runtime.NumCPU(),
	}
}

// DefaultTaxonomyDBPath is $HGT_TAXDB when set, otherwise the standard
// ete3 location under the user's home directory.
func DefaultTaxonomyDBPath() string {
	if p := os.Getenv("HGT_TAXDB"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "taxa.sqlite"
	}
	return filepath.Join(home, ".etetoolkit", "taxa.sqlite")
}

// Parse assembles the configuration from args. A positional argument is
// accepted as the input file for compatibility with plain
// "hgtdetect queries.faa" invocations.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("hgtdetect", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	input := fs.String("input", cfg.InputFile, "protein FASTA file with the query sequences")
	database := fs.String("db", cfg.Database, "diamond or mmseqs search database")
	taxonomyDB := fs.String("taxdb", cfg.TaxonomyDB, "ete3 taxa.sqlite taxonomy database")
	queryTaxon := fs.Int64("query-tax", int64(cfg.QueryTaxon), "NCBI taxid of the query organism")
	taxLevel := fs.String("tax-level", cfg.TaxLevel, "rank separating recipient from outgroup, one of "+strings.Join(TaxLevels, "|"))
	searchTool := fs.String("search", cfg.Search, "homology search tool, diamond or mmseqs")
	bitscore := fs.Float64("bitscore", cfg.BitscoreThreshold, "minimum outgroup bitscore for an HGT call")
	hgtIndex := fs.Float64("hgt-index", cfg.HGTIndexThreshold, "minimum outgroup/recipient bitscore ratio")
	outPct := fs.Float64("out-pct", cfg.OutPctThreshold, "minimum outgroup species fraction")
	workers := fs.Int("workers", cfg.Workers, "parallel gene workers")
	output := fs.String("output", cfg.OutputFile, "output TSV path, default output_<tax-level>_HGT.tsv")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}

	// Flags given explicitly win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputFile = *input
		case "db":
			cfg.Database = *database
		case "taxdb":
			cfg.TaxonomyDB = *taxonomyDB
		case "query-tax":
			cfg.QueryTaxon = taxdb.TaxID(*queryTaxon)
		case "tax-level":
			cfg.TaxLevel = *taxLevel
		case "search":
			cfg.Search = *searchTool
		case "bitscore":
			cfg.BitscoreThreshold = *bitscore
		case "hgt-index":
			cfg.HGTIndexThreshold = *hgtIndex
		case "out-pct":
			cfg.OutPctThreshold = *outPct
		case "workers":
			cfg.Workers = *workers
		case "output":
			cfg.OutputFile = *output
		}
	})

	if rest := fs.Args(); len(rest) > 0 {
		if len(rest) > 1 {
			return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[1:], " "))
		}
		if cfg.InputFile != "" && cfg.InputFile != rest[0] {
			return nil, fmt.Errorf("input file given twice: %q and %q", cfg.InputFile, rest[0])
		}
		cfg.InputFile = rest[0]
	}

	cfg.TaxLevel = strings.ToLower(cfg.TaxLevel)
	cfg.Search = strings.ToLower(cfg.Search)
	return cfg, nil
}

// LoadFile overlays settings from a YAML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.InputFile == "" {
		return errors.New("input FASTA file is required")
	}
	if c.Database == "" {
		return errors.New("search database path is required")
	}
	if c.QueryTaxon <= 0 {
		return errors.New("query taxid is required and must be positive")
	}
	if !validTaxLevel(c.TaxLevel) {
		return fmt.Errorf("unrecognized tax level %q, one of: %s", c.TaxLevel, strings.Join(TaxLevels, ", "))
	}
	if search.ParseTool(c.Search) == search.ToolUnknown {
		return fmt.Errorf("unrecognized search tool %q, diamond or mmseqs", c.Search)
	}
	if c.BitscoreThreshold < 0 {
		return errors.New("bitscore threshold must not be negative")
	}
	if c.HGTIndexThreshold < 0 {
		return errors.New("hgt index threshold must not be negative")
	}
	if c.OutPctThreshold < 0 || c.OutPctThreshold > 1 {
		return errors.New("out pct threshold must be between 0 and 1")
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	return nil
}

// Tool is the parsed search backend selector.
func (c *Config) Tool() search.Tool {
	return search.ParseTool(c.Search)
}

// Params returns the engine parameters for this configuration.
func (c *Config) Params() *hgt.Params {
	return &hgt.Params{
		QueryTaxon:        c.QueryTaxon,
		TaxLevel:          c.TaxLevel,
		BitscoreThreshold: c.BitscoreThreshold,
		HGTIndexThreshold: c.HGTIndexThreshold,
		OutPctThreshold:   c.OutPctThreshold,
	}
}

func validTaxLevel(level string) bool {
	for _, l := range TaxLevels {
		if l == level {
			return true
		}
	}
	return false
}
