package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yumyai/hgtdetect/pkg/search"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hgt.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() *Config {
	cfg := Default()
	cfg.InputFile = "queries.faa"
	cfg.Database = "nr.dmnd"
	cfg.QueryTaxon = 562
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "family", cfg.TaxLevel)
	assert.Equal(t, "diamond", cfg.Search)
	assert.Equal(t, 100.0, cfg.BitscoreThreshold)
	assert.Equal(t, 0.5, cfg.HGTIndexThreshold)
	assert.Equal(t, 0.8, cfg.OutPctThreshold)
	assert.Greater(t, cfg.Workers, 0)
	assert.NotEmpty(t, cfg.TaxonomyDB)
}

func TestDefaultTaxonomyDBPathEnv(t *testing.T) {
	t.Setenv("HGT_TAXDB", "/srv/ncbi/taxa.sqlite")

	assert.Equal(t, "/srv/ncbi/taxa.sqlite", Default().TaxonomyDB)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"-input", "queries.faa",
		"-db", "nr.dmnd",
		"-taxdb", "taxa.sqlite",
		"-query-tax", "562",
		"-tax-level", "genus",
		"-search", "mmseqs",
		"-bitscore", "80",
		"-hgt-index", "0.6",
		"-out-pct", "0.9",
		"-workers", "4",
		"-output", "out.tsv",
	})
	require.NoError(t, err)

	assert.Equal(t, "queries.faa", cfg.InputFile)
	assert.Equal(t, "nr.dmnd", cfg.Database)
	assert.Equal(t, "taxa.sqlite", cfg.TaxonomyDB)
	assert.Equal(t, taxdb.TaxID(562), cfg.QueryTaxon)
	assert.Equal(t, "genus", cfg.TaxLevel)
	assert.Equal(t, search.ToolMMseqs, cfg.Tool())
	assert.Equal(t, 80.0, cfg.BitscoreThreshold)
	assert.Equal(t, 0.6, cfg.HGTIndexThreshold)
	assert.Equal(t, 0.9, cfg.OutPctThreshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "out.tsv", cfg.OutputFile)
}

func TestParsePositionalInput(t *testing.T) {
	cfg, err := Parse([]string{"-query-tax", "562", "queries.faa"})
	require.NoError(t, err)

	assert.Equal(t, "queries.faa", cfg.InputFile)
}

func TestParsePositionalConflict(t *testing.T) {
	_, err := Parse([]string{"-input", "a.faa", "b.faa"})
	assert.Error(t, err)

	cfg, err := Parse([]string{"-input", "a.faa", "a.faa"})
	require.NoError(t, err)
	assert.Equal(t, "a.faa", cfg.InputFile)
}

func TestParseRejectsExtraArgs(t *testing.T) {
	_, err := Parse([]string{"a.faa", "b.faa"})
	assert.Error(t, err)
}

func TestParseConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
input_file: queries.faa
database: nr.dmnd
query_taxon: 1423
tax_level: order
search: mmseqs
bitscore_parameter: 50
workers: 2
`)

	cfg, err := Parse([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, "queries.faa", cfg.InputFile)
	assert.Equal(t, "nr.dmnd", cfg.Database)
	assert.Equal(t, taxdb.TaxID(1423), cfg.QueryTaxon)
	assert.Equal(t, "order", cfg.TaxLevel)
	assert.Equal(t, "mmseqs", cfg.Search)
	assert.Equal(t, 50.0, cfg.BitscoreThreshold)
	assert.Equal(t, 2, cfg.Workers)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.5, cfg.HGTIndexThreshold)
	assert.Equal(t, 0.8, cfg.OutPctThreshold)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
input_file: queries.faa
tax_level: genus
bitscore_parameter: 50
`)

	cfg, err := Parse([]string{"-config", path, "-bitscore", "200"})
	require.NoError(t, err)

	assert.Equal(t, 200.0, cfg.BitscoreThreshold)
	assert.Equal(t, "genus", cfg.TaxLevel)
}

func TestParseMissingConfigFile(t *testing.T) {
	_, err := Parse([]string{"-config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestParseNormalizesCase(t *testing.T) {
	cfg, err := Parse([]string{"-tax-level", "Family", "-search", "DIAMOND"})
	require.NoError(t, err)

	assert.Equal(t, "family", cfg.TaxLevel)
	assert.Equal(t, "diamond", cfg.Search)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input", func(c *Config) { c.InputFile = "" }},
		{"missing database", func(c *Config) { c.Database = "" }},
		{"missing query taxon", func(c *Config) { c.QueryTaxon = 0 }},
		{"negative query taxon", func(c *Config) { c.QueryTaxon = -5 }},
		{"bad tax level", func(c *Config) { c.TaxLevel = "tribe" }},
		{"bad search tool", func(c *Config) { c.Search = "blastp" }},
		{"negative bitscore", func(c *Config) { c.BitscoreThreshold = -1 }},
		{"negative hgt index", func(c *Config) { c.HGTIndexThreshold = -0.1 }},
		{"out pct above one", func(c *Config) { c.OutPctThreshold = 1.2 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParams(t *testing.T) {
	cfg := validConfig()
	cfg.TaxLevel = "genus"
	cfg.BitscoreThreshold = 75

	p := cfg.Params()
	assert.Equal(t, taxdb.TaxID(562), p.QueryTaxon)
	assert.Equal(t, "genus", p.TaxLevel)
	assert.Equal(t, 75.0, p.BitscoreThreshold)
	assert.Equal(t, 0.5, p.HGTIndexThreshold)
	assert.Equal(t, 0.8, p.OutPctThreshold)
}
