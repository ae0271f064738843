package hgt

import (
	"github.com/yumyai/hgtdetect/pkg/taxdb"
)

// Default decision thresholds.
const (
	DefaultBitscoreThreshold = 100.0
	DefaultHGTIndexThreshold = 0.5
	DefaultOutPctThreshold   = 0.8
)

// Params is the immutable per-run configuration shared read-only by every
// gene worker.
type Params struct {
	// QueryTaxon is the taxid of the organism the query sequences belong to.
	QueryTaxon taxdb.TaxID

	// TaxLevel is the rank separating recipient from outgroup, e.g. "family".
	TaxLevel string

	// BitscoreThreshold is the minimum outgroup bitscore for an HGT call.
	BitscoreThreshold float64

	// HGTIndexThreshold is the minimum outgroup/recipient bitscore ratio.
	HGTIndexThreshold float64

	// OutPctThreshold is the minimum outgroup species fraction.
	OutPctThreshold float64
}

// DefaultParams returns Params with the standard thresholds for the given
// query taxon and rank.
func DefaultParams(queryTaxon taxdb.TaxID, taxLevel string) *Params {
	return &Params{
		QueryTaxon:        queryTaxon,
		TaxLevel:          taxLevel,
		BitscoreThreshold: DefaultBitscoreThreshold,
		HGTIndexThreshold: DefaultHGTIndexThreshold,
		OutPctThreshold:   DefaultOutPctThreshold,
	}
}
