package hgt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/yumyai/hgtdetect/logger"
	"go.uber.org/zap"
)

// Label reported for genes that fail the decision rule.
const labelNotHGT = "No"

// ErrMissingBitscore marks a gene with an empty recipient or outgroup
// bitscore partition; such genes are skipped rather than scored.
var ErrMissingBitscore = errors.New("recipient or outgroup bitscore missing")

// GeneResult is one row of the detection output. OutPct and HGTIndex carry
// the 4-decimal renderings used both for reporting and for the decision.
type GeneResult struct {
	Gene     string
	Bitscore float64
	OutPct   string
	HGTIndex string
	Donor    string
}

// IsEvent reports whether the gene was called an HGT event.
func (r *GeneResult) IsEvent() bool {
	return r.Donor != labelNotHGT
}

// Score applies the decision rule to a classified gene. The ratio and the
// species fraction are rounded to 4 decimals first and the rounded values
// are compared against the thresholds, so a raw 0.79995 passes a 0.8
// cutoff. All three conditions must hold for an HGT call.
func Score(c *Classification, params *Params) (*GeneResult, error) {
	if c.MaxOutgroupBitscore <= 0 || c.MaxRecipientBitscore <= 0 {
		return nil, fmt.Errorf("gene %s: %w", c.Gene, ErrMissingBitscore)
	}
	total := c.OutgroupSpecies + c.RecipientSpecies
	if total == 0 {
		return nil, fmt.Errorf("gene %s: no species counted in either partition", c.Gene)
	}

	hgtIndex := strconv.FormatFloat(c.MaxOutgroupBitscore/c.MaxRecipientBitscore, 'f', 4, 64)
	outPct := strconv.FormatFloat(float64(c.OutgroupSpecies)/float64(total), 'f', 4, 64)
	hgtIndexRounded, _ := strconv.ParseFloat(hgtIndex, 64)
	outPctRounded, _ := strconv.ParseFloat(outPct, 64)

	isEvent := c.MaxOutgroupBitscore >= params.BitscoreThreshold &&
		hgtIndexRounded >= params.HGTIndexThreshold &&
		outPctRounded >= params.OutPctThreshold

	donor := labelNotHGT
	if isEvent {
		donor = c.DonorLabel
		if donor == "" {
			donor = donorNotAvailable
		}
		logger.Info("HGT event detected",
			zap.String("gene", c.Gene),
			zap.String("hgt_index", hgtIndex),
			zap.String("out_pct", outPct),
			zap.String("donor", donor))
	} else {
		logger.Debug("gene scored, no HGT event",
			zap.String("gene", c.Gene),
			zap.String("hgt_index", hgtIndex),
			zap.String("out_pct", outPct))
	}

	return &GeneResult{
		Gene:     c.Gene,
		Bitscore: c.MaxOutgroupBitscore,
		OutPct:   outPct,
		HGTIndex: hgtIndex,
		Donor:    donor,
	}, nil
}
