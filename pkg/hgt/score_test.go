package hgt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingClassification() *Classification {
	return &Classification{
		Gene:                 "geneA",
		MaxOutgroupBitscore:  150,
		MaxRecipientBitscore: 100,
		OutgroupSpecies:      8,
		RecipientSpecies:     1,
		DonorLabel:           "Bacillaceae",
	}
}

func TestScoreBelowOutPctThreshold(t *testing.T) {
	c := passingClassification()
	c.OutgroupSpecies = 3
	c.RecipientSpecies = 1

	res, err := Score(c, testParams())
	require.NoError(t, err)

	assert.Equal(t, "1.5000", res.HGTIndex)
	assert.Equal(t, "0.7500", res.OutPct)
	assert.Equal(t, "No", res.Donor)
	assert.Equal(t, 150.0, res.Bitscore)
	assert.False(t, res.IsEvent())
}

func TestScoreEvent(t *testing.T) {
	res, err := Score(passingClassification(), testParams())
	require.NoError(t, err)

	assert.Equal(t, "1.5000", res.HGTIndex)
	assert.Equal(t, "0.8889", res.OutPct)
	assert.Equal(t, "Bacillaceae", res.Donor)
	assert.True(t, res.IsEvent())
}

func TestScoreStrictConjunction(t *testing.T) {
	cases := []struct {
		name   string
		adjust func(*Params)
	}{
		{"bitscore below threshold", func(p *Params) { p.BitscoreThreshold = 151 }},
		{"hgt index below threshold", func(p *Params) { p.HGTIndexThreshold = 1.6 }},
		{"out pct below threshold", func(p *Params) { p.OutPctThreshold = 0.9 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := testParams()
			tc.adjust(params)

			res, err := Score(passingClassification(), params)
			require.NoError(t, err)
			assert.Equal(t, "No", res.Donor, "one failing condition must veto the call")
		})
	}
}

func TestScoreMissingBitscore(t *testing.T) {
	c := passingClassification()
	c.MaxOutgroupBitscore = 0
	_, err := Score(c, testParams())
	assert.True(t, errors.Is(err, ErrMissingBitscore))

	c = passingClassification()
	c.MaxRecipientBitscore = 0
	_, err = Score(c, testParams())
	assert.True(t, errors.Is(err, ErrMissingBitscore))
}

func TestScoreComparesRoundedValues(t *testing.T) {
	// 15999/20000 = 0.79995, below the 0.8 cutoff raw but 0.8000 after
	// rounding to 4 decimals.
	c := passingClassification()
	c.OutgroupSpecies = 15999
	c.RecipientSpecies = 4001

	res, err := Score(c, testParams())
	require.NoError(t, err)

	assert.Equal(t, "0.8000", res.OutPct)
	assert.True(t, res.IsEvent(), "decision must use the rounded value")
}

func TestScoreFourDecimalRendering(t *testing.T) {
	c := passingClassification()
	c.MaxOutgroupBitscore = 100
	c.MaxRecipientBitscore = 3
	c.OutgroupSpecies = 1
	c.RecipientSpecies = 2

	res, err := Score(c, testParams())
	require.NoError(t, err)

	assert.Equal(t, "33.3333", res.HGTIndex)
	assert.Equal(t, "0.3333", res.OutPct)
}

func TestScoreDonorFallback(t *testing.T) {
	c := passingClassification()
	c.DonorLabel = ""

	res, err := Score(c, testParams())
	require.NoError(t, err)
	assert.Equal(t, "Not available", res.Donor)
}
