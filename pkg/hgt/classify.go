package hgt

import (
	"errors"
	"fmt"

	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/hits"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
	"github.com/yumyai/hgtdetect/pkg/taxonomy"
	"go.uber.org/zap"
)

// Matches the reporting depth requested from the search tool and bounds
// the per-gene cost.
const maxHitsPerGene = 200

// Unclassifiable-gene conditions.
var (
	ErrQueryUnmapped = errors.New("query taxid missing from taxonomy index")
	ErrRankUnmapped  = errors.New("target rank missing for query taxid")
)

const donorNotAvailable = "Not available"

// Classification is the recipient/outgroup partition of one gene's hits at
// the target rank.
type Classification struct {
	Gene                 string
	MaxRecipientBitscore float64
	MaxOutgroupBitscore  float64
	RecipientSpecies     int
	OutgroupSpecies      int

	// DonorLabel is the target-rank name of the strongest outgroup hit's
	// taxon, or "Not available" when it cannot be resolved.
	DonorLabel string
}

// Classify partitions a gene's hit rows into recipient and outgroup by
// comparing each hit taxon's ancestor at the target rank against the
// query's. Only the first maxHitsPerGene rows are considered; rows without
// a usable taxid and taxa absent from the index are skipped and never count
// toward either partition.
func Classify(gene string, rows []hits.Hit, index *taxonomy.Index, params *Params) (*Classification, error) {
	if len(rows) > maxHitsPerGene {
		rows = rows[:maxHitsPerGene]
	}

	queryAlignment, ok := index.Alignments[params.QueryTaxon]
	if !ok {
		return nil, fmt.Errorf("gene %s: query taxid %d: %w", gene, params.QueryTaxon, ErrQueryUnmapped)
	}
	queryGroup, ok := queryAlignment[params.TaxLevel]
	if !ok {
		return nil, fmt.Errorf("gene %s: rank %q of query taxid %d: %w", gene, params.TaxLevel, params.QueryTaxon, ErrRankUnmapped)
	}

	// Collapse duplicate accessions: first occurrence fixes the order, the
	// last row's taxid and bitscore win.
	order := make([]string, 0, len(rows))
	taxidByAcc := make(map[string]taxdb.TaxID, len(rows))
	bitscoreByAcc := make(map[string]float64, len(rows))
	for _, row := range rows {
		if !row.HasTaxID {
			continue
		}
		if _, seen := taxidByAcc[row.Accession]; !seen {
			order = append(order, row.Accession)
		}
		taxidByAcc[row.Accession] = row.TaxID
		bitscoreByAcc[row.Accession] = row.Bitscore
	}

	recipientSpecies := make(map[string]struct{})
	outgroupSpecies := make(map[string]struct{})
	var maxRecipient, maxOutgroup float64
	var donorAcc string
	var donorFound bool

	for _, acc := range order {
		id := taxidByAcc[acc]
		alignment, ok := index.Alignments[id]
		if !ok {
			logger.Warn("taxid missing from taxonomy index, skipping accession",
				zap.String("gene", gene), zap.String("accession", acc),
				zap.Int64("taxid", int64(id)))
			continue
		}

		species := index.SpeciesName(id)
		bitscore := bitscoreByAcc[acc]
		if group, ok := alignment[params.TaxLevel]; ok && group == queryGroup {
			recipientSpecies[species] = struct{}{}
			if bitscore > maxRecipient {
				maxRecipient = bitscore
			}
		} else {
			outgroupSpecies[species] = struct{}{}
			if bitscore > maxOutgroup {
				maxOutgroup = bitscore
				donorAcc = acc
				donorFound = true
			}
		}
	}

	donorLabel := donorNotAvailable
	if donorFound {
		if name, ok := index.NameAt(taxidByAcc[donorAcc], params.TaxLevel); ok {
			donorLabel = name
		}
	}

	return &Classification{
		Gene:                 gene,
		MaxRecipientBitscore: maxRecipient,
		MaxOutgroupBitscore:  maxOutgroup,
		RecipientSpecies:     len(recipientSpecies),
		OutgroupSpecies:      len(outgroupSpecies),
		DonorLabel:           donorLabel,
	}, nil
}
