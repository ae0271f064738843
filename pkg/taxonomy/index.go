package taxonomy

import (
	"context"
	"sort"

	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
	"go.uber.org/zap"
)

// UnknownSpecies is the display name used when a taxon cannot be resolved
// to a named species.
const UnknownSpecies = "Unknown"

// Alignment maps a rank name to the ancestor taxon holding that rank.
type Alignment map[string]taxdb.TaxID

// Index is the per-run taxonomy lookup shared read-only by all gene
// workers. Alignments holds one rank alignment per taxon that appeared in
// the search results (or as the query); Ranks and Names cover the full
// lineage closure of those taxa.
type Index struct {
	Alignments map[taxdb.TaxID]Alignment
	Ranks      map[taxdb.TaxID]string
	Names      map[taxdb.TaxID]string
}

// Build resolves every hit taxon plus the query taxon against the
// authority and assembles the rank alignments. Ids that fail a lookup are
// logged and left out; a bad id never aborts construction for the others.
// Ids are processed in sorted order, so identical inputs produce an
// identical Index and identical logs.
func Build(ctx context.Context, authority taxdb.Resolver, hitTaxa []taxdb.TaxID, queryTaxon taxdb.TaxID) *Index {
	unique := make(map[taxdb.TaxID]struct{}, len(hitTaxa)+1)
	for _, id := range hitTaxa {
		unique[id] = struct{}{}
	}
	unique[queryTaxon] = struct{}{}

	ids := sortedIDs(unique)

	lineages := make(map[taxdb.TaxID][]taxdb.TaxID, len(ids))
	closure := make(map[taxdb.TaxID]struct{}, len(ids))
	for _, id := range ids {
		closure[id] = struct{}{}
		lineage, err := authority.Lineage(ctx, id)
		if err != nil {
			logger.Warn("lineage lookup failed, skipping taxid",
				zap.Int64("taxid", int64(id)), zap.Error(err))
			continue
		}
		lineages[id] = lineage
		for _, ancestor := range lineage {
			closure[ancestor] = struct{}{}
		}
	}

	ranks := make(map[taxdb.TaxID]string, len(closure))
	names := make(map[taxdb.TaxID]string, len(closure))
	for _, id := range sortedIDs(closure) {
		rank, err := authority.Rank(ctx, id)
		if err != nil {
			logger.Warn("rank lookup failed for taxid",
				zap.Int64("taxid", int64(id)), zap.Error(err))
			continue
		}
		ranks[id] = rank

		name, err := authority.Name(ctx, id)
		if err != nil {
			logger.Warn("name lookup failed for taxid",
				zap.Int64("taxid", int64(id)), zap.Error(err))
			continue
		}
		names[id] = name
	}

	alignments := make(map[taxdb.TaxID]Alignment, len(lineages))
	for id, lineage := range lineages {
		alignment := make(Alignment, len(lineage))
		for _, ancestor := range lineage {
			if rank, ok := ranks[ancestor]; ok {
				alignment[rank] = ancestor
			}
		}
		// A taxon's own rank always maps back to itself, even when the
		// lineage was translated away from the requested id.
		selfRank, ok := ranks[id]
		if !ok {
			selfRank = "no rank"
		}
		alignment[selfRank] = id
		alignments[id] = alignment
	}

	logger.Info("taxonomy index built",
		zap.Int("taxa", len(alignments)),
		zap.Int("lineage_closure", len(closure)))

	return &Index{Alignments: alignments, Ranks: ranks, Names: names}
}

// SpeciesName returns the display name of the species-rank ancestor of id,
// or UnknownSpecies when no named species can be resolved.
func (ix *Index) SpeciesName(id taxdb.TaxID) string {
	if sp, ok := ix.Alignments[id]["species"]; ok {
		if name, ok := ix.Names[sp]; ok {
			return name
		}
	}
	return UnknownSpecies
}

// NameAt returns the display name of id's ancestor at the given rank.
func (ix *Index) NameAt(id taxdb.TaxID, rank string) (string, bool) {
	ancestor, ok := ix.Alignments[id][rank]
	if !ok {
		return "", false
	}
	name, ok := ix.Names[ancestor]
	return name, ok
}

func sortedIDs(set map[taxdb.TaxID]struct{}) []taxdb.TaxID {
	ids := make([]taxdb.TaxID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
