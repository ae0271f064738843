package hits

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yumyai/hgtdetect/logger"
	"github.com/yumyai/hgtdetect/pkg/taxdb"
	"go.uber.org/zap"
)

// Hit is one row of the tab-separated homology search table
// (qseqid, sseqid, evalue, bitscore, length, pident, staxids).
type Hit struct {
	Gene      string
	Accession string
	EValue    float64
	Bitscore  float64
	AlnLength int
	PctIdent  float64

	// TaxIDList is the raw semicolon-joined taxid column; TaxID is its
	// terminal entry, the one the search tool supplies for classification.
	TaxIDList string
	TaxID     taxdb.TaxID
	HasTaxID  bool
}

// Table holds every row of one search-result file, grouped per gene in
// file order. It is loaded once and shared read-only by all gene workers.
type Table struct {
	rows  map[string][]Hit
	genes []string
}

// NewTable groups already-parsed rows, preserving their order per gene.
func NewTable(rows []Hit) *Table {
	t := &Table{rows: make(map[string][]Hit)}
	for _, hit := range rows {
		t.add(hit)
	}
	return t
}

func (t *Table) add(hit Hit) {
	if _, seen := t.rows[hit.Gene]; !seen {
		t.genes = append(t.genes, hit.Gene)
	}
	t.rows[hit.Gene] = append(t.rows[hit.Gene], hit)
}

// Load reads a search-result table. Rows with fewer than 7 columns or an
// unparseable bitscore are logged and dropped; they never abort the load.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open search results %s: %w", path, err)
	}
	defer f.Close()

	table := &Table{rows: make(map[string][]Hit)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			logger.Warn("skipping malformed result row",
				zap.String("file", path), zap.Int("line", lineno),
				zap.Int("columns", len(fields)))
			continue
		}

		bitscore, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			logger.Warn("skipping result row with bad bitscore",
				zap.String("file", path), zap.Int("line", lineno),
				zap.String("bitscore", fields[3]))
			continue
		}

		// Only the bitscore and taxid columns drive classification; the
		// remaining numeric columns are carried along as-is.
		evalue, _ := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		alnLength, _ := strconv.Atoi(strings.TrimSpace(fields[4]))
		pctIdent, _ := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)

		hit := Hit{
			Gene:      fields[0],
			Accession: fields[1],
			EValue:    evalue,
			Bitscore:  bitscore,
			AlnLength: alnLength,
			PctIdent:  pctIdent,
			TaxIDList: fields[6],
		}
		hit.TaxID, hit.HasTaxID = terminalTaxID(fields[6])

		table.add(hit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read search results %s: %w", path, err)
	}

	return table, nil
}

// Gene returns the gene's hit rows in file order. Unknown genes yield nil.
func (t *Table) Gene(gene string) []Hit {
	return t.rows[gene]
}

// Genes lists the gene ids in first-seen file order.
func (t *Table) Genes() []string {
	return t.genes
}

// Len is the total number of retained rows.
func (t *Table) Len() int {
	n := 0
	for _, rows := range t.rows {
		n += len(rows)
	}
	return n
}

// UniqueTaxIDs returns the sorted set of usable terminal taxids across all
// rows.
func (t *Table) UniqueTaxIDs() []taxdb.TaxID {
	set := make(map[taxdb.TaxID]struct{})
	for _, rows := range t.rows {
		for _, hit := range rows {
			if hit.HasTaxID {
				set[hit.TaxID] = struct{}{}
			}
		}
	}

	ids := make([]taxdb.TaxID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// terminalTaxID parses the last entry of a semicolon-joined taxid list.
// Some tools emit float-shaped ids ("562.0"); those truncate to the
// integer id. Empty or unparseable entries mark the hit unusable.
func terminalTaxID(list string) (taxdb.TaxID, bool) {
	if list == "" {
		return 0, false
	}
	parts := strings.Split(list, ";")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(last, 10, 64); err == nil {
		return taxdb.TaxID(n), true
	}
	f, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, false
	}
	return taxdb.TaxID(int64(f)), true
}
