package fasta

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Record is one FASTA entry. ID is the first whitespace-delimited token of
// the header line, the form search tools report hits under.
type Record struct {
	ID  string
	Seq string
}

// Load reads protein records in file order. A duplicate id keeps the last
// sequence seen but is listed only once.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	index := make(map[string]int)
	upsert := func(id, seq string) {
		if i, ok := index[id]; ok {
			records[i].Seq = seq
			return
		}
		index[id] = len(records)
		records = append(records, Record{ID: id, Seq: seq})
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var id string
	var seq strings.Builder
	inRecord := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			if inRecord {
				upsert(id, seq.String())
			}
			fields := strings.Fields(strings.TrimPrefix(line, ">"))
			if len(fields) == 0 {
				return nil, fmt.Errorf("fasta %s: record with empty header", path)
			}
			id = fields[0]
			seq.Reset()
			inRecord = true
			continue
		}
		if inRecord {
			seq.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta %s: %w", path, err)
	}
	if inRecord {
		upsert(id, seq.String())
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("fasta %s: no records found", path)
	}
	return records, nil
}

// IDs lists the record ids in file order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
