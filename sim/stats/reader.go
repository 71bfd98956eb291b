package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Table is a statistics file read back: column ids from the header and one
// row of values per episode. Header-only rows (preferences, initial prices)
// are skipped.
type Table struct {
	Columns  []string
	Episodes []int
	Values   [][]float64
}

// ReadTable parses a statistics file written by a Set.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading statistics: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing statistics %s: %w", path, err)
	}
	if len(records) == 0 || records[0][0] != headerLabel {
		return nil, fmt.Errorf("parsing statistics %s: missing header", path)
	}
	t := &Table{Columns: records[0][1:]}
	for line, rec := range records[1:] {
		if rec[0] == preferenceLabel || rec[0] == initialPriceLabel {
			continue
		}
		episode, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: episode label: %w", path, line+2, err)
		}
		row := make([]float64, len(rec)-1)
		for i, raw := range rec[1:] {
			if row[i], err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, line+2, i+1, err)
			}
		}
		t.Episodes = append(t.Episodes, episode)
		t.Values = append(t.Values, row)
	}
	return t, nil
}

// EpisodeMeans averages every episode row. Negative values mark missing
// driver data and are left out; a row with nothing left averages to 0.
func (t *Table) EpisodeMeans() []float64 {
	means := make([]float64, len(t.Values))
	for i, row := range t.Values {
		kept := make([]float64, 0, len(row))
		for _, v := range row {
			if v >= 0 {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			means[i] = stat.Mean(kept, nil)
		}
	}
	return means
}
