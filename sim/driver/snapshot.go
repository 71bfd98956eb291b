package driver

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/samber/lo"
)

// SnapshotKind selects which half of the knowledge base a snapshot file holds.
type SnapshotKind int

const (
	Prices SnapshotKind = iota
	TravelTimes
)

func (k SnapshotKind) String() string {
	if k == Prices {
		return "prices"
	}
	return "travel times"
}

const snapshotCorner = `driver_id\segment_id`

// SaveSnapshot writes one knowledge column per segment and one row per driver,
// preceded by the episode and step the snapshot was taken at.
func SaveSnapshot(path string, kind SnapshotKind, episode, step int, drivers []*Driver, segmentIDs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s snapshot: %w", kind, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{
		{strconv.Itoa(episode)},
		{strconv.Itoa(step)},
		append([]string{snapshotCorner}, segmentIDs...),
	}
	for _, d := range drivers {
		row := make([]string, 0, len(segmentIDs)+1)
		row = append(row, d.ID())
		for _, id := range segmentIDs {
			if kind == Prices {
				row = append(row, strconv.Itoa(d.kb.Price(id)))
			} else {
				row = append(row, strconv.FormatFloat(d.kb.TravelTime(id), 'f', -1, 64))
			}
		}
		records = append(records, row)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("writing %s snapshot %s: %w", kind, path, err)
	}
	return f.Close()
}

// LoadSnapshot applies a snapshot to the knowledge of matching drivers and
// returns the episode and step it was taken at. Rows of unknown drivers are
// skipped.
func LoadSnapshot(path string, kind SnapshotKind, drivers []*Driver) (episode, step int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s snapshot: %w", kind, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s snapshot %s: %w", kind, path, err)
	}
	if len(records) < 3 || len(records[2]) == 0 || records[2][0] != snapshotCorner {
		return 0, 0, fmt.Errorf("parsing %s snapshot %s: missing header", kind, path)
	}
	if episode, err = strconv.Atoi(records[0][0]); err != nil {
		return 0, 0, fmt.Errorf("parsing %s snapshot %s: episode: %w", kind, path, err)
	}
	if step, err = strconv.Atoi(records[1][0]); err != nil {
		return 0, 0, fmt.Errorf("parsing %s snapshot %s: step: %w", kind, path, err)
	}

	segmentIDs := records[2][1:]
	byID := lo.KeyBy(drivers, func(d *Driver) string { return d.ID() })
	for line, row := range records[3:] {
		d, ok := byID[row[0]]
		if !ok {
			log.Warnf("%s snapshot %s: skipping unknown driver %q", kind, path, row[0])
			continue
		}
		if len(row)-1 != len(segmentIDs) {
			return 0, 0, fmt.Errorf("%s:%d: expected %d values, got %d", path, line+4, len(segmentIDs), len(row)-1)
		}
		for i, raw := range row[1:] {
			if kind == Prices {
				p, err := strconv.Atoi(raw)
				if err != nil {
					return 0, 0, fmt.Errorf("%s:%d: price for %s: %w", path, line+4, segmentIDs[i], err)
				}
				d.kb.SetPrice(segmentIDs[i], p)
			} else {
				tt, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return 0, 0, fmt.Errorf("%s:%d: travel time for %s: %w", path, line+4, segmentIDs[i], err)
				}
				d.kb.SetTravelTime(segmentIDs[i], tt)
			}
		}
	}
	return episode, step, nil
}
