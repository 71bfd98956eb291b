// Package stats appends per-episode statistics rows to CSV files: one file per
// statistic, one column per driver or segment, one row per episode.
package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// Kind names one statistics file.
type Kind string

const (
	DriverTravelTime Kind = "drv_tt"
	DriverExpenses   Kind = "drv_xps"
	DriverCost       Kind = "drv_z"
	SegmentOccupancy Kind = "edg_occ"
	SegmentPrice     Kind = "edg_prc"
	SegmentUsers     Kind = "edg_lus"
)

const (
	headerLabel       = "x"
	preferenceLabel   = "pref"
	initialPriceLabel = "0"
)

// DriverKinds and SegmentKinds list the files in writing order.
var (
	DriverKinds  = []Kind{DriverTravelTime, DriverExpenses, DriverCost}
	SegmentKinds = []Kind{SegmentOccupancy, SegmentPrice, SegmentUsers}
)

// Path is where a statistics file lives.
func Path(dir, prefix string, kind Kind) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, kind))
}

// FormatFloat renders a value in its shortest exact decimal form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInts renders integer values.
func FormatInts(values []int) []string {
	return lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) })
}

// FormatFloats renders float values.
func FormatFloats(values []float64) []string {
	return lo.Map(values, func(v float64, _ int) string { return FormatFloat(v) })
}

// Writer appends labelled rows to one file.
type Writer struct {
	path  string
	f     *os.File
	w     *csv.Writer
	fresh bool
}

// Open opens path for appending, creating it when missing.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening statistics file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("inspecting statistics file %s: %w", path, err)
	}
	return &Writer{path: path, f: f, w: csv.NewWriter(f), fresh: info.Size() == 0}, nil
}

// Fresh reports whether the file was empty when opened.
func (w *Writer) Fresh() bool { return w.fresh }

// WriteLine writes the label followed by the values and flushes.
func (w *Writer) WriteLine(label string, values []string) error {
	if err := w.w.Write(append([]string{label}, values...)); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// Headers describe the columns of a statistics set.
type Headers struct {
	DriverIDs     []string
	Preferences   []float64
	SegmentIDs    []string
	InitialPrices []int
}

// Set is the group of statistics files of one experiment.
type Set struct {
	writers map[Kind]*Writer
}

// OpenSet opens every statistics file under dir with the given prefix. Files
// that are new or empty get their header rows.
func OpenSet(dir, prefix string, h Headers) (*Set, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	s := &Set{writers: make(map[Kind]*Writer)}
	open := func(kind Kind, rows ...[]string) error {
		w, err := Open(Path(dir, prefix, kind))
		if err != nil {
			return err
		}
		s.writers[kind] = w
		if !w.Fresh() {
			return nil
		}
		for _, row := range rows {
			if err := w.WriteLine(row[0], row[1:]); err != nil {
				return err
			}
		}
		return nil
	}

	driverHeader := append([]string{headerLabel}, h.DriverIDs...)
	prefRow := append([]string{preferenceLabel}, FormatFloats(h.Preferences)...)
	segmentHeader := append([]string{headerLabel}, h.SegmentIDs...)
	for _, kind := range DriverKinds {
		if err := open(kind, driverHeader, prefRow); err != nil {
			s.Close()
			return nil, err
		}
	}
	for _, kind := range SegmentKinds {
		rows := [][]string{segmentHeader}
		if kind == SegmentPrice {
			rows = append(rows, append([]string{initialPriceLabel}, FormatInts(h.InitialPrices)...))
		}
		if err := open(kind, rows...); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Write appends one row to a file of the set.
func (s *Set) Write(kind Kind, label string, values []string) error {
	w, ok := s.writers[kind]
	if !ok {
		return fmt.Errorf("unknown statistics file %q", kind)
	}
	return w.WriteLine(label, values)
}

// Close closes every file of the set.
func (s *Set) Close() error {
	var first error
	for _, w := range s.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RemoveSet deletes the statistics files of a prefix so that a run can
// regenerate them from the first episode. Missing files are ignored.
func RemoveSet(dir, prefix string) error {
	for _, kind := range append(slices.Clone(DriverKinds), SegmentKinds...) {
		if err := os.Remove(Path(dir, prefix, kind)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing statistics file: %w", err)
		}
	}
	return nil
}
