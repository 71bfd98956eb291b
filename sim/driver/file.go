package driver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

// ReadDefinitions parses a driver file: one "id origin destination depart
// preference" entry per line, '#' comments and blank lines ignored.
func ReadDefinitions(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading drivers file %s: %w", path, err)
	}
	defer f.Close()
	return parseDefinitions(f, path)
}

func parseDefinitions(r io.Reader, name string) ([]Definition, error) {
	var defs []Definition
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("%s:%d: expected 5 fields, got %d", name, lineNo, len(fields))
		}
		depart, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: departure time: %w", name, lineNo, err)
		}
		pref, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: preference: %w", name, lineNo, err)
		}
		if seen[fields[0]] {
			return nil, fmt.Errorf("%s:%d: duplicate driver %q", name, lineNo, fields[0])
		}
		seen[fields[0]] = true
		defs = append(defs, Definition{
			ID:          fields[0],
			Origin:      fields[1],
			Destination: fields[2],
			Depart:      depart,
			Preference:  pref,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading drivers file %s: %w", name, err)
	}
	return defs, nil
}

// WriteDefinitions writes definitions in the driver file format.
func WriteDefinitions(w io.Writer, defs []Definition) error {
	bw := bufio.NewWriter(w)
	for _, d := range defs {
		if _, err := fmt.Fprintf(bw, "%s %s %s %s %s\n", d.ID, d.Origin, d.Destination,
			strconv.FormatFloat(d.Depart, 'f', -1, 64), strconv.FormatFloat(d.Preference, 'f', -1, 64)); err != nil {
			return fmt.Errorf("writing driver %s: %w", d.ID, err)
		}
	}
	return bw.Flush()
}

// Load reads a driver file and builds one driver per entry.
func Load(path string, net *network.Network, opts ...Option) ([]*Driver, error) {
	defs, err := ReadDefinitions(path)
	if err != nil {
		return nil, err
	}
	drivers := make([]*Driver, 0, len(defs))
	for _, def := range defs {
		d, err := New(net, def, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading drivers from %s: %w", path, err)
		}
		drivers = append(drivers, d)
	}
	log.Infof("loaded %d drivers from %s", len(drivers), path)
	return drivers, nil
}
