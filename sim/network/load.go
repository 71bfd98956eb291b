package network

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML road network description.
type File struct {
	Nodes    []NodeSpec    `yaml:"nodes"`
	Segments []SegmentSpec `yaml:"segments"`
}

// NodeSpec is one junction in a network file.
type NodeSpec struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// SegmentSpec is one directed segment in a network file.
type SegmentSpec struct {
	ID     string  `yaml:"id"`
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Length float64 `yaml:"length"`
	Lanes  int     `yaml:"lanes"`
	Speed  float64 `yaml:"speed"`
}

// Load reads a YAML network file and any number of district files.
func Load(path string, districtFiles ...string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing network file %s: %w", path, err)
	}

	b := f.Builder()
	for _, df := range districtFiles {
		districts, err := LoadDistricts(df)
		if err != nil {
			return nil, err
		}
		for _, d := range districts {
			b.AddDistrict(d)
		}
	}
	n, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building network from %s: %w", path, err)
	}
	log.Infof("Loaded network %s: %d segments, %d districts", path, len(n.Segments()), len(n.Districts()))
	return n, nil
}

// Builder converts the decoded file into a Builder. Lanes default to 1.
func (f *File) Builder() *Builder {
	b := NewBuilder()
	for _, node := range f.Nodes {
		b.AddNode(node.ID, node.X, node.Y)
	}
	for _, s := range f.Segments {
		lanes := s.Lanes
		if lanes == 0 {
			lanes = 1
		}
		b.AddSegment(s.ID, s.From, s.To, s.Length, lanes, s.Speed)
	}
	return b
}

type districtFile struct {
	TAZs      []districtElem `xml:"taz"`
	Districts []districtElem `xml:"district"`
}

type districtElem struct {
	ID       string        `xml:"id,attr"`
	Edges    string        `xml:"edges,attr"`
	Sources  []districtRef `xml:"tazSource"`
	Sinks    []districtRef `xml:"tazSink"`
	DSources []districtRef `xml:"dsource"`
	DSinks   []districtRef `xml:"dsink"`
}

type districtRef struct {
	ID     string `xml:"id,attr"`
	Weight string `xml:"weight,attr"`
}

// LoadDistricts reads a taz/district XML file. Both the taz (tazSource/tazSink)
// and the legacy district (dsource/dsink) vocabularies are accepted; an edges
// attribute lists segments that are both source and sink with weight 1.
func LoadDistricts(path string) ([]*District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading district file: %w", err)
	}
	var f districtFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing district file %s: %w", path, err)
	}

	var out []*District
	for _, e := range append(f.TAZs, f.Districts...) {
		if e.ID == "" {
			return nil, fmt.Errorf("district file %s: district without id", path)
		}
		d := &District{ID: e.ID}
		for _, id := range strings.Fields(e.Edges) {
			d.Sources = append(d.Sources, WeightedSegment{SegmentID: id, Weight: 1})
			d.Sinks = append(d.Sinks, WeightedSegment{SegmentID: id, Weight: 1})
		}
		for _, refs := range [][]districtRef{e.Sources, e.DSources} {
			ws, err := weighted(refs)
			if err != nil {
				return nil, fmt.Errorf("district %q in %s: %w", e.ID, path, err)
			}
			d.Sources = append(d.Sources, ws...)
		}
		for _, refs := range [][]districtRef{e.Sinks, e.DSinks} {
			ws, err := weighted(refs)
			if err != nil {
				return nil, fmt.Errorf("district %q in %s: %w", e.ID, path, err)
			}
			d.Sinks = append(d.Sinks, ws...)
		}
		out = append(out, d)
	}
	return out, nil
}

func weighted(refs []districtRef) ([]WeightedSegment, error) {
	out := make([]WeightedSegment, 0, len(refs))
	for _, r := range refs {
		w := 1.0
		if r.Weight != "" {
			v, err := strconv.ParseFloat(r.Weight, 64)
			if err != nil {
				return nil, fmt.Errorf("segment %q: invalid weight %q", r.ID, r.Weight)
			}
			w = v
		}
		out = append(out, WeightedSegment{SegmentID: r.ID, Weight: w})
	}
	return out, nil
}
