// Package results persists scan results and renders them for people.
//
// A results file maps each candidate name to a list of
// [reference_name, similarity] pairs:
//
//	{
//	  "reqeusts": [["requests", 0.875]]
//	}
//
// YAML files carry the same shape with flow-style pairs.
package results

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsukumogami/typoscan/internal/similarity"
)

// Format selects the on-disk encoding of a results file.
type Format int

const (
	// FormatJSON writes indented JSON.
	FormatJSON Format = iota
	// FormatYAML writes YAML.
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("unknown results format %q (use json or yaml)", s)
	}
}

// FormatFromPath picks the format from the file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// pair is the wire form of a similarity.Match.
type pair similarity.Match

func (p pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Name, p.Score})
}

func (p *pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected [name, score] pair, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Name); err != nil {
		return fmt.Errorf("pair name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Score); err != nil {
		return fmt.Errorf("pair score: %w", err)
	}
	return nil
}

func (p pair) MarshalYAML() (any, error) {
	score := strconv.FormatFloat(p.Score, 'f', -1, 64)
	if !strings.ContainsAny(score, ".eE") {
		score += ".0"
	}
	return &yaml.Node{
		Kind:  yaml.SequenceNode,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
			{Kind: yaml.ScalarNode, Tag: "!!float", Value: score},
		},
	}, nil
}

func (p *pair) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) != 2 {
		return fmt.Errorf("line %d: expected [name, score] pair", value.Line)
	}
	score, err := strconv.ParseFloat(value.Content[1].Value, 64)
	if err != nil {
		return fmt.Errorf("line %d: pair score: %w", value.Line, err)
	}
	p.Name = value.Content[0].Value
	p.Score = score
	return nil
}

// document is the top-level shape of a results file.
type document map[string][]pair

func toDocument(rs similarity.ResultSet) document {
	doc := make(document, len(rs))
	for c, ms := range rs.Sorted() {
		ps := make([]pair, len(ms))
		for i, m := range ms {
			ps[i] = pair(m)
		}
		doc[c] = ps
	}
	return doc
}

func (d document) resultSet() similarity.ResultSet {
	rs := make(similarity.ResultSet, len(d))
	for c, ps := range d {
		ms := make([]similarity.Match, len(ps))
		for i, p := range ps {
			ms[i] = similarity.Match(p)
		}
		rs.Add(c, ms...)
	}
	return rs
}

// Marshal encodes a result set in the given format.
func Marshal(rs similarity.ResultSet, f Format) ([]byte, error) {
	doc := toDocument(rs)
	if f == FormatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a result set in the given format.
func Unmarshal(data []byte, f Format) (similarity.ResultSet, error) {
	var doc document
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s results: %w", f, err)
	}
	return doc.resultSet(), nil
}
