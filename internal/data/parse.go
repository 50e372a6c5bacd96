// Package data reads structured data files and merges theme data into site
// data.
package data

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Parser turns a data file into a structured value: a scalar, []any or
// map[string]any, nested arbitrarily.
type Parser interface {
	Parse(path string) (any, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(path string) (any, error)

// Parse calls f.
func (f ParserFunc) Parse(path string) (any, error) { return f(path) }

// DefaultParser selects a format by file extension: JSON, TOML, CSV and TSV
// are recognized and everything else is read as YAML. Empty files yield nil.
type DefaultParser struct{}

// Parse reads and decodes path.
func (DefaultParser) Parse(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err = parseJSON(raw)
	case ".toml":
		v, err = parseTOML(raw)
	case ".csv":
		v, err = parseDelimited(raw, ',')
	case ".tsv":
		v, err = parseDelimited(raw, '\t')
	default:
		v, err = parseYAML(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func parseYAML(raw []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

func parseJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseTOML(raw []byte) (any, error) {
	var v map[string]any
	if err := toml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// parseDelimited reads a header row followed by records and returns one
// map per record.
func parseDelimited(raw []byte, comma rune) (any, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = comma
	r.FieldsPerRecord = -1
	if comma == '\t' {
		r.LazyQuotes = true
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	rows := []any{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize converts decoder output into map[string]any and []any all the way
// down. Non-string mapping keys are formatted with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}
