// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlsnapshot provides the declarative taxonomy snapshot document.
//
// A snapshot describes the desired state of a taxonomy: a nested list of categories
// and, per instrument, a list of weighted category references. Documents are parsed
// from JSON or YAML into a generic structpb tree first, then decoded into the typed
// model below. Any shape error aborts decoding with a *StructureError before a
// single category is looked at.
//
// The JSON shape is:
//
//	{
//	  "name": string, "color": string?,
//	  "categories": [ { "name": string, "key": string?, "description": string?, "color": string?,
//	                    "children": [ ...same shape... ]? } ],
//	  "instruments": [ { "identifiers": { "name": string?, "isin": string?, "wkn": string?, "ticker": string? },
//	                     "categories": [ { "key": string?, "path": [string]?, "weight": number? } ] } ]
//	}
package taxctlsnapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bufdev/taxctl/internal/pkg/protoio"
)

// Format is the encoding of a snapshot document.
type Format string

const (
	// FormatJSON is the JSON snapshot encoding.
	FormatJSON Format = "json"
	// FormatYAML is the YAML snapshot encoding.
	FormatYAML Format = "yaml"
)

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q, must be one of: json, yaml", s)
	}
}

// FormatForPath returns FormatYAML for .yaml and .yml files and FormatJSON otherwise.
func FormatForPath(filePath string) Format {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Snapshot is the desired state of a taxonomy.
type Snapshot struct {
	// Name is the taxonomy name.
	Name string `json:"name"`
	// Color is the optional color of the taxonomy root.
	Color *string `json:"color,omitempty"`
	// Categories are the top-level categories, in desired order.
	Categories []*Category `json:"categories"`
	// Instruments are the instrument-to-category weight mappings.
	Instruments []*Instrument `json:"instruments"`
}

// Category is a node of the snapshot category tree.
type Category struct {
	// Name is the display label. Categories with a blank name are ignored.
	Name string `json:"name"`
	// Key is the optional stable identifier.
	Key string `json:"key,omitempty"`
	// Description is the optional free-text description.
	Description *string `json:"description,omitempty"`
	// Color is the optional hex color.
	Color *string `json:"color,omitempty"`
	// Children are the nested categories, in desired order.
	Children []*Category `json:"children,omitempty"`
}

// Instrument maps one instrument to weighted categories.
type Instrument struct {
	// Identifiers identify the instrument.
	Identifiers Identifiers `json:"identifiers"`
	// Categories are the weighted category references.
	Categories []*CategoryWeight `json:"categories"`
}

// Identifiers is the identifier bundle of an instrument. Blank values are absent.
type Identifiers struct {
	Name   string `json:"name,omitempty"`
	ISIN   string `json:"isin,omitempty"`
	WKN    string `json:"wkn,omitempty"`
	Ticker string `json:"ticker,omitempty"`
}

// CategoryWeight references a category by key or by path, with a weight.
type CategoryWeight struct {
	// Key references a category by its stable key. Preferred over Path.
	Key string `json:"key,omitempty"`
	// Path lists category names from (excluding) the root down to the category.
	Path []string `json:"path,omitempty"`
	// Weight is a fraction of 1.0 (e.g., 0.25 is 25%). Nil means 100%.
	Weight *float64 `json:"weight,omitempty"`
}

// StructureError is returned when a document does not have the expected shape.
type StructureError struct {
	// Path is the location of the offending value (e.g., "categories[1].children[0].name").
	Path string
	// Message describes the problem.
	Message string
}

// Error implements error.
func (e *StructureError) Error() string {
	if e.Path == "" {
		return "invalid snapshot: " + e.Message
	}
	return fmt.Sprintf("invalid snapshot at %s: %s", e.Path, e.Message)
}

// Read reads and decodes a snapshot in the given format.
func Read(reader io.Reader, format Format) (*Snapshot, error) {
	switch format {
	case FormatJSON:
		document, err := protoio.ReadStructJSON(reader)
		if err != nil {
			return nil, &StructureError{Message: err.Error()}
		}
		return FromStruct(document)
	case FormatYAML:
		document, err := protoio.ReadStructYAML(reader)
		if err != nil {
			return nil, &StructureError{Message: err.Error()}
		}
		stringifyYAMLNumbers(document)
		return FromStruct(document)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}

// ReadFile reads and decodes the snapshot at filePath in the given format.
//
// Use FormatForPath to choose the format by extension.
func ReadFile(filePath string, format Format) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	snapshot, err := Read(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", filePath, err)
	}
	return snapshot, nil
}

// Write writes the snapshot as indented JSON followed by a newline.
func Write(writer io.Writer, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = writer.Write(data)
	return err
}
