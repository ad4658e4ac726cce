// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package protoio provides functions for reading generic structpb document trees
// from JSON and YAML.
package protoio

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// ReadStructJSON reads all of reader as a JSON object into a generic document tree.
//
// Returns an error if the data is not a JSON object.
func ReadStructJSON(reader io.Reader) (*structpb.Struct, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	document := &structpb.Struct{}
	if err := protojson.Unmarshal(data, document); err != nil {
		return nil, fmt.Errorf("could not unmarshal as JSON object: %w", err)
	}
	return document, nil
}

// ReadStructYAML reads all of reader as a YAML mapping into a generic document tree.
//
// Returns an error if the data is not a YAML mapping.
func ReadStructYAML(reader io.Reader) (*structpb.Struct, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	// An empty document is an empty mapping.
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return &structpb.Struct{}, nil
	}
	raw, err := yamlNodeValue(&node)
	if err != nil {
		return nil, err
	}
	mapping, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("could not unmarshal as YAML mapping: got %T", raw)
	}
	document, err := structpb.NewStruct(mapping)
	if err != nil {
		return nil, fmt.Errorf("could not convert YAML to document: %w", err)
	}
	return document, nil
}

// yamlNodeValue converts a YAML node into the value types accepted by structpb.
//
// Mapping keys are always strings. Scalars structpb does not understand (e.g.,
// timestamps) become their source text, as do integers written with a leading zero
// such as "012345", which are identifiers rather than numbers.
func yamlNodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return yamlNodeValue(node.Content[0])
	case yaml.AliasNode:
		return yamlNodeValue(node.Alias)
	case yaml.MappingNode:
		mapping := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := yamlNodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			mapping[node.Content[i].Value] = value
		}
		return mapping, nil
	case yaml.SequenceNode:
		values := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := yamlNodeValue(child)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!int":
			if hasLeadingZero(node.Value) {
				return node.Value, nil
			}
			fallthrough
		case "!!bool", "!!float":
			var value any
			if err := node.Decode(&value); err != nil {
				return nil, fmt.Errorf("line %d: %w", node.Line, err)
			}
			return value, nil
		default:
			return node.Value, nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", node.Line)
	}
}

func hasLeadingZero(value string) bool {
	return len(value) > 1 && value[0] == '0' && value[1] >= '0' && value[1] <= '9'
}
