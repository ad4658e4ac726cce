// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlsnapshot

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// FromStruct decodes a generic document tree into a Snapshot.
//
// JSON null values are treated as absent. Unknown fields are ignored.
func FromStruct(document *structpb.Struct) (*Snapshot, error) {
	if document == nil {
		return nil, &StructureError{Message: "document is empty"}
	}
	fields := document.GetFields()
	name, err := optionalString(fields, "name", "")
	if err != nil {
		return nil, err
	}
	color, err := optionalString(fields, "color", "")
	if err != nil {
		return nil, err
	}
	categories, err := decodeCategories(fields, "")
	if err != nil {
		return nil, err
	}
	instruments, err := decodeInstruments(fields)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{
		Color:       color,
		Categories:  categories,
		Instruments: instruments,
	}
	if name != nil {
		snapshot.Name = *name
	}
	return snapshot, nil
}

func decodeCategories(fields map[string]*structpb.Value, parentPath string) ([]*Category, error) {
	fieldName := "categories"
	if parentPath != "" {
		fieldName = "children"
	}
	values, err := optionalList(fields, fieldName, parentPath)
	if err != nil {
		return nil, err
	}
	categories := make([]*Category, 0, len(values))
	for i, value := range values {
		path := fmt.Sprintf("%s[%d]", joinPath(parentPath, fieldName), i)
		categoryFields, err := asStruct(value, path)
		if err != nil {
			return nil, err
		}
		category, err := decodeCategory(categoryFields, path)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func decodeCategory(fields map[string]*structpb.Value, path string) (*Category, error) {
	name, err := optionalString(fields, "name", path)
	if err != nil {
		return nil, err
	}
	key, err := optionalString(fields, "key", path)
	if err != nil {
		return nil, err
	}
	description, err := optionalString(fields, "description", path)
	if err != nil {
		return nil, err
	}
	color, err := optionalString(fields, "color", path)
	if err != nil {
		return nil, err
	}
	children, err := decodeCategories(fields, path)
	if err != nil {
		return nil, err
	}
	category := &Category{
		Description: description,
		Color:       color,
	}
	if name != nil {
		category.Name = *name
	}
	if key != nil {
		category.Key = *key
	}
	if len(children) > 0 {
		category.Children = children
	}
	return category, nil
}

func decodeInstruments(fields map[string]*structpb.Value) ([]*Instrument, error) {
	values, err := optionalList(fields, "instruments", "")
	if err != nil {
		return nil, err
	}
	instruments := make([]*Instrument, 0, len(values))
	for i, value := range values {
		path := fmt.Sprintf("instruments[%d]", i)
		instrumentFields, err := asStruct(value, path)
		if err != nil {
			return nil, err
		}
		instrument, err := decodeInstrument(instrumentFields, path)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument)
	}
	return instruments, nil
}

func decodeInstrument(fields map[string]*structpb.Value, path string) (*Instrument, error) {
	instrument := &Instrument{}
	if value, ok := present(fields, "identifiers"); ok {
		identifiersPath := joinPath(path, "identifiers")
		identifierFields, err := asStruct(value, identifiersPath)
		if err != nil {
			return nil, err
		}
		for _, target := range []struct {
			fieldName string
			value     *string
		}{
			{"name", &instrument.Identifiers.Name},
			{"isin", &instrument.Identifiers.ISIN},
			{"wkn", &instrument.Identifiers.WKN},
			{"ticker", &instrument.Identifiers.Ticker},
		} {
			identifier, err := optionalString(identifierFields, target.fieldName, identifiersPath)
			if err != nil {
				return nil, err
			}
			if identifier != nil {
				*target.value = *identifier
			}
		}
	}
	values, err := optionalList(fields, "categories", path)
	if err != nil {
		return nil, err
	}
	instrument.Categories = make([]*CategoryWeight, 0, len(values))
	for i, value := range values {
		weightPath := fmt.Sprintf("%s[%d]", joinPath(path, "categories"), i)
		weightFields, err := asStruct(value, weightPath)
		if err != nil {
			return nil, err
		}
		categoryWeight, err := decodeCategoryWeight(weightFields, weightPath)
		if err != nil {
			return nil, err
		}
		instrument.Categories = append(instrument.Categories, categoryWeight)
	}
	return instrument, nil
}

func decodeCategoryWeight(fields map[string]*structpb.Value, path string) (*CategoryWeight, error) {
	key, err := optionalString(fields, "key", path)
	if err != nil {
		return nil, err
	}
	weight, err := optionalNumber(fields, "weight", path)
	if err != nil {
		return nil, err
	}
	categoryWeight := &CategoryWeight{
		Weight: weight,
	}
	if key != nil {
		categoryWeight.Key = *key
	}
	pathValues, err := optionalList(fields, "path", path)
	if err != nil {
		return nil, err
	}
	for i, value := range pathValues {
		stringValue, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, &StructureError{
				Path:    fmt.Sprintf("%s[%d]", joinPath(path, "path"), i),
				Message: "must be a string, got " + kindName(value),
			}
		}
		categoryWeight.Path = append(categoryWeight.Path, stringValue.StringValue)
	}
	return categoryWeight, nil
}

// present returns the value for fieldName if it exists and is not null.
func present(fields map[string]*structpb.Value, fieldName string) (*structpb.Value, bool) {
	value, ok := fields[fieldName]
	if !ok || value == nil {
		return nil, false
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return value, true
}

func optionalString(fields map[string]*structpb.Value, fieldName string, path string) (*string, error) {
	value, ok := present(fields, fieldName)
	if !ok {
		return nil, nil
	}
	stringValue, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, &StructureError{
			Path:    joinPath(path, fieldName),
			Message: "must be a string, got " + kindName(value),
		}
	}
	return &stringValue.StringValue, nil
}

func optionalNumber(fields map[string]*structpb.Value, fieldName string, path string) (*float64, error) {
	value, ok := present(fields, fieldName)
	if !ok {
		return nil, nil
	}
	numberValue, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, &StructureError{
			Path:    joinPath(path, fieldName),
			Message: "must be a number, got " + kindName(value),
		}
	}
	return &numberValue.NumberValue, nil
}

func optionalList(fields map[string]*structpb.Value, fieldName string, path string) ([]*structpb.Value, error) {
	value, ok := present(fields, fieldName)
	if !ok {
		return nil, nil
	}
	listValue, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, &StructureError{
			Path:    joinPath(path, fieldName),
			Message: "must be a list, got " + kindName(value),
		}
	}
	return listValue.ListValue.GetValues(), nil
}

func asStruct(value *structpb.Value, path string) (map[string]*structpb.Value, error) {
	structValue, ok := value.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, &StructureError{
			Path:    path,
			Message: "must be an object, got " + kindName(value),
		}
	}
	return structValue.StructValue.GetFields(), nil
}

func kindName(value *structpb.Value) string {
	switch value.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "null"
	case *structpb.Value_NumberValue:
		return "number"
	case *structpb.Value_StringValue:
		return "string"
	case *structpb.Value_BoolValue:
		return "bool"
	case *structpb.Value_StructValue:
		return "object"
	case *structpb.Value_ListValue:
		return "list"
	default:
		return "unknown"
	}
}

func joinPath(path string, fieldName string) string {
	if path == "" {
		return fieldName
	}
	return path + "." + fieldName
}
