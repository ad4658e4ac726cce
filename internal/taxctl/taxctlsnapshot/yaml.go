// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlsnapshot

import (
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// stringifyYAMLNumbers replaces numbers in string fields of a YAML snapshot with their
// decimal text, so that unquoted identifiers such as "wkn: 514000" decode as strings.
//
// JSON documents are not passed through here: a number in a JSON string field is a
// structure error.
func stringifyYAMLNumbers(document *structpb.Struct) {
	fields := document.GetFields()
	stringifyFields(fields, "name", "color")
	stringifyCategories(fields["categories"])
	for _, instrument := range listValues(fields["instruments"]) {
		instrumentFields := instrument.GetStructValue().GetFields()
		stringifyFields(instrumentFields["identifiers"].GetStructValue().GetFields(), "name", "isin", "wkn", "ticker")
		for _, categoryWeight := range listValues(instrumentFields["categories"]) {
			categoryWeightFields := categoryWeight.GetStructValue().GetFields()
			stringifyFields(categoryWeightFields, "key")
			for _, element := range listValues(categoryWeightFields["path"]) {
				stringifyValue(element)
			}
		}
	}
}

func stringifyCategories(value *structpb.Value) {
	for _, category := range listValues(value) {
		categoryFields := category.GetStructValue().GetFields()
		stringifyFields(categoryFields, "name", "key", "description", "color")
		stringifyCategories(categoryFields["children"])
	}
}

func stringifyFields(fields map[string]*structpb.Value, fieldNames ...string) {
	for _, fieldName := range fieldNames {
		stringifyValue(fields[fieldName])
	}
}

func stringifyValue(value *structpb.Value) {
	if numberValue, ok := value.GetKind().(*structpb.Value_NumberValue); ok {
		value.Kind = &structpb.Value_StringValue{
			StringValue: strconv.FormatFloat(numberValue.NumberValue, 'f', -1, 64),
		}
	}
}

func listValues(value *structpb.Value) []*structpb.Value {
	return value.GetListValue().GetValues()
}
