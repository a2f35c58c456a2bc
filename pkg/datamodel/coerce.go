package datamodel

import (
	"strconv"

	"github.com/goliatone/go-formfill/pkg/formdata"
)

// Model converts flat string form data into the typed nested model,
// coercing each value by the type its schema node declares. Empty values are
// left out; presence is checked separately from schema validation.
func (v *Validator) Model(fd formdata.FormData) map[string]any {
	present := make(formdata.FormData, len(fd))
	for key, value := range fd {
		if value != "" {
			present[key] = value
		}
	}
	return formdata.ToModel(present, v.Coerce)
}

// Coerce converts value to the type declared for path. Values that do not
// parse stay strings so the type keyword reports them.
func (v *Validator) Coerce(path, value string) any {
	types := schemaTypes(v.SchemaAt(path))
	if len(types) == 0 || types["string"] {
		return value
	}
	switch {
	case types["integer"] || types["number"]:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	case types["boolean"]:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}

// SchemaAt returns the normalized schema node describing path, or nil.
func (v *Validator) SchemaAt(path string) map[string]any {
	node := v.root
	for _, seg := range formdata.ParsePath(path) {
		node = propertySchema(node, seg.Name)
		if node == nil {
			return nil
		}
		if seg.Index >= 0 {
			items, _ := node["items"].(map[string]any)
			if items == nil {
				return nil
			}
			node = items
		}
	}
	return node
}

func propertySchema(node map[string]any, name string) map[string]any {
	if node == nil {
		return nil
	}
	if properties, ok := node["properties"].(map[string]any); ok {
		if child, ok := properties[name].(map[string]any); ok {
			return child
		}
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		list, _ := node[key].([]any)
		for _, entry := range list {
			if child := propertySchema(asMap(entry), name); child != nil {
				return child
			}
		}
	}
	return nil
}

func schemaTypes(node map[string]any) map[string]bool {
	if node == nil {
		return nil
	}
	out := make(map[string]bool)
	switch typed := node["type"].(type) {
	case string:
		out[typed] = true
	case []any:
		for _, entry := range typed {
			if s, ok := entry.(string); ok {
				out[s] = true
			}
		}
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		list, _ := node[key].([]any)
		for _, entry := range list {
			for t := range schemaTypes(asMap(entry)) {
				out[t] = true
			}
		}
	}
	return out
}

func asMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}
