package datamodel

// ErrorMessageExtension holds the author text key that overrides generic
// messages for a schema node.
const ErrorMessageExtension = "x-errorMessage"

// droppedKeywords never take part in instance validation.
var droppedKeywords = map[string]bool{
	"$schema":     true,
	"$id":         true,
	"$comment":    true,
	"$defs":       true,
	"definitions": true,
	"info":        true,
	"examples":    true,
}

// normalize rewrites draft-07/2020-12 keywords into the shape the compiled
// validator understands: numeric exclusive bounds become minimum/maximum
// with a boolean flag, const becomes a single-value enum, a "null" entry in a
// type list becomes nullable, and errorMessage moves to an extension.
func normalize(node any) any {
	schema, ok := node.(map[string]any)
	if !ok {
		return node
	}
	out := make(map[string]any, len(schema))
	for key, value := range schema {
		if droppedKeywords[key] {
			continue
		}
		switch key {
		case "errorMessage":
			out[ErrorMessageExtension] = value
		case "properties", "patternProperties":
			members, ok := value.(map[string]any)
			if !ok {
				continue
			}
			normalized := make(map[string]any, len(members))
			for name, member := range members {
				normalized[name] = normalize(member)
			}
			out[key] = normalized
		case "items", "additionalProperties", "not":
			out[key] = normalize(value)
		case "allOf", "anyOf", "oneOf":
			list, ok := value.([]any)
			if !ok {
				continue
			}
			normalized := make([]any, len(list))
			for i, entry := range list {
				normalized[i] = normalize(entry)
			}
			out[key] = normalized
		case "const":
			out["enum"] = []any{value}
		case "type":
			normalizeType(out, value)
		case "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum":
			// handled together below
		default:
			out[key] = value
		}
	}
	normalizeBound(out, schema, "minimum", "exclusiveMinimum")
	normalizeBound(out, schema, "maximum", "exclusiveMaximum")
	return out
}

func normalizeType(out map[string]any, value any) {
	list, ok := value.([]any)
	if !ok {
		out["type"] = value
		return
	}
	var kept []any
	for _, entry := range list {
		if entry == "null" {
			out["nullable"] = true
			continue
		}
		kept = append(kept, entry)
	}
	switch len(kept) {
	case 0:
	case 1:
		out["type"] = kept[0]
	default:
		out["type"] = kept
	}
}

func normalizeBound(out, schema map[string]any, bound, exclusive string) {
	value, hasValue := schema[bound].(float64)
	switch flag := schema[exclusive].(type) {
	case bool:
		if hasValue {
			out[bound] = value
		}
		out[exclusive] = flag
	case float64:
		inclusiveStricter := hasValue && ((bound == "minimum" && value > flag) || (bound == "maximum" && value < flag))
		if inclusiveStricter {
			out[bound] = value
			return
		}
		out[bound] = flag
		out[exclusive] = true
	default:
		if hasValue {
			out[bound] = value
		}
	}
}
