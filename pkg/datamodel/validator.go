// Package datamodel compiles an app's JSON Schema data model into a
// validator and converts flat form data into the typed model it checks.
package datamodel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formfill/pkg/formdata"
)

var registerFormats sync.Once

func defineFormats() {
	registerFormats.Do(func() {
		openapi3.DefineStringFormatValidator("year", openapi3.NewRegexpFormatValidator(`^[0-9]{4}$`))
		openapi3.DefineStringFormatValidator("year-month", openapi3.NewRegexpFormatValidator(`^[0-9]{4}-(0[1-9]|1[0-2])$`))
	})
}

// Violation is one schema keyword failure located in the data model.
type Violation struct {
	// Path is the bracketed data path of the failing value, e.g. "Group1[0].prop".
	Path    string
	Keyword string
	// Param is the keyword's constraint rendered for messages (a length, a
	// pattern, a comma separated list of allowed values).
	Param string
	// ErrorMessage is the author-supplied text key of the failing schema node.
	ErrorMessage string
	Reason       string
}

// Validator checks typed data models against a compiled schema.
type Validator struct {
	schema      *openapi3.Schema
	root        map[string]any
	rootElement string
}

// Option configures New.
type Option func(*config)

type config struct {
	rootPointer string
	maxRefDepth int
}

// WithRootPointer validates against the sub-schema at pointer ("#/definitions/Model")
// instead of the detected root element.
func WithRootPointer(pointer string) Option {
	return func(c *config) { c.rootPointer = pointer }
}

// WithMaxRefDepth caps $ref chains while inlining.
func WithMaxRefDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxRefDepth = depth
		}
	}
}

// New compiles a JSON Schema document. Draft 2020-12 documents validate
// from their root; older generator output validates against the definition
// referenced by its first root property (or info.rootNode).
func New(data []byte, options ...Option) (*Validator, error) {
	defineFormats()

	cfg := config{maxRefDepth: defaultMaxRefDepth}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("datamodel: decode schema: %w", err)
	}
	pointer := cfg.rootPointer
	if pointer == "" {
		pointer = rootElementPointer(doc, data)
	}

	target := any(doc)
	if pointer != "" {
		resolved, err := resolvePointer(doc, pointer)
		if err != nil {
			return nil, err
		}
		target = resolved
	}

	in := &inliner{root: doc, maxDepth: cfg.maxRefDepth}
	inlined, err := in.inline(target, &refState{})
	if err != nil {
		return nil, err
	}
	normalized, ok := normalize(inlined).(map[string]any)
	if !ok {
		return nil, errors.New("datamodel: schema root is not an object")
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("datamodel: encode schema: %w", err)
	}
	schema := openapi3.NewSchema()
	if err := json.Unmarshal(encoded, schema); err != nil {
		return nil, fmt.Errorf("datamodel: compile schema: %w", err)
	}

	return &Validator{schema: schema, root: normalized, rootElement: pointer}, nil
}

// RootElement returns the pointer of the validated sub-schema ("" for the document root).
func (v *Validator) RootElement() string { return v.rootElement }

func rootElementPointer(doc map[string]any, data []byte) string {
	if uri, _ := doc["$schema"].(string); strings.Contains(uri, "2020-12") {
		return ""
	}
	if info, ok := doc["info"].(map[string]any); ok {
		if node, ok := info["rootNode"].(string); ok {
			return node
		}
	}
	properties, ok := doc["properties"].(map[string]any)
	if !ok {
		return ""
	}
	first := firstPropertyKey(data)
	element, ok := properties[first].(map[string]any)
	if !ok {
		return ""
	}
	ref, _ := element["$ref"].(string)
	return ref
}

// firstPropertyKey returns the first key of the root "properties" object in
// document order.
func firstPropertyKey(data []byte) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, _ := tok.(string)
		if key != "properties" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return ""
			}
			continue
		}
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			return ""
		}
		tok, err = dec.Token()
		if err != nil {
			return ""
		}
		first, _ := tok.(string)
		return first
	}
	return ""
}

// Validate checks model and returns every keyword failure.
func (v *Validator) Validate(model map[string]any) []Violation {
	err := v.schema.VisitJSON(model, openapi3.MultiErrors(), openapi3.EnableFormatValidation())
	if err == nil {
		return nil
	}
	var out []Violation
	for _, schemaErr := range flatten(err) {
		out = append(out, Violation{
			Path:         dataPath(model, schemaErr.JSONPointer()),
			Keyword:      schemaErr.SchemaField,
			Param:        keywordParam(schemaErr.SchemaField, schemaErr.Schema),
			ErrorMessage: errorMessage(schemaErr.Schema),
			Reason:       schemaErr.Reason,
		})
	}
	return out
}

// ValidateFormData coerces fd into the typed model and validates it.
func (v *Validator) ValidateFormData(fd formdata.FormData) []Violation {
	return v.Validate(v.Model(fd))
}

func flatten(err error) []*openapi3.SchemaError {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []*openapi3.SchemaError
		for _, inner := range multi {
			out = append(out, flatten(inner)...)
		}
		return out
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return []*openapi3.SchemaError{schemaErr}
	}
	return nil
}

// dataPath renders a reversed JSON pointer as a bracketed data path, using
// the model to tell array indices from numeric property names.
func dataPath(model map[string]any, pointer []string) string {
	var (
		b       strings.Builder
		current any = model
	)
	for _, token := range pointer {
		if list, ok := current.([]any); ok {
			if i, err := strconv.Atoi(token); err == nil {
				b.WriteString("[" + token + "]")
				if i >= 0 && i < len(list) {
					current = list[i]
				} else {
					current = nil
				}
				continue
			}
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(token)
		if node, ok := current.(map[string]any); ok {
			current = node[token]
		} else {
			current = nil
		}
	}
	return b.String()
}

func errorMessage(schema *openapi3.Schema) string {
	if schema == nil {
		return ""
	}
	message, _ := schema.Extensions[ErrorMessageExtension].(string)
	return message
}

func keywordParam(keyword string, schema *openapi3.Schema) string {
	if schema == nil {
		return ""
	}
	switch keyword {
	case "minimum", "exclusiveMinimum":
		return formatFloat(schema.Min)
	case "maximum", "exclusiveMaximum":
		return formatFloat(schema.Max)
	case "multipleOf":
		return formatFloat(schema.MultipleOf)
	case "minLength":
		return strconv.FormatUint(schema.MinLength, 10)
	case "maxLength":
		return formatUint(schema.MaxLength)
	case "minItems":
		return strconv.FormatUint(schema.MinItems, 10)
	case "maxItems":
		return formatUint(schema.MaxItems)
	case "pattern":
		return schema.Pattern
	case "format":
		return schema.Format
	case "type":
		if schema.Type == nil {
			return ""
		}
		return strings.Join(schema.Type.Slice(), ", ")
	case "enum":
		values := make([]string, len(schema.Enum))
		for i, value := range schema.Enum {
			values[i] = formdata.Stringify(value)
		}
		return strings.Join(values, ", ")
	default:
		return ""
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatUint(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}
