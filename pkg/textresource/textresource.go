// Package textresource resolves app-author text keys and substitutes data
// variables into them, producing one resource per repeating row for
// variables that point inside a group.
package textresource

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/repeating"
)

// RowPlaceholder marks the row position inside a variable key.
const RowPlaceholder = "[{0}]"

// Data sources a variable can read from.
const (
	SourceDataModel           = "dataModel"
	SourceInstanceContext     = "instanceContext"
	SourceApplicationSettings = "applicationSettings"
)

// Variable binds placeholder {n} of a resource to a data path.
type Variable struct {
	Key        string `json:"key" yaml:"key"`
	DataSource string `json:"dataSource" yaml:"dataSource"`
}

// Resource is one text entry. UnparsedValue keeps the template once
// variables have been substituted into Value.
type Resource struct {
	ID            string     `json:"id" yaml:"id"`
	Value         string     `json:"value" yaml:"value"`
	UnparsedValue string     `json:"unparsedValue,omitempty" yaml:"unparsedValue,omitempty"`
	Variables     []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Indexed reports whether any variable key points into a repeating row.
func (r Resource) Indexed() bool {
	for _, v := range r.Variables {
		if strings.Contains(v.Key, RowPlaceholder) {
			return true
		}
	}
	return false
}

func (r Resource) template() string {
	if r.UnparsedValue != "" {
		return r.UnparsedValue
	}
	return r.Value
}

// Resources is an ordered resource list.
type Resources []Resource

// Parse decodes either a bare resource array or the {"resources": [...]}
// envelope.
func Parse(data []byte) (Resources, error) {
	var list Resources
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Resources Resources `json:"resources"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("textresource: decode: %w", err)
	}
	return envelope.Resources, nil
}

// Find returns the resource with id.
func (rs Resources) Find(id string) (Resource, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

var policy = bluemonday.StrictPolicy()

// Text resolves key to its resource value, or returns key unchanged when no
// resource matches. Markup in author text is stripped.
func (rs Resources) Text(key string) string {
	r, ok := rs.Find(key)
	if !ok {
		return key
	}
	return StripMarkup(r.Value)
}

// StripMarkup removes HTML tags from author text, leaving plain text intact.
func StripMarkup(value string) string {
	if !strings.ContainsAny(value, "<>") {
		return value
	}
	return html.UnescapeString(policy.Sanitize(value))
}

// Sources supplies variable values per data source.
type Sources struct {
	DataModel           formdata.FormData
	InstanceContext     map[string]string
	ApplicationSettings map[string]string
}

func (s Sources) lookup(v Variable, fallback string) string {
	source := v.DataSource
	if i := strings.IndexByte(source, '.'); i >= 0 {
		source = source[:i]
	}
	var (
		value string
		ok    bool
	)
	switch source {
	case SourceInstanceContext:
		value, ok = s.InstanceContext[v.Key]
	case SourceApplicationSettings:
		value, ok = s.ApplicationSettings[v.Key]
	default:
		value, ok = s.DataModel[v.Key]
	}
	if !ok {
		return fallback
	}
	return value
}

// ReplaceParams substitutes variables into every resource. Resources whose
// variables point into a repeating row are expanded once per row of every
// group whose binding prefixes the variable key, producing "<id>-<row>".
func ReplaceParams(rs Resources, sources Sources, groups repeating.Map) Resources {
	out := make(Resources, 0, len(rs))
	for _, r := range rs {
		if isRowCopy(r, rs) {
			continue
		}
		if len(r.Variables) == 0 {
			out = append(out, r)
			continue
		}
		if !r.Indexed() {
			out = append(out, substitute(r, r.ID, sources, -1))
			continue
		}
		out = append(out, r)
		for _, key := range groups.Keys() {
			entry := groups[key]
			if entry.BaseGroupID != "" || !matchesGroup(r, entry.DataModelBinding) {
				continue
			}
			for row := 0; row <= entry.Count; row++ {
				out = append(out, substitute(r, r.ID+"-"+strconv.Itoa(row), sources, row))
			}
		}
	}
	return out
}

// isRowCopy reports whether r is a row resource produced by an earlier
// ReplaceParams run, which is regenerated rather than carried over.
func isRowCopy(r Resource, rs Resources) bool {
	i := strings.LastIndexByte(r.ID, '-')
	if i <= 0 || r.UnparsedValue == "" {
		return false
	}
	if _, err := strconv.Atoi(r.ID[i+1:]); err != nil {
		return false
	}
	base, ok := rs.Find(r.ID[:i])
	return ok && base.Indexed()
}

func matchesGroup(r Resource, binding string) bool {
	if binding == "" {
		return false
	}
	for _, v := range r.Variables {
		if strings.HasPrefix(v.Key, binding+RowPlaceholder) {
			return true
		}
	}
	return false
}

func substitute(r Resource, id string, sources Sources, row int) Resource {
	template := r.template()
	value := template
	for i, v := range r.Variables {
		if row >= 0 {
			v.Key = strings.ReplaceAll(v.Key, RowPlaceholder, "["+strconv.Itoa(row)+"]")
		}
		value = strings.ReplaceAll(value, "{"+strconv.Itoa(i)+"}", sources.lookup(v, v.Key))
	}
	return Resource{ID: id, Value: value, UnparsedValue: template, Variables: r.Variables}
}
