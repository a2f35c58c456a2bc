// Package validation produces and maintains the page → component → binding
// validation map: required fields, component rules, schema violations and
// imported server issues, plus the bookkeeping repeating rows need.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Unmapped is the page and component key that collects issues no rendered
// component owns.
const Unmapped = "unmapped"

// BindingValidation holds the messages of one data-model binding. Fixed
// lists messages a merge removes from the accumulated errors and warnings.
type BindingValidation struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Fixed    []string `json:"fixed,omitempty"`
}

// Empty reports whether b carries no message.
func (b BindingValidation) Empty() bool {
	return len(b.Errors) == 0 && len(b.Warnings) == 0 && len(b.Fixed) == 0
}

func (b BindingValidation) clone() BindingValidation {
	return BindingValidation{
		Errors:   cloneStrings(b.Errors),
		Warnings: cloneStrings(b.Warnings),
		Fixed:    cloneStrings(b.Fixed),
	}
}

// ComponentValidations is keyed by binding key ("simpleBinding", "address", ...).
type ComponentValidations map[string]BindingValidation

// HasErrors reports whether any binding carries an error.
func (c ComponentValidations) HasErrors() bool {
	for _, b := range c {
		if len(b.Errors) > 0 {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (c ComponentValidations) Clone() ComponentValidations {
	if c == nil {
		return nil
	}
	out := make(ComponentValidations, len(c))
	for k, v := range c {
		out[k] = v.clone()
	}
	return out
}

// LayoutValidations is keyed by (possibly row-indexed) component id.
type LayoutValidations map[string]ComponentValidations

// Clone returns an independent copy.
func (l LayoutValidations) Clone() LayoutValidations {
	if l == nil {
		return nil
	}
	out := make(LayoutValidations, len(l))
	for k, v := range l {
		out[k] = v.Clone()
	}
	return out
}

func (l LayoutValidations) addError(componentID, binding, message string) {
	component := l[componentID]
	if component == nil {
		component = make(ComponentValidations)
		l[componentID] = component
	}
	entry := component[binding]
	entry.Errors = append(entry.Errors, message)
	component[binding] = entry
}

// addUniqueError appends message unless the binding already lists it.
func (l LayoutValidations) addUniqueError(componentID, binding, message string) {
	for _, existing := range l[componentID][binding].Errors {
		if existing == message {
			return
		}
	}
	l.addError(componentID, binding, message)
}

// Validations is keyed by page name.
type Validations map[string]LayoutValidations

// Clone returns an independent copy.
func (v Validations) Clone() Validations {
	out := make(Validations, len(v))
	for k, page := range v {
		out[k] = page.Clone()
	}
	return out
}

// Pages returns the page keys sorted lexically.
func (v Validations) Pages() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Component returns the validations of componentID on page.
func (v Validations) Component(page, componentID string) ComponentValidations {
	return v[page][componentID]
}

// SetComponent replaces the validations of componentID on page. An empty
// value removes the entry.
func (v Validations) SetComponent(page, componentID string, c ComponentValidations) {
	if len(c) == 0 || !hasMessages(c) {
		if lv := v[page]; lv != nil {
			delete(lv, componentID)
		}
		return
	}
	lv := v[page]
	if lv == nil {
		lv = make(LayoutValidations)
		v[page] = lv
	}
	lv[componentID] = c
}

func hasMessages(c ComponentValidations) bool {
	for _, b := range c {
		if !b.Empty() {
			return true
		}
	}
	return false
}

// Result pairs validations with the flag that blocks saving when the data
// does not match the model's types or formats.
type Result struct {
	Validations      Validations `json:"validations"`
	InvalidDataTypes bool        `json:"invalidDataTypes"`
}

// Severity classifies an imported issue.
type Severity int

// Issue severities as numbered by the validation service.
const (
	SeverityUnspecified Severity = iota
	SeverityError
	SeverityWarning
	SeverityInformational
	SeverityFixed
)

var severityNames = map[Severity]string{
	SeverityUnspecified:   "Unspecified",
	SeverityError:         "Error",
	SeverityWarning:       "Warning",
	SeverityInformational: "Informational",
	SeverityFixed:         "Fixed",
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity accepts a severity name in any case.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return SeverityUnspecified, fmt.Errorf("validation: unknown severity %q", name)
}

// UnmarshalJSON accepts either the numeric or the named form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Severity(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("validation: decode severity: %w", err)
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Issue is one validation result reported by the server for a data element.
type Issue struct {
	Code        string   `json:"code,omitempty"`
	Description string   `json:"description"`
	Field       string   `json:"field,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	Severity    Severity `json:"severity"`
	TargetID    string   `json:"targetId,omitempty"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func hiddenSet(hidden []string) map[string]bool {
	out := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		out[id] = true
	}
	return out
}
