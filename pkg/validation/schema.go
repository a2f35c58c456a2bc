package validation

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formfill/pkg/datamodel"
	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/lang"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// SchemaValidator checks flat form data against the app's data model.
// *datamodel.Validator implements it.
type SchemaValidator interface {
	ValidateFormData(fd formdata.FormData) []datamodel.Violation
}

// keywordTextKeys maps a failing schema keyword to its generic message key
// under "validation_errors.". Keywords not listed use their own name.
var keywordTextKeys = map[string]string{
	"minimum":          "min",
	"exclusiveMinimum": "min",
	"maximum":          "max",
	"exclusiveMaximum": "max",
	"format":           "pattern",
	"type":             "pattern",
	"const":            "enum",
}

// TextKey returns the generic message key suffix for keyword.
func TextKey(keyword string) string {
	if key, ok := keywordTextKeys[keyword]; ok {
		return key
	}
	return keyword
}

// ViolationMessage renders v for display: the text resource named by the
// schema node's errorMessage when present, otherwise the generic message of
// the keyword with its parameter.
func ViolationMessage(v datamodel.Violation, t lang.Translator, resources textresource.Resources) string {
	if v.ErrorMessage != "" {
		return resources.Text(v.ErrorMessage)
	}
	return translate(t, keyValidationPrefix+TextKey(v.Keyword), v.Param)
}

func invalidDataType(keyword string) bool {
	return keyword == "type" || keyword == "format"
}

// FormData validates fd once against the model and maps the violations onto
// the components of every page in order.
func FormData(fd formdata.FormData, layouts layout.Layouts, order []string, v SchemaValidator, t lang.Translator, resources textresource.Resources) Result {
	result := Result{Validations: make(Validations)}
	if v == nil {
		return result
	}
	violations := v.ValidateFormData(fd)
	for _, name := range pagesInOrder(layouts, order) {
		page := mapViolations(violations, name, layouts[name], t, resources)
		if len(page.Validations[name]) > 0 {
			result.Validations[name] = page.Validations[name]
		}
		result.InvalidDataTypes = result.InvalidDataTypes || page.InvalidDataTypes
	}
	return result
}

// InvalidDataFields returns the sorted data paths whose value fails a type
// or format keyword.
func InvalidDataFields(fd formdata.FormData, v SchemaValidator) []string {
	if v == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, violation := range v.ValidateFormData(fd) {
		if !invalidDataType(violation.Keyword) || seen[violation.Path] {
			continue
		}
		seen[violation.Path] = true
		out = append(out, violation.Path)
	}
	sort.Strings(out)
	return out
}

// FormDataForLayout validates fd and maps the violations onto one page.
func FormDataForLayout(fd formdata.FormData, pageName string, page layout.Page, v SchemaValidator, t lang.Translator, resources textresource.Resources) Result {
	if v == nil {
		return Result{Validations: make(Validations)}
	}
	return mapViolations(v.ValidateFormData(fd), pageName, page, t, resources)
}

// mapViolations skips required violations, which EmptyFields reports.
// Violations whose path no component on the page binds are dropped.
func mapViolations(violations []datamodel.Violation, pageName string, page layout.Page, t lang.Translator, resources textresource.Resources) Result {
	result := Result{Validations: make(Validations)}
	lv := make(LayoutValidations)
	for _, violation := range violations {
		if violation.Keyword == "required" {
			continue
		}
		if invalidDataType(violation.Keyword) {
			result.InvalidDataTypes = true
		}
		node, key := componentForPath(page, violation.Path)
		if node == nil {
			continue
		}
		id := layout.NewIndexedID(node.Common().ID, formdata.Indexes(violation.Path)...).String()
		lv.addUniqueError(id, key, ViolationMessage(violation, t, resources))
	}
	if len(lv) > 0 {
		result.Validations[pageName] = lv
	}
	return result
}

// componentForPath finds the first node binding path, comparing
// case-insensitively with row indices removed.
func componentForPath(page layout.Page, path string) (layout.Node, string) {
	target := formdata.KeyWithoutIndex(path)
	for _, node := range page {
		if key := bindingKeyFor(node.Common(), target); key != "" {
			return node, key
		}
	}
	return nil, ""
}

func bindingKeyFor(b *layout.Base, unindexed string) string {
	var found string
	for key, binding := range b.DataModelBindings {
		if key == "" || binding == "" || !strings.EqualFold(binding, unindexed) {
			continue
		}
		if found == "" || key < found {
			found = key
		}
	}
	return found
}

// ValidateComponent validates the single field a component binds after its
// value changed. field is the fully indexed data path. The returned result
// always carries the component's entry for that binding, empty when the
// value is valid, so callers can replace stale messages.
func ValidateComponent(pageName string, node layout.Node, field string, fd formdata.FormData, v SchemaValidator, t lang.Translator, resources textresource.Resources) Result {
	b := node.Common()
	indexes := formdata.Indexes(field)
	id := b.ID
	if len(indexes) > 0 && b.BaseComponentID == "" {
		id = layout.NewIndexedID(b.ID, indexes...).String()
	}
	key := bindingKeyFor(b, formdata.KeyWithoutIndex(field))
	if key == "" {
		key = exactBindingKey(b, field)
	}

	entry := BindingValidation{}
	result := Result{}
	value := fd[field]
	if value != "" && v != nil {
		for _, violation := range v.ValidateFormData(formdata.FormData{field: value}) {
			if violation.Path != field || violation.Keyword == "required" {
				continue
			}
			if invalidDataType(violation.Keyword) {
				result.InvalidDataTypes = true
			}
			message := ViolationMessage(violation, t, resources)
			if !contains(entry.Errors, message) {
				entry.Errors = append(entry.Errors, message)
			}
		}
	}
	if b.Required && value == "" {
		entry.Errors = append(entry.Errors, translate(t, KeyRequired))
	}

	result.Validations = Validations{pageName: {id: {key: entry}}}
	return result
}

func exactBindingKey(b *layout.Base, field string) string {
	for key, binding := range b.DataModelBindings {
		if binding == field {
			return key
		}
	}
	return simpleBinding
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
