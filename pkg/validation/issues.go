package validation

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// CodeRequired is the issue code of the server's own required-field check.
const CodeRequired = "required"

// MapDataElementValidations places server issues on the components that
// own their field, on every page binding it. Issues on a page that no
// component claims are kept under validations[page]["unmapped"][field];
// issues whose field no page binds go to the "unmapped" page. Server
// required-field issues are dropped since EmptyFields reports them, unless
// their description equals the code (an app-defined message keyed
// "required").
func MapDataElementValidations(issues []Issue, layouts layout.Layouts, resources textresource.Resources) Validations {
	out := make(Validations)
	for _, issue := range issues {
		if issue.Code == CodeRequired && issue.Code != issue.Description {
			continue
		}
		pages := pagesForIssue(layouts, issue)
		if len(pages) == 0 {
			pages = []string{Unmapped}
		}
		for _, pageName := range pages {
			mapIssue(out, layouts, pageName, issue, resources)
		}
	}
	return out
}

func mapIssue(out Validations, layouts layout.Layouts, pageName string, issue Issue, resources textresource.Resources) {
	lv := out[pageName]
	if lv == nil {
		lv = make(LayoutValidations)
		out[pageName] = lv
	}

	componentID, found := componentForIssue(layouts[pageName], issue, resources)
	if componentID == "" {
		unmapped := lv[Unmapped]
		if unmapped == nil {
			unmapped = make(ComponentValidations)
			lv[Unmapped] = unmapped
		}
		unmapped[issue.Field] = addIssue(unmapped[issue.Field], issue, resources)
		return
	}

	current := lv[componentID]
	if current == nil {
		lv[componentID] = found
		return
	}
	for key, entry := range found {
		existing := current[key]
		existing.Errors = append(existing.Errors, entry.Errors...)
		existing.Warnings = append(existing.Warnings, entry.Warnings...)
		existing.Fixed = append(existing.Fixed, entry.Fixed...)
		current[key] = existing
	}
}

// MapAPIValidations maps issues grouped by field name. Issues without a
// field inherit the key they are listed under.
func MapAPIValidations(byField map[string][]Issue, layouts layout.Layouts, resources textresource.Resources) Validations {
	fields := make([]string, 0, len(byField))
	for field := range byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var issues []Issue
	for _, field := range fields {
		for _, issue := range byField[field] {
			if issue.Field == "" {
				issue.Field = field
			}
			issues = append(issues, issue)
		}
	}
	return MapDataElementValidations(issues, layouts, resources)
}

// pagesForIssue returns every page, in name order, holding a file upload
// with the issue's field as id or a component binding the unindexed field.
// Bindings compare case-insensitively.
func pagesForIssue(layouts layout.Layouts, issue Issue) []string {
	if issue.Field == "" {
		return nil
	}
	var out []string
	for _, name := range layouts.PageNames() {
		if pageHasField(layouts[name], issue.Field) {
			out = append(out, name)
		}
	}
	return out
}

func pageHasField(page layout.Page, field string) bool {
	unindexed := formdata.KeyWithoutIndex(field)
	for _, node := range page {
		b := node.Common()
		if strings.EqualFold(b.Type, TypeFileUpload) || strings.EqualFold(b.Type, TypeFileUploadWithTag) {
			if b.ID == field {
				return true
			}
			continue
		}
		for _, binding := range b.DataModelBindings {
			if strings.EqualFold(binding, unindexed) {
				return true
			}
		}
	}
	return false
}

// componentForIssue resolves the owning component id. A field naming a
// component id, indexed or not, lands on its simpleBinding; otherwise the
// field is matched against bindings like schema violations are.
func componentForIssue(page layout.Page, issue Issue, resources textresource.Resources) (string, ComponentValidations) {
	if issue.Field == "" {
		return "", nil
	}
	unindexed := strings.ToLower(formdata.KeyWithoutIndex(issue.Field))
	for _, node := range page {
		b := node.Common()
		if _, ok := layout.ParseIndexedID(issue.Field, b.ID); ok {
			return issue.Field, ComponentValidations{simpleBinding: addIssue(BindingValidation{}, issue, resources)}
		}
		found := make(ComponentValidations)
		for key, binding := range b.DataModelBindings {
			if strings.ToLower(binding) == unindexed {
				found[key] = addIssue(BindingValidation{}, issue, resources)
			}
		}
		if len(found) > 0 {
			id := layout.NewIndexedID(b.ID, formdata.Indexes(issue.Field)...).String()
			return id, found
		}
	}
	return "", nil
}

func addIssue(entry BindingValidation, issue Issue, resources textresource.Resources) BindingValidation {
	message := resources.Text(issue.Description)
	switch issue.Severity {
	case SeverityError:
		entry.Errors = append(entry.Errors, message)
	case SeverityFixed:
		entry.Fixed = append(entry.Fixed, message)
	default:
		entry.Warnings = append(entry.Warnings, message)
	}
	return entry
}
