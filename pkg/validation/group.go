package validation

import (
	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/lang"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// Input is the form state a full validation pass reads.
type Input struct {
	FormData    formdata.FormData
	Layouts     layout.Layouts
	Order       []string
	CurrentPage string
	Hidden      []string
	Groups      repeating.Map
	Attachments Attachments
	Validator   SchemaValidator
	Translator  lang.Translator
	Resources   textresource.Resources
}

// Run validates every page in order: required fields, component rules and
// the data model, merged in that order.
func Run(in Input) Result {
	schema := FormData(in.FormData, in.Layouts, in.Order, in.Validator, in.Translator, in.Resources)
	return Result{
		Validations: Merge(
			EmptyFields(in.FormData, in.Layouts, in.Order, in.Translator, in.Hidden, in.Groups),
			FormComponents(in.Attachments, in.Layouts, in.Order, in.FormData, in.Translator, in.Hidden),
			schema.Validations,
		),
		InvalidDataTypes: schema.InvalidDataTypes,
	}
}

// ValidateGroup validates one group on the current page: the group, the
// nodes below it at any depth, and the chain of groups enclosing it so that
// nested rows keep their parent row context.
func ValidateGroup(groupID string, in Input) Validations {
	page := in.Layouts[in.CurrentPage]
	group := page.Group(groupID)
	if group == nil {
		return make(Validations)
	}

	keep := map[string]bool{groupID: true}
	collectChildIDs(page, group, keep)
	for parent := page.ParentGroup(groupID); parent != nil && !keep[parent.ID]; parent = page.ParentGroup(parent.ID) {
		keep[parent.ID] = true
	}
	var filtered layout.Page
	for _, node := range page {
		if keep[node.Common().ID] {
			filtered = append(filtered, node)
		}
	}

	name := in.CurrentPage
	return Merge(
		Validations{name: EmptyFieldsForLayout(in.FormData, filtered, in.Translator, in.Hidden, in.Groups)},
		Validations{name: FormComponentsForLayout(in.Attachments, filtered, in.FormData, in.Translator, in.Hidden)},
		FormDataForLayout(in.FormData, name, filtered, in.Validator, in.Translator, in.Resources).Validations,
	)
}

// RemoveHidden returns a copy of validations without the entries of hidden
// components, including every row copy of a hidden static id.
func RemoveHidden(validations Validations, hidden []string) Validations {
	if len(hidden) == 0 {
		return validations.Clone()
	}
	hiddenIDs := hiddenSet(hidden)
	out := make(Validations, len(validations))
	for pageName, lv := range validations {
		kept := make(LayoutValidations, len(lv))
		for componentID, cv := range lv {
			if !isHidden(componentID, hiddenIDs) {
				kept[componentID] = cv.Clone()
			}
		}
		out[pageName] = kept
	}
	return out
}

func isHidden(componentID string, hidden map[string]bool) bool {
	if hidden[componentID] {
		return true
	}
	for id := range hidden {
		if _, ok := layout.ParseIndexedID(componentID, id); ok {
			return true
		}
	}
	return false
}
