package validation

import (
	"sort"
	"strconv"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/lang"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
)

// Message keys of the built-in messages.
const (
	KeyRequired         = "form_filler.error_required"
	KeyFileNumberPrefix = "form_filler.file_uploader_validation_error_file_number_1"
	KeyFileNumberSuffix = "form_filler.file_uploader_validation_error_file_number_2"
	KeyMissingTag       = "form_filler.file_uploader_validation_error_no_chosen_tag"
	KeyInvalidDate      = "date_picker.invalid_date_message"
	KeyMinDateExceeded  = "date_picker.min_date_exeeded"
	KeyMaxDateExceeded  = "date_picker.max_date_exeeded"
	keyValidationPrefix = "validation_errors."
	simpleBinding       = "simpleBinding"
)

// EmptyFields checks required bindings on the pages listed in order. A nil
// order checks every page.
func EmptyFields(fd formdata.FormData, layouts layout.Layouts, order []string, t lang.Translator, hidden []string, groups repeating.Map) Validations {
	out := make(Validations)
	for _, name := range pagesInOrder(layouts, order) {
		if lv := EmptyFieldsForLayout(fd, layouts[name], t, hidden, groups); len(lv) > 0 {
			out[name] = lv
		}
	}
	return out
}

// EmptyFieldsForLayout reports a required error for every binding of a
// required, visible component whose value is empty. Components of a
// repeating group are checked once per live row, addressed by their indexed
// id and row-qualified bindings.
func EmptyFieldsForLayout(fd formdata.FormData, page layout.Page, t lang.Translator, hidden []string, groups repeating.Map) LayoutValidations {
	out := make(LayoutValidations)
	hiddenIDs := hiddenSet(hidden)
	message := translate(t, KeyRequired)

	grouped := make(map[string]bool)
	for _, group := range page.Groups() {
		for _, id := range group.ChildIDs() {
			grouped[id] = true
		}
	}
	for _, c := range page.Components() {
		if c.Required && !hiddenIDs[c.ID] && !grouped[c.ID] {
			checkEmpty(out, c.ID, c.DataModelBindings, fd, message)
		}
	}

	for _, group := range page.Groups() {
		if group.Repeating() {
			continue
		}
		for _, c := range requiredChildren(page, group) {
			if !hiddenIDs[c.ID] {
				checkEmpty(out, c.ID, c.DataModelBindings, fd, message)
			}
		}
	}

	for _, in := range repeating.Instances(page, groups) {
		children := requiredChildren(page, in.Group)
		for row := 0; row <= in.Count; row++ {
			for _, c := range children {
				id := in.RowID(c.ID, row)
				if rowHidden(hiddenIDs, c.ID, id, row) {
					continue
				}
				bindings := make(map[string]string, len(c.DataModelBindings))
				for key, binding := range c.DataModelBindings {
					bindings[key] = in.RowBinding(binding, row)
				}
				checkEmpty(out, id, bindings, fd, message)
			}
		}
	}
	return out
}

func requiredChildren(page layout.Page, group *layout.Group) []*layout.Component {
	var out []*layout.Component
	for _, node := range page.GroupChildren(group.ID) {
		if c, ok := node.(*layout.Component); ok && c.Required {
			out = append(out, c)
		}
	}
	return out
}

// rowHidden matches the static id, the indexed id and the "<id>[<row>]" form.
func rowHidden(hidden map[string]bool, staticID, indexedID string, row int) bool {
	return hidden[staticID] || hidden[indexedID] || hidden[staticID+"["+strconv.Itoa(row)+"]"]
}

func checkEmpty(out LayoutValidations, componentID string, bindings map[string]string, fd formdata.FormData, message string) {
	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if fd[bindings[key]] == "" {
			out.addError(componentID, key, message)
		}
	}
}

func pagesInOrder(layouts layout.Layouts, order []string) []string {
	if order == nil {
		return layouts.PageNames()
	}
	out := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := layouts[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func translate(t lang.Translator, key string, params ...string) string {
	if t == nil {
		return lang.Interpolate(key, params...)
	}
	return t.Translate(key, params...)
}
