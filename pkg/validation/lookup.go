package validation

import (
	"sort"

	"github.com/goliatone/go-formfill/pkg/expand"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// APIModeComplete marks a save that must be free of errors.
const APIModeComplete = "Complete"

// ComponentHasValidations reports whether componentID on page has an error.
func ComponentHasValidations(validations Validations, pageName, componentID string) bool {
	return validations[pageName][componentID].HasErrors()
}

// RowSet carries what RepeatingGroupHasValidations needs to expand nested
// rows.
type RowSet struct {
	Page      layout.Page
	Groups    repeating.Map
	Resources textresource.Resources
	Hidden    []string
}

// RepeatingGroupHasValidations reports whether any component in rows, the
// expanded rows of group, has an error, descending into nested groups row
// by row.
func RepeatingGroupHasValidations(group *layout.Group, rows [][]layout.Node, validations Validations, pageName string, set RowSet) bool {
	if group == nil {
		return false
	}
	for _, row := range rows {
		for _, node := range row {
			child, ok := node.(*layout.Group)
			if !ok {
				if ComponentHasValidations(validations, pageName, node.Common().ID) {
					return true
				}
				continue
			}
			id, ok := layout.ParseIndexedID(child.ID, child.StaticID())
			if !ok {
				continue
			}
			scoped := expand.SetupGroupComponents(expand.Children(set.Page, child), child.GroupBinding(), id.Rows...)
			childRows := expand.Rows(child, scoped, set.Groups.Count(child.ID), set.Resources, set.Hidden)
			if RepeatingGroupHasValidations(child, childRows, validations, pageName, set) {
				return true
			}
		}
	}
	return false
}

// ErrorCount counts every error on every page.
func ErrorCount(validations Validations) int {
	count := 0
	for _, lv := range validations {
		for _, cv := range lv {
			for _, entry := range cv {
				count += len(entry.Errors)
			}
		}
	}
	return count
}

// Bucket selects the message list HasValidationsOfSeverity inspects.
type Bucket int

// Buckets.
const (
	BucketErrors Bucket = iota
	BucketWarnings
)

// HasValidationsOfSeverity reports whether any binding has a message in bucket.
func HasValidationsOfSeverity(validations Validations, bucket Bucket) bool {
	for _, lv := range validations {
		for _, cv := range lv {
			for _, entry := range cv {
				switch bucket {
				case BucketErrors:
					if len(entry.Errors) > 0 {
						return true
					}
				case BucketWarnings:
					if len(entry.Warnings) > 0 {
						return true
					}
				}
			}
		}
	}
	return false
}

// UnmappedErrors lists the errors no component owns, pages in name order.
func UnmappedErrors(validations Validations) []string {
	var out []string
	for _, pageName := range validations.Pages() {
		unmapped := validations[pageName][Unmapped]
		for _, field := range sortedKeys(unmapped) {
			out = append(out, unmapped[field].Errors...)
		}
	}
	return out
}

// CanFormBeSaved reports whether data may be stored. Type or format
// mismatches always block; errors block only a Complete save.
func CanFormBeSaved(result Result, apiMode string) bool {
	if result.InvalidDataTypes {
		return false
	}
	if apiMode != APIModeComplete {
		return true
	}
	return ErrorCount(result.Validations) == 0
}

func sortedKeys(cv ComponentValidations) []string {
	keys := make([]string, 0, len(cv))
	for k := range cv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
