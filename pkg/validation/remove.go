package validation

import (
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
)

// RemoveGroupValidationsByIndex returns a copy of validations without the
// entries of row index of the group instance groupKey on pageName: the
// group's own row entry and every entry of a component or nested group below
// that row. With shift set, entries of later rows move down one row at the
// same nesting depth, so deeper row indices are preserved.
func RemoveGroupValidationsByIndex(groupKey string, index int, pageName string, layouts layout.Layouts, groups repeating.Map, validations Validations, shift bool) Validations {
	result := validations.Clone()
	lv, ok := validations[pageName]
	if !ok {
		return result
	}
	page := layouts[pageName]

	base := groupKey
	if entry, ok := groups[groupKey]; ok && entry.BaseGroupID != "" {
		base = entry.BaseGroupID
	}
	instance, ok := layout.ParseIndexedID(groupKey, base)
	if !ok || page.Group(base) == nil {
		return result
	}
	depth := instance.Depth()

	bases := map[string]bool{base: true}
	collectChildIDs(page, page.Group(base), bases)

	out := make(LayoutValidations, len(lv))
	for key, cv := range lv {
		id, ok := parseAgainst(key, bases)
		if !ok || id.Depth() <= depth || !hasPrefix(id.Rows, instance.Rows) {
			out[key] = cv.Clone()
			continue
		}
		row := id.Rows[depth]
		switch {
		case row < index:
			out[key] = cv.Clone()
		case row == index:
		case shift:
			id.Rows[depth] = row - 1
			out[id.String()] = cv.Clone()
		default:
			out[key] = cv.Clone()
		}
	}
	result[pageName] = out
	return result
}

func collectChildIDs(page layout.Page, group *layout.Group, into map[string]bool) {
	if group == nil {
		return
	}
	for _, node := range page.GroupChildren(group.ID) {
		id := node.Common().ID
		if into[id] {
			continue
		}
		into[id] = true
		if child, ok := node.(*layout.Group); ok {
			collectChildIDs(page, child, into)
		}
	}
}

// parseAgainst parses key with the longest matching base so that ids which
// themselves end in "-<n>" are not mistaken for row suffixes.
func parseAgainst(key string, bases map[string]bool) (layout.IndexedID, bool) {
	var (
		best  layout.IndexedID
		found bool
	)
	for base := range bases {
		id, ok := layout.ParseIndexedID(key, base)
		if ok && (!found || len(base) > len(best.Base)) {
			best, found = id, true
		}
	}
	return best, found
}

func hasPrefix(rows, prefix []int) bool {
	if len(rows) < len(prefix) {
		return false
	}
	for i, row := range prefix {
		if rows[i] != row {
			return false
		}
	}
	return true
}
