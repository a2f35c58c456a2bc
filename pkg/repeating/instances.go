package repeating

import (
	"strings"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
)

// Instance is one live instance of a repeating group: the top-level group
// itself, or a nested group under one specific parent row path.
type Instance struct {
	Group *layout.Group
	// Key is the instance's Map key.
	Key string
	// Rows is the parent row path, empty for top-level groups.
	Rows []int
	// Binding is the group binding qualified with the parent rows.
	Binding string
	Count   int
}

// RowID returns the indexed id of a child node at row.
func (in Instance) RowID(id string, row int) string {
	return layout.NewIndexedID(id, appendRow(in.Rows, row)...).String()
}

// RowBinding rewrites a child binding to address row of this instance.
func (in Instance) RowBinding(binding string, row int) string {
	static := in.Group.GroupBinding()
	if static == "" {
		return binding
	}
	return strings.Replace(binding, static, formdata.Indexed(in.Binding, row), 1)
}

// Instances lists every repeating group instance on page, parents before
// their nested children. Row counts come from m; instances of nested groups
// exist for every parent row 0..count.
func Instances(page layout.Page, m Map) []Instance {
	var out []Instance
	nested := page.ChildGroupIDs()
	for _, group := range page.Groups() {
		if !group.Repeating() || nested[group.ID] {
			continue
		}
		top := Instance{Group: group, Key: group.ID, Binding: group.GroupBinding(), Count: m.Count(group.ID)}
		out = append(out, top)
		out = appendNested(out, page, m, top)
	}
	return out
}

func appendNested(out []Instance, page layout.Page, m Map, parent Instance) []Instance {
	for _, child := range childGroups(page, parent.Group) {
		for row := 0; row <= parent.Count; row++ {
			rows := appendRow(parent.Rows, row)
			key := layout.NewIndexedID(child.ID, rows...).String()
			in := Instance{
				Group:   child,
				Key:     key,
				Rows:    rows,
				Binding: QualifyBinding(child.GroupBinding(), parent.Binding, row),
				Count:   m.Count(key),
			}
			out = append(out, in)
			out = appendNested(out, page, m, in)
		}
	}
	return out
}
