// Package expand builds the per-row component copies a repeating group
// renders and validates.
package expand

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// Rows returns one slice of node copies per row 0..repeatIndex. Every copy
// gets the row appended to its id, the first occurrence of the container's
// group binding indexed by the row, and text bindings that point at a
// row-scoped resource rewritten to that resource's per-row copy. A copy is
// hidden when hidden lists either "<id>[<row>]" or its indexed id.
func Rows(container *layout.Group, base []layout.Node, repeatIndex int, resources textresource.Resources, hidden []string) [][]layout.Node {
	if container == nil || repeatIndex < 0 {
		return nil
	}
	hiddenSet := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = true
	}
	groupBinding := container.GroupBinding()

	rows := make([][]layout.Node, 0, repeatIndex+1)
	for row := 0; row <= repeatIndex; row++ {
		nodes := make([]layout.Node, 0, len(base))
		for _, node := range base {
			nodes = append(nodes, rowCopy(node, groupBinding, row, resources, hiddenSet))
		}
		rows = append(rows, nodes)
	}
	return rows
}

func rowCopy(node layout.Node, groupBinding string, row int, resources textresource.Resources, hidden map[string]bool) layout.Node {
	out := layout.Clone(node)
	b := out.Common()
	source := node.Common()

	b.BaseComponentID = source.StaticID()
	b.ID = source.ID + "-" + strconv.Itoa(row)
	b.Hidden = hidden[source.ID+"["+strconv.Itoa(row)+"]"] || hidden[b.ID]

	for key, binding := range b.DataModelBindings {
		b.DataModelBindings[key] = formdata.ReplaceGroupBinding(binding, groupBinding, row)
	}
	for key, resourceKey := range b.TextResourceBindings {
		if r, ok := resources.Find(resourceKey); ok && r.Indexed() {
			b.TextResourceBindings[key] = resourceKey + "-" + strconv.Itoa(row)
		}
	}
	return out
}

// SetupGroupComponents re-scopes the static children of a nested group to
// one parent row: the unindexed form of groupBinding is replaced with
// groupBinding itself and ids get the row suffix.
func SetupGroupComponents(nodes []layout.Node, groupBinding string, rows ...int) []layout.Node {
	unindexed := formdata.KeyWithoutIndex(groupBinding)
	suffix := layout.RowSuffix(rows...)
	out := make([]layout.Node, 0, len(nodes))
	for _, node := range nodes {
		c := layout.Clone(node)
		b := c.Common()
		b.BaseComponentID = node.Common().StaticID()
		b.ID = node.Common().ID + suffix
		if unindexed != "" {
			for key, binding := range b.DataModelBindings {
				b.DataModelBindings[key] = strings.Replace(binding, unindexed, groupBinding, 1)
			}
		}
		out = append(out, c)
	}
	return out
}

// Children returns the static page nodes referenced by group, in page order.
// group may be a row copy; its child references are never rewritten.
func Children(page layout.Page, group *layout.Group) []layout.Node {
	if group == nil {
		return nil
	}
	var out []layout.Node
	for _, node := range page {
		if group.HasChild(node.Common().ID) {
			out = append(out, node)
		}
	}
	return out
}
