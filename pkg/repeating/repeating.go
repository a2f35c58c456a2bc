// Package repeating derives how many rows each repeating group holds from the
// current form data and keeps that bookkeeping in step with row edits.
package repeating

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
)

var (
	// ErrUnknownGroup is returned when a row edit targets a group that is not on the page.
	ErrUnknownGroup = errors.New("repeating: unknown group")
	// ErrMaxCount is returned when adding a row would exceed the group's maxCount.
	ErrMaxCount = errors.New("repeating: group is full")
)

// Entry is the runtime state of one repeating-group instance. Count is the
// highest row index in use, -1 when the group has no rows.
type Entry struct {
	Count            int    `json:"count"`
	BaseGroupID      string `json:"baseGroupId,omitempty"`
	EditIndex        int    `json:"editIndex"`
	MultiPageIndex   int    `json:"multiPageIndex"`
	DataModelBinding string `json:"dataModelBinding,omitempty"`
}

// Map is keyed by top-level group id, or by the indexed id
// "<childGroupId>-<parentRow>" for nested instances.
type Map map[string]Entry

// Count returns the highest row index of key, or -1 when the key is unknown.
func (m Map) Count(key string) int {
	if entry, ok := m[key]; ok {
		return entry.Count
	}
	return -1
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the keys sorted lexically.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newEntry(count int, base, binding string) Entry {
	return Entry{Count: count, BaseGroupID: base, EditIndex: -1, MultiPageIndex: -1, DataModelBinding: binding}
}

// Compute builds the runtime map for every repeating group on page. Counts
// are the highest index found for the group binding across all keys; nested
// groups are counted per parent row with the parent binding qualified by
// that row.
func Compute(page layout.Page, fd formdata.FormData) Map {
	out := make(Map)
	nested := page.ChildGroupIDs()
	for _, group := range page.Groups() {
		if !group.Repeating() || nested[group.ID] {
			continue
		}
		binding := group.GroupBinding()
		count := fd.MaxIndex(binding)
		out[group.ID] = newEntry(count, "", binding)
		computeChildren(out, page, group, nil, binding, count, fd)
	}
	return out
}

// ComputeAll merges Compute over every page.
func ComputeAll(layouts layout.Layouts, fd formdata.FormData) Map {
	out := make(Map)
	for _, name := range layouts.PageNames() {
		for k, v := range Compute(layouts[name], fd) {
			out[k] = v
		}
	}
	return out
}

func computeChildren(out Map, page layout.Page, parent *layout.Group, parentRows []int, qualifiedParent string, parentCount int, fd formdata.FormData) {
	for _, child := range childGroups(page, parent) {
		binding := child.GroupBinding()
		for row := 0; row <= parentCount; row++ {
			rows := appendRow(parentRows, row)
			qualified := QualifyBinding(binding, qualifiedParent, row)
			count := fd.MaxIndex(qualified)
			out[layout.NewIndexedID(child.ID, rows...).String()] = newEntry(count, child.ID, binding)
			computeChildren(out, page, child, rows, qualified, count, fd)
		}
	}
}

// QualifyBinding rewrites the unindexed prefix of a nested group binding with
// the qualified parent binding at row, e.g. ("Group1.Group2", "Group1", 0) →
// "Group1[0].Group2".
func QualifyBinding(binding, qualifiedParent string, row int) string {
	unindexed := formdata.KeyWithoutIndex(qualifiedParent)
	if unindexed == "" {
		return binding
	}
	return strings.Replace(binding, unindexed, formdata.Indexed(qualifiedParent, row), 1)
}

// AddRow increments the row count of the group instance at key and registers
// empty entries for its nested groups at the new row.
func AddRow(m Map, page layout.Page, key string) (Map, error) {
	group, rows, err := resolve(m, page, key)
	if err != nil {
		return nil, err
	}
	out := m.Clone()
	entry, ok := out[key]
	if !ok {
		entry = newEntry(-1, baseOf(group, rows), group.GroupBinding())
	}
	next := entry.Count + 1
	if group.MaxCount > 0 && next >= group.MaxCount {
		return nil, fmt.Errorf("%w: %s holds %d rows", ErrMaxCount, key, group.MaxCount)
	}
	entry.Count = next
	out[key] = entry

	for _, child := range childGroups(page, group) {
		childKey := layout.NewIndexedID(child.ID, appendRow(rows, next)...).String()
		out[childKey] = newEntry(-1, child.ID, child.GroupBinding())
	}
	return out, nil
}

// RemoveRow deletes row index of the group instance at key. Nested group
// entries below that row are dropped and, with shift set, entries of later
// rows are renamed one row down at every nesting depth.
func RemoveRow(m Map, page layout.Page, key string, index int, shift bool) (Map, error) {
	group, rows, err := resolve(m, page, key)
	if err != nil {
		return nil, err
	}
	descendants := make(map[string]bool)
	collectDescendants(page, group, descendants)

	out := make(Map, len(m))
	depth := len(rows)
	for k, entry := range m {
		base := entry.BaseGroupID
		if base == "" || !descendants[base] {
			out[k] = entry
			continue
		}
		id, ok := layout.ParseIndexedID(k, base)
		if !ok || id.Depth() <= depth || !hasRowPrefix(id.Rows, rows) {
			out[k] = entry
			continue
		}
		row := id.Rows[depth]
		switch {
		case row < index:
			out[k] = entry
		case row == index:
		case shift:
			id.Rows[depth] = row - 1
			out[id.String()] = entry
		default:
			out[k] = entry
		}
	}

	entry := out[key]
	if entry.Count >= 0 {
		entry.Count--
	}
	switch {
	case entry.EditIndex == index:
		entry.EditIndex = -1
	case entry.EditIndex > index && shift:
		entry.EditIndex--
	}
	out[key] = entry
	return out, nil
}

// HighestChildIndex returns the highest parent row that has an entry for the
// nested group childID, or -1.
func HighestChildIndex(m Map, childID string) int {
	highest := -1
	for key, entry := range m {
		if entry.BaseGroupID != childID {
			continue
		}
		id, ok := layout.ParseIndexedID(key, childID)
		if !ok || id.Depth() != 1 {
			continue
		}
		if id.Rows[0] > highest {
			highest = id.Rows[0]
		}
	}
	return highest
}

// Reconcile carries edit indices from previous into next where still valid
// and reports the keys of groups that held rows in previous but none in next.
func Reconcile(previous, next Map) (Map, []string) {
	out := next.Clone()
	var emptied []string
	for _, key := range previous.Keys() {
		prev := previous[key]
		cur, ok := out[key]
		if prev.Count > -1 && (!ok || cur.Count == -1) {
			emptied = append(emptied, key)
			continue
		}
		if ok && cur.Count >= prev.EditIndex {
			cur.EditIndex = prev.EditIndex
			out[key] = cur
		}
	}
	return out, emptied
}

func resolve(m Map, page layout.Page, key string) (*layout.Group, []int, error) {
	base := key
	if entry, ok := m[key]; ok && entry.BaseGroupID != "" {
		base = entry.BaseGroupID
	}
	group := page.Group(base)
	if group == nil {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownGroup, key)
	}
	id, ok := layout.ParseIndexedID(key, base)
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownGroup, key)
	}
	return group, id.Rows, nil
}

func baseOf(group *layout.Group, rows []int) string {
	if len(rows) == 0 {
		return ""
	}
	return group.ID
}

func childGroups(page layout.Page, parent *layout.Group) []*layout.Group {
	var out []*layout.Group
	for _, node := range page.GroupChildren(parent.ID) {
		if group, ok := node.(*layout.Group); ok && group.Repeating() {
			out = append(out, group)
		}
	}
	return out
}

func collectDescendants(page layout.Page, group *layout.Group, into map[string]bool) {
	for _, child := range childGroups(page, group) {
		if into[child.ID] {
			continue
		}
		into[child.ID] = true
		collectDescendants(page, child, into)
	}
}

func hasRowPrefix(rows, prefix []int) bool {
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

func appendRow(rows []int, row int) []int {
	out := make([]int, len(rows), len(rows)+1)
	copy(out, rows)
	return append(out, row)
}
