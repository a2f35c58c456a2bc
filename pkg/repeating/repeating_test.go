package repeating_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
)

const nestedPage = `{"FormLayout": [
  {"id": "Group1", "type": "Group", "dataModelBindings": {"group": "Group1"}, "children": ["field1", "Group2"], "maxCount": 99},
  {"id": "Group2", "type": "Group", "dataModelBindings": {"group": "Group1.Group2"}, "children": ["field2"], "maxCount": 99},
  {"id": "field1", "type": "Input", "dataModelBindings": {"simpleBinding": "Group1.prop1"}},
  {"id": "field2", "type": "Input", "dataModelBindings": {"simpleBinding": "Group1.Group2.prop2"}},
  {"id": "Single", "type": "Group", "dataModelBindings": {"group": "Single"}, "children": [], "maxCount": 1},
  {"id": "Empty", "type": "Group", "dataModelBindings": {"group": "Empty"}, "children": [], "maxCount": 3}
]}`

func loadPage(t *testing.T) layout.Page {
	t.Helper()
	layouts, err := layout.ParseLayouts([]byte(nestedPage))
	if err != nil {
		t.Fatalf("parse layouts: %v", err)
	}
	return layouts["FormLayout"]
}

func TestCompute_NestedGroups(t *testing.T) {
	page := loadPage(t)
	fd := formdata.FormData{
		"Group1[0].prop1":                 "a",
		"Group1[0].Group2[0].prop2":       "b",
		"Group1[1].prop1":                 "c",
		"Group1[1].Group2[11].prop2":      "d",
		"Group1[1].Group2[3].prop2":       "e",
		"Group1[1].Group2[10].prop2":      "f",
		"Group1[12].prop1":                "g",
		"Group1[2].Group2[0].prop2":       "h",
		"Group1Other[40].Group2[0].prop2": "ignored",
	}

	got := repeating.Compute(page, fd)

	entry := func(count int, base, binding string) repeating.Entry {
		return repeating.Entry{Count: count, BaseGroupID: base, EditIndex: -1, MultiPageIndex: -1, DataModelBinding: binding}
	}
	want := repeating.Map{
		"Group1": entry(12, "", "Group1"),
		"Empty":  entry(-1, "", "Empty"),
	}
	for row := 0; row <= 12; row++ {
		want[layout.NewIndexedID("Group2", row).String()] = entry(-1, "Group2", "Group1.Group2")
	}
	want["Group2-0"] = entry(0, "Group2", "Group1.Group2")
	want["Group2-1"] = entry(11, "Group2", "Group1.Group2")
	want["Group2-2"] = entry(0, "Group2", "Group1.Group2")

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("repeating groups mismatch (-want +got):\n%s", diff)
	}
	if _, ok := got["Single"]; ok {
		t.Fatalf("non-repeating group must be omitted")
	}
}

func TestAddRow_RegistersChildInstance(t *testing.T) {
	page := loadPage(t)
	start := repeating.Compute(page, formdata.FormData{"Group1[0].prop1": "a"})

	got, err := repeating.AddRow(start, page, "Group1")
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if got.Count("Group1") != 1 {
		t.Fatalf("count = %d, want 1", got.Count("Group1"))
	}
	if diff := cmp.Diff(repeating.Entry{Count: -1, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1, DataModelBinding: "Group1.Group2"}, got["Group2-1"]); diff != "" {
		t.Fatalf("child entry mismatch (-want +got):\n%s", diff)
	}
	if start.Count("Group1") != 0 {
		t.Fatalf("input map mutated")
	}
}

func TestAddRow_RespectsMaxCount(t *testing.T) {
	page := loadPage(t)
	m := repeating.Map{"Empty": {Count: 2, EditIndex: -1, MultiPageIndex: -1}}
	if _, err := repeating.AddRow(m, page, "Empty"); !errors.Is(err, repeating.ErrMaxCount) {
		t.Fatalf("expected ErrMaxCount, got %v", err)
	}
	if _, err := repeating.AddRow(m, page, "Nope"); !errors.Is(err, repeating.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestRemoveRow_ShiftsChildEntries(t *testing.T) {
	page := loadPage(t)
	m := repeating.Map{
		"Group1":   {Count: 2, EditIndex: 2, MultiPageIndex: -1},
		"Group2-0": {Count: 0, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1},
		"Group2-1": {Count: 4, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1},
		"Group2-2": {Count: 7, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1},
	}

	got, err := repeating.RemoveRow(m, page, "Group1", 1, true)
	if err != nil {
		t.Fatalf("remove row: %v", err)
	}
	want := repeating.Map{
		"Group1":   {Count: 1, EditIndex: 1, MultiPageIndex: -1},
		"Group2-0": {Count: 0, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1},
		"Group2-1": {Count: 7, BaseGroupID: "Group2", EditIndex: -1, MultiPageIndex: -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("remove mismatch (-want +got):\n%s", diff)
	}
	if got := repeating.HighestChildIndex(got, "Group2"); got != 1 {
		t.Fatalf("highest child index = %d, want 1", got)
	}
}

func TestReconcile_PreservesEditIndexAndReportsEmptied(t *testing.T) {
	previous := repeating.Map{
		"Group1": {Count: 3, EditIndex: 2},
		"Other":  {Count: 1, EditIndex: 0},
	}
	next := repeating.Map{
		"Group1": {Count: 2, EditIndex: -1},
		"Other":  {Count: -1, EditIndex: -1},
	}
	got, emptied := repeating.Reconcile(previous, next)
	if got["Group1"].EditIndex != 2 {
		t.Fatalf("edit index not preserved: %+v", got["Group1"])
	}
	if diff := cmp.Diff([]string{"Other"}, emptied); diff != "" {
		t.Fatalf("emptied mismatch (-want +got):\n%s", diff)
	}
}

func TestInstances_QualifiesNestedBindings(t *testing.T) {
	page := loadPage(t)
	m := repeating.Compute(page, formdata.FormData{
		"Group1[0].prop1":           "a",
		"Group1[1].Group2[2].prop2": "b",
	})

	type view struct {
		Key     string
		Binding string
		Count   int
		Row0ID  string
		Row0Key string
	}
	var got []view
	for _, in := range repeating.Instances(page, m) {
		got = append(got, view{
			Key:     in.Key,
			Binding: in.Binding,
			Count:   in.Count,
			Row0ID:  in.RowID("field", 0),
			Row0Key: in.RowBinding(in.Group.GroupBinding()+".prop", 0),
		})
	}
	want := []view{
		{Key: "Group1", Binding: "Group1", Count: 1, Row0ID: "field-0", Row0Key: "Group1[0].prop"},
		{Key: "Group2-0", Binding: "Group1[0].Group2", Count: -1, Row0ID: "field-0-0", Row0Key: "Group1[0].Group2[0].prop"},
		{Key: "Group2-1", Binding: "Group1[1].Group2", Count: 2, Row0ID: "field-1-0", Row0Key: "Group1[1].Group2[0].prop"},
		{Key: "Empty", Binding: "Empty", Count: -1, Row0ID: "field-0", Row0Key: "Empty[0].prop"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("instances mismatch (-want +got):\n%s", diff)
	}
}
