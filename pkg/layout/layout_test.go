package layout_test

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/layout"
)

func loadCombined(t *testing.T) layout.Layouts {
	t.Helper()

	data, err := os.ReadFile("testdata/combined.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	layouts, err := layout.ParseLayouts(data)
	if err != nil {
		t.Fatalf("parse layouts: %v", err)
	}
	return layouts
}

func TestParseLayouts_DecodesClosedVariant(t *testing.T) {
	page := loadCombined(t)["FormLayout"]

	var kinds []string
	for _, node := range page {
		switch n := node.(type) {
		case *layout.Group:
			kinds = append(kinds, "group:"+n.ID)
		case *layout.Component:
			kinds = append(kinds, "component:"+n.ID)
		}
	}
	want := []string{"component:field1", "group:Group1", "group:Group2", "component:field2", "component:field3"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("node kinds mismatch (-want +got):\n%s", diff)
	}

	group := page.Group("Group1")
	if !group.Repeating() {
		t.Fatalf("expected Group1 to repeat")
	}
	if group.Edit == nil || group.Edit.Mode != "showTable" || group.Edit.AddButton == nil || *group.Edit.AddButton {
		t.Fatalf("unexpected edit config: %+v", group.Edit)
	}
	if got := group.GroupBinding(); got != "Group1" {
		t.Fatalf("group binding = %q", got)
	}
}

func TestPage_RoundTripPreservesUnknownAttributes(t *testing.T) {
	data, err := os.ReadFile("testdata/combined.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	layouts, err := layout.ParseLayouts(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := json.Marshal(layouts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var want, got any
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatalf("unmarshal source: %v", err)
	}
	if err := json.Unmarshal(encoded, &got); err != nil {
		t.Fatalf("unmarshal encoded: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPage_GroupHelpers(t *testing.T) {
	page := loadCombined(t)["FormLayout"]

	if diff := cmp.Diff(map[string]bool{"Group2": true}, page.ChildGroupIDs()); diff != "" {
		t.Fatalf("child groups mismatch (-want +got):\n%s", diff)
	}
	if parent := page.ParentGroup("Group2"); parent == nil || parent.ID != "Group1" {
		t.Fatalf("unexpected parent: %+v", parent)
	}
	if parent := page.ParentGroup("field1"); parent != nil {
		t.Fatalf("expected no parent for field1, got %s", parent.ID)
	}

	var ids []string
	for _, node := range page.GroupChildren("Group1") {
		ids = append(ids, node.Common().ID)
	}
	if diff := cmp.Diff([]string{"Group2", "field2"}, ids); diff != "" {
		t.Fatalf("group children mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	page := loadCombined(t)["FormLayout"]
	source := page.Find("field1").(*layout.Component)

	clone := layout.Clone(source).(*layout.Component)
	clone.ID = "field1-0"
	clone.DataModelBindings["simpleBinding"] = "Group[0].prop1"

	if source.ID != "field1" || source.DataModelBindings["simpleBinding"] != "Group.prop1" {
		t.Fatalf("source mutated through clone: %+v", source.Base)
	}
	var custom map[string][]int
	if !clone.Attr("customAttribute", &custom) || len(custom["nested"]) != 3 {
		t.Fatalf("clone lost custom attribute: %v", custom)
	}
}

func TestGroup_MultiPageChildren(t *testing.T) {
	set, err := layout.LoadFS(os.DirFS("testdata/pages"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	group := set.Layouts["page2"].Group("multi")
	if diff := cmp.Diff([]string{"input2", "input3"}, group.ChildIDs()); diff != "" {
		t.Fatalf("child ids mismatch (-want +got):\n%s", diff)
	}
	if got := group.ChildPage("input3"); got != 1 {
		t.Fatalf("child page = %d, want 1", got)
	}
}

func TestLoadFS_MixedFormats(t *testing.T) {
	set, err := layout.LoadFS(os.DirFS("testdata/pages"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"page1", "page2"}, set.Layouts.PageNames()); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	input := set.Layouts["page1"].Find("input1").(*layout.Component)
	if !input.Required {
		t.Fatalf("expected input1 required")
	}
	if got := set.Settings.Next("page1"); got != "page2" {
		t.Fatalf("next(page1) = %q", got)
	}
	if got := set.Settings.Previous("page2"); got != "page1" {
		t.Fatalf("previous(page2) = %q", got)
	}
	if got := set.Settings.Next("page2"); got != "" {
		t.Fatalf("next(page2) = %q, want empty", got)
	}
}

func TestLoadFS_DuplicatePage(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(`{"page":[{"id":"x","type":"Input"}]}`)},
		"b.json": {Data: []byte(`{"page":[{"id":"y","type":"Input"}]}`)},
	}
	_, err := layout.LoadFS(fsys)
	if !errors.Is(err, layout.ErrDuplicatePage) {
		t.Fatalf("expected ErrDuplicatePage, got %v", err)
	}
}

func TestDecodeNode_RequiresID(t *testing.T) {
	if _, err := layout.DecodeNode([]byte(`{"type":"Input"}`)); !errors.Is(err, layout.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestIndexedID(t *testing.T) {
	id := layout.NewIndexedID("Group2").WithRow(1).WithRow(12)
	if got := id.String(); got != "Group2-1-12" {
		t.Fatalf("String() = %q", got)
	}
	if got := id.Parent().String(); got != "Group2-1" {
		t.Fatalf("Parent() = %q", got)
	}
	if row, ok := id.LastRow(); !ok || row != 12 {
		t.Fatalf("LastRow() = %d, %v", row, ok)
	}

	parsed, ok := layout.ParseIndexedID("my-field-2-3", "my-field")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if diff := cmp.Diff(layout.NewIndexedID("my-field", 2, 3), parsed); diff != "" {
		t.Fatalf("parsed mismatch (-want +got):\n%s", diff)
	}
	if _, ok := layout.ParseIndexedID("my-field-x", "my-field"); ok {
		t.Fatalf("expected non-numeric suffix to fail")
	}
}
