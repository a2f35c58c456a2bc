package expand_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/expand"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

const groupLayout = `[
  {"id": "Group1", "type": "Group", "dataModelBindings": {"group": "Group1"}, "children": ["field1", "Group2"], "maxCount": 3},
  {"id": "field1", "type": "Input", "dataModelBindings": {"simpleBinding": "Group1.prop1"}, "textResourceBindings": {"title": "title-w-variable", "description": "plain"}},
  {"id": "Group2", "type": "Group", "dataModelBindings": {"group": "Group1.Group2"}, "children": ["field2"], "maxCount": 4},
  {"id": "field2", "type": "Input", "dataModelBindings": {"simpleBinding": "Group1.Group2.prop2"}}
]`

type summary struct {
	ID       string
	Base     string
	Hidden   bool
	Bindings map[string]string
	Texts    map[string]string
}

func summarize(rows [][]layout.Node) [][]summary {
	out := make([][]summary, len(rows))
	for i, row := range rows {
		for _, node := range row {
			b := node.Common()
			out[i] = append(out[i], summary{
				ID:       b.ID,
				Base:     b.BaseComponentID,
				Hidden:   b.Hidden,
				Bindings: b.DataModelBindings,
				Texts:    b.TextResourceBindings,
			})
		}
	}
	return out
}

func mustPage(t *testing.T) layout.Page {
	t.Helper()
	var page layout.Page
	if err := json.Unmarshal([]byte(groupLayout), &page); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	return page
}

func TestRows_RewritesBindingsAndTextVariables(t *testing.T) {
	page := mustPage(t)
	resources := textresource.Resources{
		{ID: "title-w-variable", Value: "Test 123 {0}", Variables: []textresource.Variable{{Key: "Group1[{0}].prop1", DataSource: "dataModel.default"}}},
		{ID: "plain", Value: "No variables"},
	}

	rows := expand.Rows(page.Group("Group1"), []layout.Node{page.Find("field1")}, 1, resources, nil)

	want := [][]summary{
		{{
			ID:       "field1-0",
			Base:     "field1",
			Bindings: map[string]string{"simpleBinding": "Group1[0].prop1"},
			Texts:    map[string]string{"title": "title-w-variable-0", "description": "plain"},
		}},
		{{
			ID:       "field1-1",
			Base:     "field1",
			Bindings: map[string]string{"simpleBinding": "Group1[1].prop1"},
			Texts:    map[string]string{"title": "title-w-variable-1", "description": "plain"},
		}},
	}
	if diff := cmp.Diff(want, summarize(rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	source := page.Find("field1").Common()
	if source.ID != "field1" || source.DataModelBindings["simpleBinding"] != "Group1.prop1" || source.TextResourceBindings["title"] != "title-w-variable" {
		t.Fatalf("source node mutated: %+v", source)
	}
}

func TestRows_HiddenRows(t *testing.T) {
	page := mustPage(t)
	base := []layout.Node{page.Find("field1")}

	rows := expand.Rows(page.Group("Group1"), base, 2, nil, []string{"field1[0]", "field1-2"})

	var got []bool
	for _, row := range rows {
		got = append(got, row[0].Common().Hidden)
	}
	if diff := cmp.Diff([]bool{true, false, true}, got); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_EmptyGroup(t *testing.T) {
	page := mustPage(t)
	if rows := expand.Rows(page.Group("Group1"), []layout.Node{page.Find("field1")}, -1, nil, nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestRows_BaseComponentIDNeverCarriesRowIndex(t *testing.T) {
	page := mustPage(t)
	parentRows := expand.Rows(page.Group("Group1"), expand.Children(page, page.Group("Group1")), 0, nil, nil)
	nested, ok := layout.AsGroup(parentRows[0][1])
	if !ok {
		t.Fatalf("expected a group copy, got %T", parentRows[0][1])
	}
	if nested.ID != "Group2-0" || nested.BaseComponentID != "Group2" {
		t.Fatalf("unexpected nested group copy %q (base %q)", nested.ID, nested.BaseComponentID)
	}

	scoped := expand.SetupGroupComponents(expand.Children(page, nested), nested.GroupBinding(), 0)
	rows := expand.Rows(nested, scoped, 1, nil, nil)
	want := [][]summary{
		{{ID: "field2-0-0", Base: "field2", Bindings: map[string]string{"simpleBinding": "Group1[0].Group2[0].prop2"}}},
		{{ID: "field2-0-1", Base: "field2", Bindings: map[string]string{"simpleBinding": "Group1[0].Group2[1].prop2"}}},
	}
	if diff := cmp.Diff(want, summarize(rows)); diff != "" {
		t.Fatalf("nested rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupGroupComponents(t *testing.T) {
	page := mustPage(t)
	got := expand.SetupGroupComponents([]layout.Node{page.Find("field2")}, "Group1[3].Group2", 3)
	if len(got) != 1 {
		t.Fatalf("expected one node, got %d", len(got))
	}
	b := got[0].Common()
	if b.ID != "field2-3" || b.BaseComponentID != "field2" {
		t.Fatalf("unexpected id %q (base %q)", b.ID, b.BaseComponentID)
	}
	if binding := b.Binding("simpleBinding"); binding != "Group1[3].Group2.prop2" {
		t.Fatalf("binding = %q", binding)
	}
}
