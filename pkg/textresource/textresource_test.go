package textresource_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

func TestText_FallsBackToKeyAndStripsMarkup(t *testing.T) {
	rs := textresource.Resources{
		{ID: "custom_error", Value: "<b>Too long</b> & wrong"},
		{ID: "plain", Value: "Don't panic"},
	}
	if got := rs.Text("custom_error"); got != "Too long & wrong" {
		t.Fatalf("Text(custom_error) = %q", got)
	}
	if got := rs.Text("plain"); got != "Don't panic" {
		t.Fatalf("Text(plain) = %q", got)
	}
	if got := rs.Text("missing"); got != "missing" {
		t.Fatalf("Text(missing) = %q", got)
	}
}

func TestReplaceParams_ExpandsIndexedVariables(t *testing.T) {
	rs := textresource.Resources{
		{ID: "title-w-variable", Value: "Row {0}", Variables: []textresource.Variable{{Key: "Group1[{0}].prop1", DataSource: "dataModel.default"}}},
		{ID: "greeting", Value: "Hello {0}", Variables: []textresource.Variable{{Key: "name", DataSource: "dataModel.default"}}},
		{ID: "static", Value: "Static"},
	}
	fd := formdata.FormData{"Group1[0].prop1": "first", "Group1[1].prop1": "second", "name": "Ada"}
	groups := repeating.Map{"Group1": {Count: 1, EditIndex: -1, MultiPageIndex: -1, DataModelBinding: "Group1"}}

	got := textresource.ReplaceParams(rs, textresource.Sources{DataModel: fd}, groups)

	values := map[string]string{}
	for _, r := range got {
		values[r.ID] = r.Value
	}
	want := map[string]string{
		"title-w-variable":   "Row {0}",
		"title-w-variable-0": "Row first",
		"title-w-variable-1": "Row second",
		"greeting":           "Hello Ada",
		"static":             "Static",
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}

	again := textresource.ReplaceParams(got, textresource.Sources{DataModel: fd}, groups)
	if len(again) != len(got) {
		t.Fatalf("re-running must regenerate row copies, got %d resources want %d", len(again), len(got))
	}
}
