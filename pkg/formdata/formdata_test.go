package formdata_test

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/formdata"
)

func TestKeyWithoutIndex(t *testing.T) {
	cases := map[string]string{
		"Group1[0].Group2[11].prop": "Group1.Group2.prop",
		"plain.path":                "plain.path",
		"odd[x].path":               "odd[x].path",
		"Group[3]":                  "Group",
	}
	for in, want := range cases {
		if got := formdata.KeyWithoutIndex(in); got != want {
			t.Errorf("KeyWithoutIndex(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexes_ReadsMultiDigitIndices(t *testing.T) {
	if diff := cmp.Diff([]int{10, 2}, formdata.Indexes("Group1[10].Group2[2].prop")); diff != "" {
		t.Fatalf("indexes mismatch (-want +got):\n%s", diff)
	}
	if got := formdata.IndexString("Group1[10].Group2[2].prop"); got != "10-2" {
		t.Fatalf("IndexString = %q", got)
	}
	if got := formdata.IndexString("plain"); got != "" {
		t.Fatalf("IndexString(plain) = %q", got)
	}
}

func TestMaxIndex_ScansEveryKey(t *testing.T) {
	fd := formdata.FormData{
		"Group1[3].prop":  "a",
		"Group1[11].prop": "b",
		"Group1[2].prop":  "c",
		"Group10[40].x":   "ignored",
	}
	if got := fd.MaxIndex("Group1"); got != 11 {
		t.Fatalf("MaxIndex = %d, want 11", got)
	}
	if got := fd.MaxIndex("Missing"); got != -1 {
		t.Fatalf("MaxIndex(Missing) = %d, want -1", got)
	}
}

func TestRemoveGroupData_Shifts(t *testing.T) {
	fd := formdata.FormData{
		"Group[0].a":          "0",
		"Group[1].a":          "1",
		"Group[2].a":          "2",
		"Group[2].Child[0].b": "2-0",
		"Other":               "x",
	}
	got := formdata.RemoveGroupData(fd, "Group", 1, true)
	want := formdata.FormData{
		"Group[0].a":          "0",
		"Group[1].a":          "2",
		"Group[1].Child[0].b": "2-0",
		"Other":               "x",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("remove mismatch (-want +got):\n%s", diff)
	}
	if len(fd) != 5 {
		t.Fatalf("input mutated: %v", fd)
	}

	noShift := formdata.RemoveGroupData(fd, "Group", 1, false)
	if _, ok := noShift["Group[2].a"]; !ok {
		t.Fatalf("expected rows to keep positions without shift: %v", noShift)
	}
}

func TestToModelFromModel(t *testing.T) {
	fd := formdata.FormData{
		"root.name":            "Ada",
		"root.items[1].amount": "12",
		"root.items[0].amount": "3",
	}
	model := formdata.ToModel(fd, func(path, value string) any {
		if n, err := strconv.Atoi(value); err == nil {
			return float64(n)
		}
		return value
	})
	want := map[string]any{
		"root": map[string]any{
			"name": "Ada",
			"items": []any{
				map[string]any{"amount": float64(3)},
				map[string]any{"amount": float64(12)},
			},
		},
	}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fd, formdata.FromModel(model)); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceGroupBinding_FirstOccurrence(t *testing.T) {
	got := formdata.ReplaceGroupBinding("Group1.Group1.prop", "Group1", 2)
	if got != "Group1[2].Group1.prop" {
		t.Fatalf("ReplaceGroupBinding = %q", got)
	}
}
