package datamodel_test

import (
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formfill/pkg/datamodel"
	"github.com/goliatone/go-formfill/pkg/formdata"
)

func mustValidator(t *testing.T, path string) *datamodel.Validator {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	v, err := datamodel.New(data)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return v
}

func sortViolations(vs []datamodel.Violation) []datamodel.Violation {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Keyword < vs[j].Keyword
	})
	return vs
}

func TestValidator_OldGeneratorRootElement(t *testing.T) {
	v := mustValidator(t, "testdata/old-generator.schema.json")
	if got := v.RootElement(); got != "#/definitions/Skjema" {
		t.Fatalf("root element = %q", got)
	}

	got := sortViolations(v.ValidateFormData(formdata.FormData{
		"name":          "toolong",
		"nickname":      "ok",
		"age":           "abc",
		"Group[0].kind": "c",
		"Group[1].code": "lower",
	}))
	want := []datamodel.Violation{
		{Path: "Group[0].kind", Keyword: "enum", Param: "a, b"},
		{Path: "Group[1].code", Keyword: "pattern", Param: "^[A-Z]+$"},
		{Path: "age", Keyword: "type", Param: "integer"},
		{Path: "name", Keyword: "maxLength", Param: "4", ErrorMessage: "custom_error"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(datamodel.Violation{}, "Reason")); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator_ExclusiveBoundFromNumericKeyword(t *testing.T) {
	v := mustValidator(t, "testdata/old-generator.schema.json")

	got := v.ValidateFormData(formdata.FormData{"age": "150"})
	if len(got) != 1 {
		t.Fatalf("expected one violation, got %+v", got)
	}
	if got[0].Keyword != "maximum" && got[0].Keyword != "exclusiveMaximum" {
		t.Fatalf("unexpected keyword %q", got[0].Keyword)
	}
	if got[0].Param != "150" {
		t.Fatalf("param = %q, want 150", got[0].Param)
	}
	if vs := v.ValidateFormData(formdata.FormData{"age": "149"}); len(vs) != 0 {
		t.Fatalf("expected 149 to pass, got %+v", vs)
	}
}

func TestValidator_Draft2020Keywords(t *testing.T) {
	v := mustValidator(t, "testdata/draft2020.schema.json")
	if got := v.RootElement(); got != "" {
		t.Fatalf("root element = %q, want document root", got)
	}

	got := sortViolations(v.ValidateFormData(formdata.FormData{
		"year":   "20x1",
		"flag":   "yes",
		"amount": "6",
	}))
	want := []datamodel.Violation{
		{Path: "amount", Keyword: "enum", Param: "5"},
		{Path: "flag", Keyword: "type", Param: "boolean"},
		{Path: "year", Keyword: "format", Param: "year"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(datamodel.Violation{}, "Reason")); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}

	if vs := v.ValidateFormData(formdata.FormData{"year": "2021", "flag": "true", "amount": "5"}); len(vs) != 0 {
		t.Fatalf("expected valid data, got %+v", vs)
	}
}

func TestValidator_EmptyValuesAreNotValidated(t *testing.T) {
	v := mustValidator(t, "testdata/old-generator.schema.json")
	if vs := v.ValidateFormData(formdata.FormData{"age": "", "name": ""}); len(vs) != 0 {
		t.Fatalf("expected empty values to be skipped, got %+v", vs)
	}
}

func TestValidator_Coerce(t *testing.T) {
	v := mustValidator(t, "testdata/old-generator.schema.json")
	model := v.Model(formdata.FormData{"age": "12", "name": "12", "Group[0].code": "AB"})
	want := map[string]any{
		"age":   float64(12),
		"name":  "12",
		"Group": []any{map[string]any{"code": "AB"}},
	}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RefCycle(t *testing.T) {
	data, err := os.ReadFile("testdata/cycle.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := datamodel.New(data); !errors.Is(err, datamodel.ErrRefCycle) {
		t.Fatalf("expected ErrRefCycle, got %v", err)
	}
}

func TestCache_CompilesOnce(t *testing.T) {
	data, err := os.ReadFile("testdata/draft2020.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	loads := 0
	cache, err := datamodel.NewCache(datamodel.LoaderFunc(func(id string) ([]byte, error) {
		loads++
		if id != "model" {
			return nil, errors.New("unknown data type")
		}
		return data, nil
	}), 2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	first, err := cache.Get("model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cache.Get("model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second || loads != 1 {
		t.Fatalf("expected a single compile, loads=%d", loads)
	}
	if _, err := cache.Get("other"); err == nil {
		t.Fatalf("expected loader error")
	}
}
