// Package testsupport loads form fixtures and manages golden files for
// package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfill/pkg/datamodel"
	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/rules"
	"github.com/goliatone/go-formfill/pkg/textresource"
)

// LoadLayouts reads a layout document ({page: [nodes]}) and fails the test
// on error.
func LoadLayouts(t testing.TB, path string) layout.Layouts {
	t.Helper()

	layouts, err := LoadLayoutsFromPath(path)
	if err != nil {
		t.Fatalf("load layouts: %v", err)
	}
	return layouts
}

// LoadLayoutsFromPath returns the layouts without requiring testing.T, so
// setup code outside a test can share fixtures.
func LoadLayoutsFromPath(path string) (layout.Layouts, error) {
	if path == "" {
		return nil, errors.New("testsupport: layout path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read layouts: %w", err)
	}
	layouts, err := layout.ParseLayouts(data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: parse layouts: %w", err)
	}
	return layouts, nil
}

// LoadRuleConfig reads a rule configuration in JSON or YAML.
func LoadRuleConfig(t testing.TB, path string) rules.Config {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rule config: %v", err)
	}
	cfg, err := rules.LoadConfig(data)
	if err != nil {
		t.Fatalf("load rule config: %v", err)
	}
	return cfg
}

// LoadFormData reads a nested JSON data model and flattens it into form data.
func LoadFormData(t testing.TB, path string) formdata.FormData {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read form data: %v", err)
	}
	var model map[string]any
	if err := json.Unmarshal(data, &model); err != nil {
		t.Fatalf("decode form data: %v", err)
	}
	return formdata.FromModel(model)
}

// LoadValidator compiles a JSON Schema fixture.
func LoadValidator(t testing.TB, path string) *datamodel.Validator {
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

// LoadTextResources reads a text resource document.
func LoadTextResources(t testing.TB, path string) textresource.Resources {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read text resources: %v", err)
	}
	rs, err := textresource.Parse(data)
	if err != nil {
		t.Fatalf("parse text resources: %v", err)
	}
	return rs
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
// Returns true if the golden was written (the test should stop early).
func WriteGolden(t testing.TB, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGolden decodes a JSON golden file into a value of type T.
func MustReadGolden[T any](t testing.TB, path string) T {
	t.Helper()

	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode golden: %v", err)
	}
	return out
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
