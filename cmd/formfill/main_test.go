package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type scriptedPrompter struct {
	inputs   []string
	selects  []int
	confirms []bool
	asked    []string
}

func (p *scriptedPrompter) Input(_ context.Context, message, _, _ string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.inputs) == 0 {
		return "", errAborted
	}
	out := p.inputs[0]
	p.inputs = p.inputs[1:]
	return out, nil
}

func (p *scriptedPrompter) Select(_ context.Context, message string, _ []string, _ int) (int, error) {
	p.asked = append(p.asked, message)
	if len(p.selects) == 0 {
		return 0, errAborted
	}
	out := p.selects[0]
	p.selects = p.selects[1:]
	return out, nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, message string) (bool, error) {
	p.asked = append(p.asked, message)
	if len(p.confirms) == 0 {
		return false, errAborted
	}
	out := p.confirms[0]
	p.confirms = p.confirms[1:]
	return out, nil
}

var fixtureParams = formParams{
	Layouts:  "testdata/layouts",
	Rules:    "testdata/rules.yaml",
	Language: "en",
}

func TestFiller_WalksPagesRowsAndRules(t *testing.T) {
	session, settings, err := newSession(fixtureParams)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	prompt := &scriptedPrompter{
		inputs:   []string{"Ada", "21", "Kim", "hello"},
		selects:  []int{1},
		confirms: []bool{true, false},
	}
	var out bytes.Buffer
	f := &filler{session: session, settings: settings, prompt: prompt, out: &out}
	if err := f.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantAsked := []string{
		"name.title *",
		"amount",
		"Add a row to kids?",
		"kid-name",
		"Add a row to kids?",
		"color",
		"note",
	}
	if diff := cmp.Diff(wantAsked, prompt.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}

	got := session.Snapshot().FormData
	want := map[string]string{
		"name":         "Ada",
		"amount":       "21",
		"total":        "42",
		"kids[0].name": "Kim",
		"color":        "blue",
		"note":         "hello",
	}
	if diff := cmp.Diff(want, map[string]string(got)); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestFiller_SkipsHiddenComponents(t *testing.T) {
	session, settings, err := newSession(fixtureParams)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	prompt := &scriptedPrompter{
		inputs:   []string{"Bo", ""},
		selects:  []int{0},
		confirms: []bool{false},
	}
	var out bytes.Buffer
	f := &filler{session: session, settings: settings, prompt: prompt, out: &out}
	if err := f.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, message := range prompt.asked {
		if message == "note" {
			t.Fatalf("hidden component was prompted: %v", prompt.asked)
		}
	}
}

func TestFiller_PropagatesAbort(t *testing.T) {
	session, settings, err := newSession(fixtureParams)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	f := &filler{session: session, settings: settings, prompt: &scriptedPrompter{}, out: &bytes.Buffer{}}
	if err := f.run(context.Background()); !errors.Is(err, errAborted) {
		t.Fatalf("expected errAborted, got %v", err)
	}
}

func TestHiddenCmd(t *testing.T) {
	cmd := newHiddenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--layouts", "testdata/layouts", "--rules", "testdata/rules.yaml"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got []string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if diff := cmp.Diff([]string{"note"}, got); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCmd_Strict(t *testing.T) {
	cmd := newValidateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--layouts", "testdata/layouts", "--strict"})
	err := cmd.ExecuteContext(context.Background())
	if !errors.Is(err, errNotSubmittable) {
		t.Fatalf("expected errNotSubmittable, got %v", err)
	}
	if strings.Contains(out.String(), "Usage:") {
		t.Fatalf("usage printed after a failed gate: %q", out.String())
	}
	var report validateReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if report.CanSubmit || report.ErrorCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := report.Validations["FormLayout"]["name"]; !ok {
		t.Fatalf("expected a required error on name, got %+v", report.Validations)
	}
}

func TestLoadLayouts_RequiresPath(t *testing.T) {
	if _, err := loadLayouts(""); err == nil {
		t.Fatalf("expected an error for an empty path")
	}
}
