package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
)

// Result is a derived value a calculation rule wants written.
type Result struct {
	DataBindingName string `json:"dataBindingName"`
	ComponentID     string `json:"componentId"`
	Result          string `json:"result"`
}

// CheckIfRuleShouldRun runs every connection that reads changedBinding and
// returns the values to write. Connections without an output, with an
// unregistered function or whose output no component binds are skipped.
// Function errors are returned with the results gathered so far.
func CheckIfRuleShouldRun(connections map[string]RuleConnection, fd formdata.FormData, layouts layout.Layouts, changedBinding string, registry *Registry) ([]Result, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, nil
	}
	var results []Result
	for _, id := range sortedKeys(connections) {
		conn := connections[id]
		if !conn.InputParams.Contains(changedBinding) || conn.OutParams.Len() == 0 {
			continue
		}
		target, ok := conn.OutParams.Get(OutParam)
		if !ok || target == "" {
			continue
		}
		fn, ok := registry.Lookup(conn.SelectedFunction)
		if !ok {
			continue
		}
		value, err := fn.Impl(inputObject(conn.InputParams, fd))
		if err != nil {
			return results, fmt.Errorf("rules: rule %q (%s): %w", id, conn.SelectedFunction, err)
		}
		componentID := owningComponent(layouts, target)
		if componentID == "" {
			continue
		}
		results = append(results, Result{
			DataBindingName: target,
			ComponentID:     componentID,
			Result:          ResultString(value),
		})
	}
	return results, nil
}

// RunConditionalRenderingRules returns the ids of the components the rules
// hide, deduplicated in the order they were first found. A rule scoped to a
// repeating group runs once per row of that group and is skipped when the
// group has no runtime entry.
func RunConditionalRenderingRules(rules ConditionalRules, fd formdata.FormData, groups repeating.Map, registry *Registry) ([]string, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, nil
	}
	var (
		hidden []string
		seen   = make(map[string]bool)
	)
	hide := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				hidden = append(hidden, id)
			}
		}
	}

	for _, rule := range rules {
		if rule.RepeatingGroup == nil || rule.RepeatingGroup.GroupID == "" {
			ids, err := evaluateConditional(rule, fd, registry)
			if err != nil {
				return hidden, err
			}
			hide(ids)
			continue
		}
		for _, scoped := range scopedRules(rule, groups) {
			ids, err := evaluateConditional(scoped, fd, registry)
			if err != nil {
				return hidden, err
			}
			hide(ids)
		}
	}
	return hidden, nil
}

// scopedRules expands a group-scoped rule into one copy per row, and per
// nested row when the scope names a child group.
func scopedRules(rule ConditionalRule, groups repeating.Map) []ConditionalRule {
	scope := rule.RepeatingGroup
	entry, ok := groups[scope.GroupID]
	if !ok {
		return nil
	}
	var out []ConditionalRule
	for row := 0; row <= entry.Count; row++ {
		if scope.ChildGroupID == "" {
			out = append(out, rowRule(rule, row))
			continue
		}
		childCount := groups.Count(layout.NewIndexedID(scope.ChildGroupID, row).String())
		for child := 0; child <= childCount; child++ {
			out = append(out, rowRule(rule, row, child))
		}
	}
	return out
}

// rowRule substitutes the placeholder {n} with the n-th row: "[row]" in
// input bindings and "-row" in component ids.
func rowRule(rule ConditionalRule, rows ...int) ConditionalRule {
	bindings := make([]string, 0, 2*len(rows))
	ids := make([]string, 0, 2*len(rows))
	for i, row := range rows {
		placeholder := "{" + strconv.Itoa(i) + "}"
		bindings = append(bindings, placeholder, "["+strconv.Itoa(row)+"]")
		ids = append(ids, placeholder, layout.RowSuffix(row))
	}
	bindingReplacer := strings.NewReplacer(bindings...)
	idReplacer := strings.NewReplacer(ids...)

	scoped := rule
	scoped.RepeatingGroup = nil
	scoped.InputParams = rule.InputParams.Map(bindingReplacer.Replace)
	scoped.SelectedFields = rule.SelectedFields.Map(idReplacer.Replace)
	return scoped
}

func evaluateConditional(rule ConditionalRule, fd formdata.FormData, registry *Registry) ([]string, error) {
	fn, ok := registry.Lookup(rule.SelectedFunction)
	if !ok {
		return nil, nil
	}
	value, err := fn.Impl(inputObject(rule.InputParams, fd))
	if err != nil {
		return nil, fmt.Errorf("rules: conditional rule %q (%s): %w", rule.ID, rule.SelectedFunction, err)
	}
	result := Truthy(value)
	shouldHide := (rule.SelectedAction == ActionShow && !result) || (rule.SelectedAction == ActionHide && result)
	if !shouldHide {
		return nil, nil
	}
	return rule.SelectedFields.Values(), nil
}

// inputObject reads each declared binding from fd; missing keys are nil.
func inputObject(params Params, fd formdata.FormData) map[string]any {
	input := make(map[string]any, params.Len())
	for _, key := range params.Keys() {
		binding, _ := params.Get(key)
		if value, ok := fd.Lookup(binding); ok {
			input[key] = value
		} else {
			input[key] = nil
		}
	}
	return input
}

// owningComponent returns the id of the first non-group node, scanning
// pages in name order, with a binding equal to binding.
func owningComponent(layouts layout.Layouts, binding string) string {
	for _, name := range layouts.PageNames() {
		for _, node := range layouts[name] {
			if _, isGroup := layout.AsGroup(node); isGroup {
				continue
			}
			for _, value := range node.Common().DataModelBindings {
				if value == binding {
					return node.Common().ID
				}
			}
		}
	}
	return ""
}

// ResultString renders a function result the way it is stored in form
// data: NaN and infinities by name, whole numbers without decimals, nil
// as "null".
func ResultString(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	default:
		return formdata.Stringify(v)
	}
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
