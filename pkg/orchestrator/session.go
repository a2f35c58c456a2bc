package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/rules"
	"github.com/goliatone/go-formfill/pkg/textresource"
	"github.com/goliatone/go-formfill/pkg/validation"
)

// ErrRowOutOfRange is returned by RemoveRow for an index the group does not hold.
var ErrRowOutOfRange = errors.New("orchestrator: row out of range")

type state struct {
	formData    formdata.FormData
	groups      repeating.Map
	texts       textresource.Resources
	hidden      []string
	validations validation.Validations
	// imported holds the last server-side issues so full runs keep them.
	imported validation.Validations
	// invalid tracks fields holding a value of the wrong type or format.
	invalid map[string]bool
}

func (st *state) clone() *state {
	invalid := make(map[string]bool, len(st.invalid))
	for k, v := range st.invalid {
		invalid[k] = v
	}
	return &state{
		formData:    st.formData.Clone(),
		groups:      st.groups.Clone(),
		texts:       append(textresource.Resources(nil), st.texts...),
		hidden:      append([]string(nil), st.hidden...),
		validations: st.validations.Clone(),
		imported:    st.imported.Clone(),
		invalid:     invalid,
	}
}

type change struct {
	binding string
	value   string
}

// SetField writes value to binding and settles every calculation rule the
// write triggers. Derived values are written only when they differ from the
// current value, up to the configured iteration cap.
func (s *Session) SetField(ctx context.Context, binding, value string) error {
	if binding == "" {
		return errors.New("orchestrator: binding is required")
	}
	return s.mutate(ctx, func(next *state) error {
		changed := s.settle(next, change{binding: binding, value: value})
		if len(changed) == 0 {
			return nil
		}
		previous := next.groups
		groups, emptied := repeating.Reconcile(previous, repeating.ComputeAll(s.layouts, next.formData))
		next.groups = groups
		s.dropEmptied(next, previous, emptied)
		if err := ctx.Err(); err != nil {
			return err
		}
		s.refreshTexts(next)
		s.refreshHidden(next)
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, field := range changed {
			s.validateField(next, field)
		}
		next.validations = validation.RemoveHidden(next.validations, next.hidden)
		return nil
	})
}

// dropEmptied removes the validations of every row a group held in previous
// before it lost all its rows.
func (s *Session) dropEmptied(st *state, previous repeating.Map, emptied []string) {
	for _, key := range emptied {
		pageName, _, err := s.groupPage(&state{groups: previous}, key)
		if err != nil {
			continue
		}
		for row := previous.Count(key); row >= 0; row-- {
			st.validations = validation.RemoveGroupValidationsByIndex(key, row, pageName, s.layouts, previous, st.validations, false)
			st.imported = validation.RemoveGroupValidationsByIndex(key, row, pageName, s.layouts, previous, st.imported, false)
		}
		logger.Verbose("orchestrator: group", key, "has no rows left")
	}
}

// AddRow appends a row to the repeating group instance groupKey
// ("Group1", or "Group2-0" for a nested group under row 0).
func (s *Session) AddRow(ctx context.Context, groupKey string) error {
	return s.mutate(ctx, func(next *state) error {
		_, page, err := s.groupPage(next, groupKey)
		if err != nil {
			return err
		}
		groups, err := repeating.AddRow(next.groups, page, groupKey)
		if err != nil {
			return fmt.Errorf("orchestrator: add row: %w", err)
		}
		next.groups = groups
		s.refreshTexts(next)
		s.refreshHidden(next)
		next.validations = validation.RemoveHidden(next.validations, next.hidden)
		return nil
	})
}

// RemoveRow deletes row index of the repeating group instance groupKey.
// Later rows shift down in form data, group counts and validations alike.
func (s *Session) RemoveRow(ctx context.Context, groupKey string, index int) error {
	return s.mutate(ctx, func(next *state) error {
		pageName, page, err := s.groupPage(next, groupKey)
		if err != nil {
			return err
		}
		instance, ok := findInstance(page, next.groups, groupKey)
		if !ok {
			return fmt.Errorf("orchestrator: remove row: %w %q", repeating.ErrUnknownGroup, groupKey)
		}
		if index < 0 || index > instance.Count {
			return fmt.Errorf("%w: %s has no row %d", ErrRowOutOfRange, groupKey, index)
		}

		next.formData = formdata.RemoveGroupData(next.formData, instance.Binding, index, true)
		next.validations = validation.RemoveGroupValidationsByIndex(groupKey, index, pageName, s.layouts, next.groups, next.validations, true)
		next.imported = validation.RemoveGroupValidationsByIndex(groupKey, index, pageName, s.layouts, next.groups, next.imported, true)
		groups, err := repeating.RemoveRow(next.groups, page, groupKey, index, true)
		if err != nil {
			return fmt.Errorf("orchestrator: remove row: %w", err)
		}
		next.groups = groups
		if err := ctx.Err(); err != nil {
			return err
		}
		s.refreshInvalid(next)
		s.refreshTexts(next)
		s.refreshHidden(next)
		next.validations = validation.RemoveHidden(next.validations, next.hidden)
		return nil
	})
}

// ImportIssues merges validation issues reported for the stored data
// element. The issues replace any previously imported set.
func (s *Session) ImportIssues(ctx context.Context, issues []validation.Issue) error {
	return s.mutate(ctx, func(next *state) error {
		mapped := validation.MapDataElementValidations(issues, s.layouts, next.texts)
		next.imported = mapped
		next.validations = validation.RemoveHidden(validation.Merge(next.validations, mapped), next.hidden)
		return nil
	})
}

// Validate runs a full validation over every page in order and returns the
// result with hidden components pruned.
func (s *Session) Validate(ctx context.Context) (validation.Result, error) {
	var result validation.Result
	err := s.mutate(ctx, func(next *state) error {
		result = s.validateAll(next)
		return nil
	})
	return result, err
}

// ValidateGroup revalidates one group on its page and replaces the stored
// entries of the components it reports.
func (s *Session) ValidateGroup(ctx context.Context, groupID string) (validation.Validations, error) {
	var out validation.Validations
	err := s.mutate(ctx, func(next *state) error {
		pageName := s.layouts.PageOf(groupID)
		if pageName == "" {
			return fmt.Errorf("orchestrator: validate group: %w %q", repeating.ErrUnknownGroup, groupID)
		}
		in := s.input(next)
		in.CurrentPage = pageName
		out = validation.RemoveHidden(validation.ValidateGroup(groupID, in), next.hidden)
		for componentID, cv := range out[pageName] {
			next.validations.SetComponent(pageName, componentID, cv)
		}
		return nil
	})
	return out, err
}

// CanSubmit revalidates the form and reports whether it may be saved in the
// session's API mode.
func (s *Session) CanSubmit(ctx context.Context) (bool, error) {
	result, err := s.Validate(ctx)
	if err != nil {
		return false, err
	}
	return validation.CanFormBeSaved(result, s.apiMode), nil
}

// mutate runs fn against a copy of the state and commits it when fn
// succeeds and ctx is still live.
func (s *Session) mutate(ctx context.Context, fn func(next *state) error) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	next := s.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = next
	return nil
}

// settle applies first and every rule write it triggers, returning the
// bindings whose value changed in write order.
func (s *Session) settle(next *state, first change) []string {
	var (
		changed []string
		seen    = make(map[string]bool)
		queue   = []change{first}
	)
	for iteration := 0; len(queue) > 0; iteration++ {
		if iteration >= s.maxIterations {
			logger.Warning(fmt.Sprintf("orchestrator: rule writes did not settle after %d iterations, dropping %d pending", s.maxIterations, len(queue)))
			break
		}
		c := queue[0]
		queue = queue[1:]
		if next.formData[c.binding] == c.value {
			continue
		}
		next.formData[c.binding] = c.value
		if !seen[c.binding] {
			seen[c.binding] = true
			changed = append(changed, c.binding)
		}
		for _, result := range s.runRules(next.formData, c.binding) {
			if next.formData[result.DataBindingName] == result.Result {
				continue
			}
			logger.Verbose(fmt.Sprintf("orchestrator: rule writes %s=%q for %s", result.DataBindingName, result.Result, result.ComponentID))
			queue = append(queue, change{binding: result.DataBindingName, value: result.Result})
		}
	}
	return changed
}

func (s *Session) runRules(fd formdata.FormData, binding string) []rules.Result {
	var results []rules.Result
	s.guard("calculation rules for "+binding, func() error {
		var err error
		results, err = rules.CheckIfRuleShouldRun(s.ruleConfig.RuleConnections, fd, s.layouts, binding, s.ruleFuncs)
		return err
	})
	return results
}

func (s *Session) refreshHidden(st *state) {
	var hidden []string
	s.guard("conditional rendering", func() error {
		var err error
		hidden, err = rules.RunConditionalRenderingRules(s.ruleConfig.ConditionalRendering, st.formData, st.groups, s.conditionFuncs)
		return err
	})
	st.hidden = hidden
}

func (s *Session) refreshTexts(st *state) {
	st.texts = textresource.ReplaceParams(s.resources, textresource.Sources{DataModel: st.formData}, st.groups)
}

// guard runs app-author code, logging and swallowing errors and panics so
// one misbehaving function never aborts the pipeline.
func (s *Session) guard(stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("orchestrator: %s panicked: %v", stage, r))
		}
	}()
	if err := fn(); err != nil {
		logger.Error(fmt.Sprintf("orchestrator: %s: %v", stage, err))
	}
}

func (s *Session) input(st *state) validation.Input {
	return validation.Input{
		FormData:    st.formData,
		Layouts:     s.layouts,
		Order:       s.settings.OrderedPages(s.layouts),
		Hidden:      st.hidden,
		Groups:      st.groups,
		Attachments: s.attachments,
		Validator:   s.validator,
		Translator:  s.translator,
		Resources:   st.texts,
	}
}

func (s *Session) validateAll(st *state) validation.Result {
	result := validation.Run(s.input(st))
	result.Validations = validation.RemoveHidden(validation.Merge(result.Validations, st.imported), st.hidden)
	st.validations = result.Validations
	s.refreshInvalid(st)
	return result
}

// refreshInvalid recomputes the fields holding a value of the wrong type.
func (s *Session) refreshInvalid(st *state) {
	st.invalid = make(map[string]bool)
	for _, field := range validation.InvalidDataFields(st.formData, s.validator) {
		st.invalid[field] = true
	}
}

// validateField replaces the stored entry of the binding field belongs to.
func (s *Session) validateField(st *state, field string) {
	pageName, node := s.componentFor(field)
	if node == nil {
		return
	}
	result := validation.ValidateComponent(pageName, node, field, st.formData, s.validator, s.translator, st.texts)
	if result.InvalidDataTypes {
		st.invalid[field] = true
	} else {
		delete(st.invalid, field)
	}
	for componentID, cv := range result.Validations[pageName] {
		merged := st.validations.Component(pageName, componentID).Clone()
		if merged == nil {
			merged = make(validation.ComponentValidations)
		}
		for key, entry := range cv {
			if entry.Empty() {
				delete(merged, key)
				continue
			}
			merged[key] = entry
		}
		st.validations.SetComponent(pageName, componentID, merged)
	}
}

// componentFor returns the static component binding field once row
// indices are stripped, scanning pages in name order.
func (s *Session) componentFor(field string) (string, layout.Node) {
	static := formdata.KeyWithoutIndex(field)
	for _, name := range s.layouts.PageNames() {
		for _, node := range s.layouts[name] {
			if _, isGroup := layout.AsGroup(node); isGroup {
				continue
			}
			for _, binding := range node.Common().DataModelBindings {
				if binding == static {
					return name, node
				}
			}
		}
	}
	return "", nil
}

func (s *Session) groupPage(st *state, groupKey string) (string, layout.Page, error) {
	base := groupKey
	if entry, ok := st.groups[groupKey]; ok && entry.BaseGroupID != "" {
		base = entry.BaseGroupID
	}
	pageName := s.layouts.PageOf(base)
	if pageName == "" {
		return "", nil, fmt.Errorf("orchestrator: %w %q", repeating.ErrUnknownGroup, groupKey)
	}
	return pageName, s.layouts[pageName], nil
}

func findInstance(page layout.Page, groups repeating.Map, key string) (repeating.Instance, bool) {
	for _, instance := range repeating.Instances(page, groups) {
		if instance.Key == key {
			return instance, true
		}
	}
	return repeating.Instance{}, false
}
