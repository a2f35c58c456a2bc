package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/orchestrator"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/textresource"
	"github.com/goliatone/go-formfill/pkg/validation"
)

const simpleBinding = "simpleBinding"

func newFillCmd() *cobra.Command {
	params := formParams{}
	var output string
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "fill the form interactively and print the resulting data model",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, settings, err := newSession(params)
			if err != nil {
				return err
			}
			f := &filler{
				session:  session,
				settings: settings,
				prompt:   surveyPrompter{},
				out:      cmd.ErrOrStderr(),
			}
			if err := f.run(cmd.Context()); err != nil {
				return err
			}
			model := formdata.ToModel(session.Snapshot().FormData, nil)
			if output == "" {
				return printJSON(cmd, model)
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer file.Close()
			cmd.SetOut(file)
			return printJSON(cmd, model)
		},
	}
	initFormFlags(cmd, &params)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the data model to this file instead of stdout")
	return cmd
}

// filler walks the pages in order and asks for every visible bound component.
type filler struct {
	session  *orchestrator.Session
	settings layout.Settings
	prompt   prompter
	out      io.Writer
}

func (f *filler) run(ctx context.Context) error {
	layouts := f.session.Layouts()
	for _, pageName := range f.settings.OrderedPages(layouts) {
		page, ok := layouts[pageName]
		if !ok {
			logger.Warning("page order names unknown page", pageName)
			continue
		}
		logger.Verbose("filling page", pageName)
		grouped := groupedIDs(page)
		for _, node := range page {
			if grouped[node.Common().ID] {
				continue
			}
			if err := f.fillNode(ctx, pageName, page, node); err != nil {
				return err
			}
		}
	}

	result, err := f.session.Validate(ctx)
	if err != nil {
		return err
	}
	if n := validation.ErrorCount(result.Validations); n > 0 {
		fmt.Fprintf(f.out, "%d validation errors remain\n", n)
	}
	return nil
}

func (f *filler) fillNode(ctx context.Context, pageName string, page layout.Page, node layout.Node) error {
	switch n := node.(type) {
	case *layout.Component:
		return f.fillComponent(ctx, pageName, n, n.ID, n.Binding(simpleBinding))
	case *layout.Group:
		if n.Repeating() {
			return f.fillRepeating(ctx, pageName, page, n)
		}
		for _, child := range n.ChildIDs() {
			if c, ok := page.Find(child).(*layout.Component); ok {
				if err := f.fillComponent(ctx, pageName, c, c.ID, c.Binding(simpleBinding)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (f *filler) fillRepeating(ctx context.Context, pageName string, page layout.Page, group *layout.Group) error {
	for row := 0; ; row++ {
		instance, ok := topInstance(page, f.session.Snapshot().RepeatingGroups, group.ID)
		if !ok {
			return nil
		}
		if row > instance.Count {
			add, err := f.prompt.Confirm(ctx, fmt.Sprintf("Add a row to %s?", f.title(&group.Base)))
			if err != nil || !add {
				return err
			}
			if err := f.session.AddRow(ctx, group.ID); err != nil {
				if errors.Is(err, repeating.ErrMaxCount) {
					fmt.Fprintf(f.out, "%s is full\n", group.ID)
					return nil
				}
				return err
			}
			if instance, ok = topInstance(page, f.session.Snapshot().RepeatingGroups, group.ID); !ok {
				return nil
			}
		}
		for _, child := range group.ChildIDs() {
			c, ok := page.Find(child).(*layout.Component)
			if !ok {
				continue
			}
			binding := c.Binding(simpleBinding)
			if binding == "" {
				continue
			}
			if err := f.fillComponent(ctx, pageName, c, instance.RowID(c.ID, row), instance.RowBinding(binding, row)); err != nil {
				return err
			}
		}
	}
}

// fillComponent asks for binding until the component validates or the user
// keeps the rejected value.
func (f *filler) fillComponent(ctx context.Context, pageName string, c *layout.Component, id, binding string) error {
	if binding == "" || c.ReadOnly {
		return nil
	}
	snap := f.session.Snapshot()
	if contains(snap.HiddenFields, id) || contains(snap.HiddenFields, c.ID) {
		return nil
	}
	current := snap.FormData[binding]
	for {
		value, err := f.ask(ctx, c, f.session.Snapshot().TextResources, current)
		if err != nil {
			return err
		}
		if err := f.session.SetField(ctx, binding, value); err != nil {
			return err
		}
		messages := componentErrors(f.session.Snapshot(), pageName, id)
		if len(messages) == 0 || value == current {
			return nil
		}
		for _, message := range messages {
			fmt.Fprintf(f.out, "  ! %s\n", message)
		}
		current = value
	}
}

func (f *filler) ask(ctx context.Context, c *layout.Component, texts textresource.Resources, current string) (string, error) {
	message := title(texts, &c.Base)
	if c.Required {
		message += " *"
	}
	var options []option
	if c.Attr("options", &options) && len(options) > 0 {
		labels := make([]string, len(options))
		selected := -1
		for i, opt := range options {
			labels[i] = texts.Text(opt.Label)
			if opt.Value == current {
				selected = i
			}
		}
		i, err := f.prompt.Select(ctx, message, labels, selected)
		if err != nil {
			return "", err
		}
		return options[i].Value, nil
	}
	help := ""
	if key := c.TextResourceBindings["help"]; key != "" {
		help = texts.Text(key)
	}
	return f.prompt.Input(ctx, message, help, current)
}

func (f *filler) title(b *layout.Base) string {
	return title(f.session.Snapshot().TextResources, b)
}

func title(texts textresource.Resources, b *layout.Base) string {
	if key := b.TextResourceBindings["title"]; key != "" {
		return texts.Text(key)
	}
	return b.ID
}

func topInstance(page layout.Page, groups repeating.Map, groupID string) (repeating.Instance, bool) {
	for _, instance := range repeating.Instances(page, groups) {
		if instance.Key == groupID {
			return instance, true
		}
	}
	return repeating.Instance{}, false
}

// groupedIDs returns the ids referenced as children by any group on page.
func groupedIDs(page layout.Page) map[string]bool {
	out := make(map[string]bool)
	for _, group := range page.Groups() {
		for _, child := range group.ChildIDs() {
			out[child] = true
		}
	}
	return out
}

func componentErrors(snap orchestrator.State, pageName, id string) []string {
	cv := snap.Validations.Component(pageName, id)
	keys := make([]string, 0, len(cv))
	for key := range cv {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var out []string
	for _, key := range keys {
		out = append(out, cv[key].Errors...)
	}
	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
