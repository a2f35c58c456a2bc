package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formfill/pkg/datamodel"
	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/orchestrator"
	"github.com/goliatone/go-formfill/pkg/rules"
	"github.com/goliatone/go-formfill/pkg/textresource"
	"github.com/goliatone/go-formfill/pkg/validation"
)

type formParams struct {
	Layouts   string
	Data      string
	Schema    string
	Texts     string
	Rules     string
	Issues    string
	Language  string
	APIMode   string
	MaxRounds int
}

func initFormFlags(cmd *cobra.Command, params *formParams) {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.Flags().StringVarP(&params.Layouts, "layouts", "l", "", "layout set directory, or a single {page: [components]} file")
	cmd.Flags().StringVarP(&params.Data, "data", "d", "", "JSON data model to start from")
	cmd.Flags().StringVarP(&params.Schema, "schema", "s", "", "JSON Schema of the data model")
	cmd.Flags().StringVarP(&params.Texts, "texts", "t", "", "text resources file")
	cmd.Flags().StringVarP(&params.Rules, "rules", "r", "", "rule configuration (JSON or YAML)")
	cmd.Flags().StringVar(&params.Issues, "issues", "", "JSON list of validation issues returned by the backend")
	cmd.Flags().StringVar(&params.Language, "lang", "en", "preferred language, Accept-Language syntax")
	cmd.Flags().StringVar(&params.APIMode, "api-mode", validation.APIModeComplete, "save mode checked by the submit gate")
	cmd.Flags().IntVar(&params.MaxRounds, "max-rule-iterations", 0, "cap on rule writes settled per field change")
	_ = cmd.MarkFlagRequired("layouts")
}

// newSession loads every input named by params and builds a session over it.
func newSession(params formParams) (*orchestrator.Session, layout.Settings, error) {
	set, err := loadLayouts(params.Layouts)
	if err != nil {
		return nil, layout.Settings{}, err
	}
	logger.Verbose("loaded", len(set.Layouts), "layout pages from", params.Layouts)

	options := []orchestrator.Option{
		orchestrator.WithSettings(set.Settings),
		orchestrator.WithLanguage(params.Language),
		orchestrator.WithAPIMode(params.APIMode),
		orchestrator.WithMaxRuleIterations(params.MaxRounds),
	}

	if params.Data != "" {
		var model map[string]any
		if err := readJSON(params.Data, &model); err != nil {
			return nil, layout.Settings{}, err
		}
		options = append(options, orchestrator.WithFormData(formdata.FromModel(model)))
	}
	if params.Schema != "" {
		data, err := os.ReadFile(params.Schema)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		validator, err := datamodel.New(data)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		logger.Verbose("data model root element:", validator.RootElement())
		options = append(options, orchestrator.WithValidator(validator))
	}
	if params.Texts != "" {
		data, err := os.ReadFile(params.Texts)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		resources, err := textresource.Parse(data)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		options = append(options, orchestrator.WithTextResources(resources))
	}
	if params.Rules != "" {
		data, err := os.ReadFile(params.Rules)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		cfg, err := rules.LoadConfig(data)
		if err != nil {
			return nil, layout.Settings{}, err
		}
		options = append(options, orchestrator.WithRuleConfig(cfg))
	}

	session, err := orchestrator.New(set.Layouts, options...)
	if err != nil {
		return nil, layout.Settings{}, err
	}
	return session, set.Settings, nil
}

func loadLayouts(path string) (*layout.Set, error) {
	if path == "" {
		return nil, errors.New("layouts path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return layout.LoadFS(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layouts, err := layout.ParseLayouts(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &layout.Set{Layouts: layouts}, nil
}

func loadIssues(path string) ([]validation.Issue, error) {
	if path == "" {
		return nil, nil
	}
	var issues []validation.Issue
	if err := readJSON(path, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
