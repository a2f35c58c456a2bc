package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formfill/pkg/validation"
)

var errNotSubmittable = errors.New("form cannot be submitted")

type validateReport struct {
	validation.Result
	ErrorCount     int      `json:"errorCount"`
	UnmappedErrors []string `json:"unmappedErrors,omitempty"`
	CanSubmit      bool     `json:"canSubmit"`
}

func newValidateCmd() *cobra.Command {
	params := formParams{}
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "run every validation over the form data and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(params)
			if err != nil {
				return err
			}
			issues, err := loadIssues(params.Issues)
			if err != nil {
				return err
			}
			if len(issues) > 0 {
				if err := session.ImportIssues(cmd.Context(), issues); err != nil {
					return err
				}
			}
			result, err := session.Validate(cmd.Context())
			if err != nil {
				return err
			}
			canSubmit, err := session.CanSubmit(cmd.Context())
			if err != nil {
				return err
			}
			report := validateReport{
				Result:         result,
				ErrorCount:     validation.ErrorCount(result.Validations),
				UnmappedErrors: validation.UnmappedErrors(result.Validations),
				CanSubmit:      canSubmit,
			}
			logger.Verbose(fmt.Sprintf("%d errors, invalid data types: %v", report.ErrorCount, result.InvalidDataTypes))
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if strict && !canSubmit {
				return errNotSubmittable
			}
			return nil
		},
	}
	initFormFlags(cmd, &params)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when the form cannot be submitted")
	return cmd
}
